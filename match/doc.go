// Package match infers the data a template was filled with by aligning the
// template against one of its rendered instances.
//
// Both sides are token trees (see package token). Elements and literal text
// must line up exactly, after whitespace normalization. The template-only
// constructs capture what lies between them:
//
// ValueOf: binds its name to the text it covers. A literal that follows it
// anchors the capture at its first occurrence; an element or the end of the
// enclosing element ends it at the end of the current text run; otherwise a
// constraint (a regular expression) takes its longest matching prefix.
//
// If: the block is either absent or present once, absence first. A present
// block binds its name to the text it produced and shares the scope of its
// surroundings.
//
// ForEach: the block repeats the smallest number of times that lets the rest
// of the template align. Each repetition binds into its own scope, and the
// name is bound to the list of those scopes.
//
// Usage:
//
//	bindings, ok, err := match.Match(template, instance,
//	    match.WithConstraints(match.MustConstraints(map[string]string{
//	        "count": `[0-9]+`,
//	    })),
//	)
//	if err != nil {
//	    // ambiguous template, conflicting bindings, ...
//	}
//	if !ok {
//	    // the instance was not produced by the template
//	}
//
// Match never guesses: when two alignments produce different bindings it
// fails with ErrAmbiguousMatch, and when one name receives two different
// values it fails with ErrDuplicatedTokenName.
package match
