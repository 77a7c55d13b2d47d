package token

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind defines the different kinds of tokens that can appear in a token tree.
type Kind int

const (
	KindTag     Kind = iota // concrete element
	KindText                // literal text run
	KindValueOf             // placeholder capturing text (template only)
	KindIf                  // optional block (template only)
	KindForEach             // repeated block (template only)
)

func (k Kind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindText:
		return "text"
	case KindValueOf:
		return "value_of"
	case KindIf:
		return "if"
	case KindForEach:
		return "for_each"
	default:
		return "unknown"
	}
}

// IsTemplateOnly reports whether tokens of this kind may only appear in templates.
func (k Kind) IsTemplateOnly() bool {
	return k == KindValueOf || k == KindIf || k == KindForEach
}

// Token is a node of a template or instance tree.
//
// The set of implementations is closed: *Tag, *Text, *ValueOf, *If and *ForEach.
// Code dispatching over tokens should use a type switch covering all five.
type Token interface {
	Kind() Kind
	String() string
	token()
}

var (
	_ Token = (*Tag)(nil)
	_ Token = (*Text)(nil)
	_ Token = (*ValueOf)(nil)
	_ Token = (*If)(nil)
	_ Token = (*ForEach)(nil)
)

// Tag is a concrete element with ordered children.
type Tag struct {
	Name     string
	Children []Token
}

func (t *Tag) Kind() Kind { return KindTag }
func (t *Tag) String() string {
	return fmt.Sprintf("Tag(%s)%s", t.Name, seqString(t.Children))
}
func (*Tag) token() {}

// Text is a literal text run.
type Text struct {
	Value string
}

func (t *Text) Kind() Kind { return KindText }
func (t *Text) String() string {
	escaped := strconv.Quote(t.Value)
	return fmt.Sprintf("Text(%s)", escaped[1:len(escaped)-1])
}
func (*Text) token() {}

// ValueOf is a placeholder capturing arbitrary text under Name.
type ValueOf struct {
	Name string
}

func (v *ValueOf) Kind() Kind     { return KindValueOf }
func (v *ValueOf) String() string { return fmt.Sprintf("ValueOf(%s)", v.Name) }
func (*ValueOf) token()           {}

// If is an optional block: Body is produced zero or one time.
type If struct {
	Name string
	Body []Token
}

func (i *If) Kind() Kind { return KindIf }
func (i *If) String() string {
	return fmt.Sprintf("If(%s)%s", i.Name, seqString(i.Body))
}
func (*If) token() {}

// ForEach is a repeated block: Body is produced zero or more times.
type ForEach struct {
	Name string
	Body []Token
}

func (f *ForEach) Kind() Kind { return KindForEach }
func (f *ForEach) String() string {
	return fmt.Sprintf("ForEach(%s)%s", f.Name, seqString(f.Body))
}
func (*ForEach) token() {}

// NewTag, NewText, NewValueOf, NewIf and NewForEach are shorthands used by
// tree builders and tests.
func NewTag(name string, children ...Token) *Tag { return &Tag{Name: name, Children: children} }
func NewText(value string) *Text                 { return &Text{Value: value} }
func NewValueOf(name string) *ValueOf            { return &ValueOf{Name: name} }
func NewIf(name string, body ...Token) *If       { return &If{Name: name, Body: body} }
func NewForEach(name string, body ...Token) *ForEach {
	return &ForEach{Name: name, Body: body}
}

// Children returns the ordered child sequence of t: the children of a Tag,
// the body of an If or ForEach, nil otherwise.
func Children(t Token) []Token {
	switch v := t.(type) {
	case *Tag:
		if v != nil {
			return v.Children
		}
	case *If:
		if v != nil {
			return v.Body
		}
	case *ForEach:
		if v != nil {
			return v.Body
		}
	}
	return nil
}

// Equal reports whether a and b are structurally equal: same kind, same
// name or value, and element-wise equal children.
func Equal(a, b Token) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Tag:
		y, ok := b.(*Tag)
		return ok && x.Name == y.Name && EqualSeq(x.Children, y.Children)
	case *Text:
		y, ok := b.(*Text)
		return ok && x.Value == y.Value
	case *ValueOf:
		y, ok := b.(*ValueOf)
		return ok && x.Name == y.Name
	case *If:
		y, ok := b.(*If)
		return ok && x.Name == y.Name && EqualSeq(x.Body, y.Body)
	case *ForEach:
		y, ok := b.(*ForEach)
		return ok && x.Name == y.Name && EqualSeq(x.Body, y.Body)
	default:
		return false
	}
}

// EqualSeq compares two token sequences element-wise.
func EqualSeq(a, b []Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of t sharing no storage with it.
func Clone(t Token) Token {
	switch v := t.(type) {
	case *Tag:
		return &Tag{Name: v.Name, Children: CloneSeq(v.Children)}
	case *Text:
		return &Text{Value: v.Value}
	case *ValueOf:
		return &ValueOf{Name: v.Name}
	case *If:
		return &If{Name: v.Name, Body: CloneSeq(v.Body)}
	case *ForEach:
		return &ForEach{Name: v.Name, Body: CloneSeq(v.Body)}
	default:
		return nil
	}
}

// CloneSeq deep-copies a token sequence.
func CloneSeq(seq []Token) []Token {
	if seq == nil {
		return nil
	}
	out := make([]Token, len(seq))
	for i, t := range seq {
		out[i] = Clone(t)
	}
	return out
}

// ContainsTemplateOnly reports whether seq holds a ValueOf, If or ForEach at any depth.
func ContainsTemplateOnly(seq []Token) bool {
	for _, t := range seq {
		if t == nil {
			continue
		}
		if t.Kind().IsTemplateOnly() {
			return true
		}
		if ContainsTemplateOnly(Children(t)) {
			return true
		}
	}
	return false
}

// ContainsNil reports whether seq holds a nil token, typed or not, at any depth.
func ContainsNil(seq []Token) bool {
	for _, t := range seq {
		if isNil(t) {
			return true
		}
		if ContainsNil(Children(t)) {
			return true
		}
	}
	return false
}

// SeqString renders a sequence the way String renders a single token.
func SeqString(seq []Token) string {
	if len(seq) == 0 {
		return "[]"
	}
	return seqString(seq)
}

func seqString(seq []Token) string {
	if len(seq) == 0 {
		return ""
	}
	parts := make([]string, len(seq))
	for i, t := range seq {
		if t == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func isNil(t Token) bool {
	switch v := t.(type) {
	case nil:
		return true
	case *Tag:
		return v == nil
	case *Text:
		return v == nil
	case *ValueOf:
		return v == nil
	case *If:
		return v == nil
	case *ForEach:
		return v == nil
	}
	return false
}
