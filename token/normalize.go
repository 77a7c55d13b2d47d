package token

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`[\s\p{Zs}]+`)

// Normalize replaces every run of whitespace with a single space and trims
// leading and trailing whitespace.
func Normalize(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// MergeText rewrites every maximal run of consecutive Text tokens into a
// single Text holding the normalized concatenation of their values. Runs
// that normalize to the empty string are dropped. Non-text tokens keep their
// relative order and are shared with seq, which is never modified.
func MergeText(seq []Token) []Token {
	out := make([]Token, 0, len(seq))
	var run []string
	flush := func() {
		if len(run) == 0 {
			return
		}
		if v := Normalize(strings.Join(run, " ")); v != "" {
			out = append(out, &Text{Value: v})
		}
		run = run[:0]
	}
	for _, t := range seq {
		if text, ok := t.(*Text); ok {
			run = append(run, text.Value)
			continue
		}
		flush()
		out = append(out, t)
	}
	flush()
	return out
}

// NormalizeTree applies MergeText to seq and, recursively, to every child
// and body sequence. The result is an independent tree.
func NormalizeTree(seq []Token) []Token {
	merged := MergeText(seq)
	out := make([]Token, len(merged))
	for i, t := range merged {
		switch v := t.(type) {
		case *Tag:
			out[i] = &Tag{Name: v.Name, Children: NormalizeTree(v.Children)}
		case *If:
			out[i] = &If{Name: v.Name, Body: NormalizeTree(v.Body)}
		case *ForEach:
			out[i] = &ForEach{Name: v.Name, Body: NormalizeTree(v.Body)}
		default:
			out[i] = Clone(t)
		}
	}
	return out
}
