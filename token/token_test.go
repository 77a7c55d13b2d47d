package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() []Token {
	return []Token{
		NewTag("div",
			NewText("count:"),
			NewIf("var", NewValueOf("count"), NewText("users")),
		),
		NewForEach("rows", NewTag("tr", NewTag("td", NewValueOf("cell")))),
		NewText("tail"),
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b Token
		want bool
	}{
		{"same tag", NewTag("div"), NewTag("div"), true},
		{"different tag name", NewTag("div"), NewTag("span"), false},
		{"tag vs text", NewTag("div"), NewText("div"), false},
		{"same text", NewText("a b"), NewText("a b"), true},
		{"different text", NewText("a"), NewText("b"), false},
		{"value-of", NewValueOf("v"), NewValueOf("v"), true},
		{"value-of vs if", NewValueOf("v"), NewIf("v"), false},
		{"nested children", NewTag("a", NewText("x")), NewTag("a", NewText("x")), true},
		{"nested children differ", NewTag("a", NewText("x")), NewTag("a", NewText("y")), false},
		{"children length differ", NewTag("a", NewText("x")), NewTag("a"), false},
		{"if body", NewIf("c", NewText(",")), NewIf("c", NewText(",")), true},
		{"for-each body differ", NewForEach("g", NewText(",")), NewForEach("g"), false},
		{"both nil", nil, nil, true},
		{"one nil", NewText("x"), nil, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	orig := sampleTree()
	clone := CloneSeq(orig)
	require.True(t, EqualSeq(orig, clone))

	// mutate the clone at every level and check the original is untouched
	clone[0].(*Tag).Children[1].(*If).Body[1].(*Text).Value = "admins"
	clone[1].(*ForEach).Body = nil
	clone[2].(*Text).Value = "changed"

	assert.False(t, EqualSeq(orig, clone))
	assert.True(t, EqualSeq(orig, sampleTree()))
}

func TestCloneNilSequence(t *testing.T) {
	t.Parallel()
	assert.Nil(t, CloneSeq(nil))
	assert.Nil(t, Clone(nil))
}

func TestContainsTemplateOnly(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsTemplateOnly(sampleTree()))
	assert.True(t, ContainsTemplateOnly([]Token{NewTag("a", NewTag("b", NewValueOf("x")))}))
	assert.False(t, ContainsTemplateOnly([]Token{NewTag("a", NewText("x")), NewText("y")}))
	assert.False(t, ContainsTemplateOnly(nil))
}

func TestContainsNil(t *testing.T) {
	t.Parallel()

	assert.False(t, ContainsNil(sampleTree()))
	assert.True(t, ContainsNil([]Token{nil}))
	assert.True(t, ContainsNil([]Token{NewTag("a", NewText("x"), nil)}))
}

func TestString(t *testing.T) {
	t.Parallel()

	tree := NewTag("div", NewText("a\nb"), NewIf("c", NewValueOf("v")))
	assert.Equal(t, `Tag(div)[Text(a\nb), If(c)[ValueOf(v)]]`, tree.String())
	assert.Equal(t, "ForEach(g)", NewForEach("g").String())
	assert.Equal(t, "[]", SeqString(nil))
	assert.Equal(t, "[Text(x), ValueOf(y)]", SeqString([]Token{NewText("x"), NewValueOf("y")}))
}

func TestKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindTag, NewTag("a").Kind())
	assert.Equal(t, KindText, NewText("a").Kind())
	assert.Equal(t, KindValueOf, NewValueOf("a").Kind())
	assert.Equal(t, KindIf, NewIf("a").Kind())
	assert.Equal(t, KindForEach, NewForEach("a").Kind())

	assert.False(t, KindTag.IsTemplateOnly())
	assert.False(t, KindText.IsTemplateOnly())
	assert.True(t, KindValueOf.IsTemplateOnly())
	assert.True(t, KindIf.IsTemplateOnly())
	assert.True(t, KindForEach.IsTemplateOnly())
	assert.Equal(t, "for_each", KindForEach.String())
}
