package match

import (
	"strings"

	"github.com/gnolang/revxslt/token"
)

// blockText renders the text a taken conditional block produced, using the
// bindings of the scope it was flattened into.
func blockText(body []token.Token, scope Bindings) string {
	var parts []string
	collectText(body, scope, &parts)
	return token.Normalize(strings.Join(parts, " "))
}

func collectText(seq []token.Token, scope Bindings, parts *[]string) {
	for _, t := range seq {
		switch v := t.(type) {
		case *token.Text:
			*parts = append(*parts, v.Value)
		case *token.ValueOf:
			if b, ok := scope[v.Name]; ok && !b.IsList() {
				*parts = append(*parts, b.Value)
			}
		case *token.Tag:
			collectText(v.Children, scope, parts)
		case *token.If:
			if b, ok := scope[v.Name]; ok && b.Kind == BindingCondition {
				*parts = append(*parts, b.Value)
			}
		case *token.ForEach:
			if b, ok := scope[v.Name]; ok && b.IsList() {
				for _, item := range b.List {
					collectText(v.Body, item, parts)
				}
			}
		}
	}
}
