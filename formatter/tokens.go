package formatter

import (
	"strings"

	"github.com/gnolang/revxslt/token"
)

// GenerateTokenTree renders a token sequence as an indented tree, one token
// per line.
func GenerateTokenTree(seq []token.Token) string {
	var sb strings.Builder
	writeTokens(&sb, seq, 0)
	return sb.String()
}

func writeTokens(sb *strings.Builder, seq []token.Token, depth int) {
	indent := strings.Repeat(" ", depth*indentWidth)
	for _, t := range seq {
		sb.WriteString(indent)
		switch v := t.(type) {
		case *token.Tag:
			sb.WriteString(fileStyle.Sprintf("<%s>", v.Name))
		case *token.Text:
			sb.WriteString(noStyle.Sprintf("%q", v.Value))
		case *token.ValueOf:
			sb.WriteString(nameStyle.Sprint("value-of ") + v.Name)
		case *token.If:
			sb.WriteString(warningStyle.Sprint("if ") + v.Name)
		case *token.ForEach:
			sb.WriteString(matchedStyle.Sprint("for-each ") + v.Name)
		default:
			sb.WriteString(errorStyle.Sprint("<nil>"))
		}
		sb.WriteByte('\n')
		writeTokens(sb, token.Children(t), depth+1)
	}
}
