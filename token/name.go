package token

import (
	"regexp"
	"strings"
)

var (
	namespacePrefixRegex = regexp.MustCompile(`[a-z]+:`)
	stringLiteralRegex   = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	functionCallRegex    = regexp.MustCompile(`[A-Za-z_][\w.\-]*\s*\(`)
	xpathNameRegex       = regexp.MustCompile(`[A-Za-z_][\w.\-]*`)
	predicateRegex       = regexp.MustCompile(`\[[^\[\]]*\]`)
	parentStepRegex      = regexp.MustCompile(`\.\.`)
)

// operator words are never part of a derived name
var operators = map[string]bool{
	"and": true,
	"or":  true,
	"not": true,
	"div": true,
	"mod": true,
}

// SanitizeName turns an XPath expression into an identifier made of
// lowercase letters and single underscores.
//
// Namespace prefixes are removed, the words not/or/and standing on their own
// become separators, every other character outside [_a-z] becomes an
// underscore, underscore runs are collapsed and edge underscores trimmed.
//
// For example, "//a:abra_kadabra" -> "abra_kadabra".
func SanitizeName(path string) string {
	path = namespacePrefixRegex.ReplaceAllString(path, "")

	var sb strings.Builder
	lastUnderscore := true // suppress leading underscores
	writeSep := func() {
		if !lastUnderscore {
			sb.WriteByte('_')
			lastUnderscore = true
		}
	}

	for i := 0; i < len(path); {
		c := path[i]
		if !isNameChar(c) {
			writeSep()
			i++
			continue
		}
		j := i
		for j < len(path) && isNameChar(path[j]) {
			j++
		}
		word := path[i:j]
		i = j
		if word == "not" || word == "or" || word == "and" {
			writeSep()
			continue
		}
		for k := 0; k < len(word); k++ {
			if word[k] == '_' {
				writeSep()
				continue
			}
			sb.WriteByte(word[k])
			lastUnderscore = false
		}
	}
	return strings.TrimRight(sb.String(), "_")
}

func isNameChar(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z')
}

// ConditionName derives the name of a conditional block from its test
// expression: "if_" followed by the variable references of the expression,
// de-duplicated in order of first appearance and joined with underscores.
// String literals, function names and operators are not references.
//
// For example, "(//a:abra != ”) and (//b:kadabra != ”)" -> "if_abra_kadabra".
func ConditionName(test string) string {
	expr := stringLiteralRegex.ReplaceAllString(test, " ")
	expr = functionCallRegex.ReplaceAllString(expr, "(")
	expr = namespacePrefixRegex.ReplaceAllString(expr, "")

	seen := make(map[string]bool)
	parts := []string{"if"}
	for _, ref := range xpathNameRegex.FindAllString(expr, -1) {
		if operators[ref] {
			continue
		}
		name := SanitizeName(ref)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		parts = append(parts, name)
	}
	return strings.Join(parts, "_")
}

// IterationName derives the name of a repeated block from its select path.
// Bracketed predicates and parent steps are ignored.
//
// For example, "//a:items/a:item[not(../.. != ”)]" -> "items_item".
func IterationName(selectPath string) string {
	for {
		stripped := predicateRegex.ReplaceAllString(selectPath, "")
		if stripped == selectPath {
			break
		}
		selectPath = stripped
	}
	selectPath = parentStepRegex.ReplaceAllString(selectPath, "")
	return SanitizeName(selectPath)
}
