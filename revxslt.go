// Package revxslt recovers the data an XSLT-like template was filled with,
// given one document the template produced.
//
// Template and instance may be given as markup or as token sequences:
//
//	bindings, ok, err := revxslt.Match(
//	    `<p>Ogłoszenie nr <xsl:value-of select="//a:pozycja"/> r.</p>`,
//	    `<p>Ogłoszenie nr 319020 r.</p>`,
//	)
//	// bindings["pozycja"].Value == "319020"
package revxslt

import (
	"fmt"

	"github.com/gnolang/revxslt/match"
	"github.com/gnolang/revxslt/parser"
	"github.com/gnolang/revxslt/token"
)

// Parse converts markup (string or []byte) into tokens. A token sequence is
// returned as is.
func Parse(doc any, opts ...parser.Option) ([]token.Token, error) {
	switch v := doc.(type) {
	case []token.Token:
		return v, nil
	case string:
		return parser.ParseString(v, opts...)
	case []byte:
		return parser.ParseBytes(v, opts...)
	case token.Token:
		return nil, fmt.Errorf("%w: got a single %s token, want a sequence", match.ErrIllegalMatchUse, v.Kind())
	case nil:
		return nil, fmt.Errorf("%w: got nil", match.ErrIllegalMatchUse)
	default:
		return nil, fmt.Errorf("%w: unsupported document type %T", match.ErrIllegalMatchUse, doc)
	}
}

// Match parses template and instance if needed and infers the bindings
// that make the template produce the instance. See match.Match.
func Match(template, instance any, opts ...match.Option) (match.Bindings, bool, error) {
	tmpl, err := Parse(template)
	if err != nil {
		return nil, false, err
	}
	inst, err := Parse(instance)
	if err != nil {
		return nil, false, err
	}
	return match.Match(tmpl, inst, opts...)
}

// Matches reports whether instance is compatible with template.
func Matches(template, instance any, opts ...match.Option) (bool, error) {
	_, ok, err := Match(template, instance, opts...)
	return ok, err
}
