// Package parser turns markup into token trees.
//
// It reads HTML and XSLT-flavoured templates with the golang.org/x/net/html
// tokenizer and keeps the document as written: no implied elements, no
// tree repair. Elements in the xsl namespace map to template tokens:
//
//	<xsl:value-of select="..."/>   ValueOf named after the select path
//	<xsl:if test="...">            If named after the variables of the test
//	<xsl:for-each select="...">    ForEach named after the select path
//	<xsl:text>                     its character data
//	<xsl:stylesheet|transform|template>
//	                               transparent, children are kept
//
// Every other xsl element, comments, doctypes and processing instructions
// are dropped.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/gnolang/revxslt/token"
)

const xslPrefix = "xsl:"

// elements without content and end tag
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// ErrMissingAttribute is wrapped by a SyntaxError when an xsl element lacks
// the attribute naming its expression.
var ErrMissingAttribute = errors.New("missing attribute")

// SyntaxError reports an invalid XPath expression in a template.
type SyntaxError struct {
	Element string
	Expr    string
	Err     error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("<%s>: invalid expression %q: %v", e.Element, e.Expr, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

type config struct {
	validateXPath bool
}

// Option configures a Parse call.
type Option func(*config)

// WithXPathValidation makes Parse compile every select and test expression
// and fail on the first invalid one.
func WithXPathValidation() Option {
	return func(c *config) {
		c.validateXPath = true
	}
}

// Parse reads a document and returns its top-level tokens.
func Parse(r io.Reader, opts ...Option) ([]token.Token, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	p := &parser{
		z:     html.NewTokenizer(r),
		cfg:   cfg,
		stack: []*frame{{}},
	}
	return p.parse()
}

// ParseString parses markup held in a string.
func ParseString(s string, opts ...Option) ([]token.Token, error) {
	return Parse(strings.NewReader(s), opts...)
}

// ParseBytes parses markup held in a byte slice.
func ParseBytes(b []byte, opts ...Option) ([]token.Token, error) {
	return Parse(bytes.NewReader(b), opts...)
}

// ParseWithCharset decodes r to UTF-8 using the charset named by
// contentType, or sniffed from the content, then parses it.
func ParseWithCharset(r io.Reader, contentType string, opts ...Option) ([]token.Token, error) {
	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	return Parse(decoded, opts...)
}

// frame is an open element. Its text is buffered until the next child so
// that character data split by dropped nodes stays one run.
type frame struct {
	name     string
	build    func(children []token.Token) token.Token // nil splices children into the parent
	discard  bool
	children []token.Token
	text     strings.Builder
}

func (f *frame) flushText() {
	if v := token.Normalize(f.text.String()); v != "" {
		f.children = append(f.children, token.NewText(v))
	}
	f.text.Reset()
}

func (f *frame) add(t token.Token) {
	f.flushText()
	f.children = append(f.children, t)
}

type parser struct {
	z     *html.Tokenizer
	cfg   *config
	stack []*frame
}

func (p *parser) top() *frame {
	return p.stack[len(p.stack)-1]
}

func (p *parser) parse() ([]token.Token, error) {
	for {
		tt := p.z.Next()
		switch tt {
		case html.ErrorToken:
			if err := p.z.Err(); err != io.EOF {
				return nil, fmt.Errorf("tokenize: %w", err)
			}
			for len(p.stack) > 1 {
				p.pop()
			}
			root := p.top()
			root.flushText()
			return root.children, nil
		case html.TextToken:
			p.top().text.Write(p.z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if err := p.start(p.z.Token(), tt == html.SelfClosingTagToken); err != nil {
				return nil, err
			}
		case html.EndTagToken:
			p.end(p.z.Token().Data)
		}
	}
}

func (p *parser) start(tok html.Token, selfClosing bool) error {
	name := tok.Data
	if strings.HasPrefix(name, xslPrefix) {
		return p.startXSL(tok, selfClosing)
	}
	if selfClosing || voidElements[name] {
		p.top().add(token.NewTag(name))
		return nil
	}
	p.push(&frame{
		name: name,
		build: func(children []token.Token) token.Token {
			return token.NewTag(name, children...)
		},
	}, false)
	return nil
}

func (p *parser) startXSL(tok html.Token, selfClosing bool) error {
	switch strings.TrimPrefix(tok.Data, xslPrefix) {
	case "value-of":
		sel, err := p.expr(tok, "select")
		if err != nil {
			return err
		}
		p.top().add(token.NewValueOf(token.SanitizeName(sel)))
	case "if":
		test, err := p.expr(tok, "test")
		if err != nil {
			return err
		}
		name := token.ConditionName(test)
		p.push(&frame{
			name: tok.Data,
			build: func(children []token.Token) token.Token {
				return token.NewIf(name, children...)
			},
		}, selfClosing)
	case "for-each":
		sel, err := p.expr(tok, "select")
		if err != nil {
			return err
		}
		name := token.IterationName(sel)
		p.push(&frame{
			name: tok.Data,
			build: func(children []token.Token) token.Token {
				return token.NewForEach(name, children...)
			},
		}, selfClosing)
	case "text", "stylesheet", "transform", "template":
		p.push(&frame{name: tok.Data}, selfClosing)
	default:
		p.push(&frame{name: tok.Data, discard: true}, selfClosing)
	}
	return nil
}

// expr returns the expression held by attr, compiling it when validation
// is on.
func (p *parser) expr(tok html.Token, attr string) (string, error) {
	var (
		value string
		found bool
	)
	for _, a := range tok.Attr {
		if a.Key == attr {
			value, found = a.Val, true
			break
		}
	}
	if !p.cfg.validateXPath {
		return value, nil
	}
	if !found {
		return "", &SyntaxError{Element: tok.Data, Err: fmt.Errorf("%w %q", ErrMissingAttribute, attr)}
	}
	if _, err := xpath.Compile(value); err != nil {
		return "", &SyntaxError{Element: tok.Data, Expr: value, Err: err}
	}
	return value, nil
}

// push opens f. A self-closed element is closed right away.
func (p *parser) push(f *frame, selfClosing bool) {
	p.stack = append(p.stack, f)
	if selfClosing {
		p.pop()
	}
}

// pop closes the innermost element and hands its token to the parent.
func (p *parser) pop() {
	f := p.top()
	p.stack = p.stack[:len(p.stack)-1]
	f.flushText()
	if f.discard {
		return
	}
	parent := p.top()
	if f.build == nil {
		for _, c := range f.children {
			parent.add(c)
		}
		return
	}
	parent.add(f.build(f.children))
}

// end closes the innermost open element called name and everything opened
// after it. End tags without an open element are ignored.
func (p *parser) end(name string) {
	for i := len(p.stack) - 1; i > 0; i-- {
		if p.stack[i].name != name {
			continue
		}
		for len(p.stack) > i {
			p.pop()
		}
		return
	}
}
