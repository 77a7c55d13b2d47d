package match

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/revxslt/token"
)

// outcome is a successful alignment of the template remainder. Scopes form a
// stack: a repetition pushes a fresh scope for its body and the enclosing
// ForEach pops it into a list.
type outcome struct {
	scope Bindings
	outer *outcome
}

func newOutcome() *outcome {
	return &outcome{scope: Bindings{}}
}

func (o *outcome) push() *outcome {
	return &outcome{scope: Bindings{}, outer: o}
}

// pop removes n repetition scopes and returns them in match order.
func (o *outcome) pop(n int) ([]Bindings, *outcome) {
	items := make([]Bindings, n)
	for i := 0; i < n; i++ {
		items[i] = o.scope
		o = o.outer
	}
	return items, o
}

func (o *outcome) equal(p *outcome) bool {
	for o != nil && p != nil {
		if !o.scope.Equal(p.scope) {
			return false
		}
		o, p = o.outer, p.outer
	}
	return o == nil && p == nil
}

// cont receives the position reached by a partial alignment and returns the
// outcome of aligning everything after it, or nil when that fails.
type cont func(p position) (*outcome, error)

// checkInterval is the number of search steps between context checks.
const checkInterval = 1024

type engine struct {
	constraints Constraints
	budget      int
	steps       int
	ctx         context.Context
	logger      *zap.Logger
}

func newEngine(cfg *config) *engine {
	return &engine{
		constraints: cfg.constraints,
		budget:      cfg.budget,
		ctx:         cfg.ctx,
		logger:      cfg.logger,
	}
}

func (e *engine) tick() error {
	e.steps++
	if e.budget > 0 && e.steps > e.budget {
		e.logger.Debug("search budget exhausted", zap.Int("budget", e.budget))
		return fmt.Errorf("%w after %d steps", ErrSearchBudgetExceeded, e.budget)
	}
	if e.steps%checkInterval == 0 {
		if err := e.ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) constraint(name string) *Constraint {
	c, _ := e.constraints.Lookup(name)
	return c
}

// scope aligns a template sequence with a whole instance sequence. It is
// used for the top level and for the children of every element.
func (e *engine) scope(tmpl, inst []token.Token) (*outcome, error) {
	s := &stream{items: inst}
	return e.seq(tmpl, true, s, s.canon(position{}), func(p position) (*outcome, error) {
		if !s.atEnd(p) {
			return nil, nil
		}
		return newOutcome(), nil
	})
}

// seq aligns tmpl starting at p and hands the reached position to k. closed
// is set when the end of tmpl is also the end of its scope.
func (e *engine) seq(tmpl []token.Token, closed bool, s *stream, p position, k cont) (*outcome, error) {
	if err := e.tick(); err != nil {
		return nil, err
	}
	if len(tmpl) == 0 {
		return k(p)
	}
	rest := tmpl[1:]
	switch t := tmpl[0].(type) {
	case *token.Tag:
		return e.matchTag(t, rest, closed, s, p, k)
	case *token.Text:
		return e.matchText(t, rest, closed, s, p, k)
	case *token.ValueOf:
		return e.matchValueOf(t, rest, closed, s, p, k)
	case *token.If:
		return e.matchIf(t, rest, closed, s, p, k)
	case *token.ForEach:
		return e.matchForEach(t, rest, closed, s, p, k)
	default:
		return nil, ErrIllegalMatchUse
	}
}

func (e *engine) matchTag(t *token.Tag, rest []token.Token, closed bool, s *stream, p position, k cont) (*outcome, error) {
	inst, ok := s.tag(p)
	if !ok || inst.Name != t.Name {
		return nil, nil
	}
	sub, err := e.scope(t.Children, inst.Children)
	if err != nil || sub == nil {
		return nil, err
	}
	o, err := e.seq(rest, closed, s, s.next(p), k)
	if err != nil || o == nil {
		return nil, err
	}
	if err := o.scope.Merge(sub.scope); err != nil {
		return nil, err
	}
	return o, nil
}

func (e *engine) matchText(t *token.Text, rest []token.Token, closed bool, s *stream, p position, k cont) (*outcome, error) {
	text, ok := s.text(p)
	if !ok || !strings.HasPrefix(text, t.Value) {
		return nil, nil
	}
	return e.seq(rest, closed, s, s.advance(p, len(t.Value)), k)
}

func (e *engine) matchValueOf(t *token.ValueOf, rest []token.Token, closed bool, s *stream, p position, k cont) (*outcome, error) {
	c := e.constraint(t.Name)
	text, isText := s.text(p)

	var next token.Token
	if len(rest) > 0 {
		next = rest[0]
	}

	switch n := next.(type) {
	case *token.Text:
		idx := strings.Index(text, n.Value)
		if idx < 0 {
			return nil, nil
		}
		return e.capture(t.Name, c, text[:idx], s.advance(p, idx), rest, closed, s, k)
	case *token.Tag:
		return e.captureRun(t.Name, c, text, isText, rest, closed, s, p, k)
	case *token.ValueOf:
		if c == nil {
			return nil, &ConsecutiveError{First: t.Name, Second: n.Name}
		}
		return e.capturePrefix(t.Name, c, text, rest, closed, s, p, k)
	case nil:
		if closed {
			return e.captureRun(t.Name, c, text, isText, rest, closed, s, p, k)
		}
	}

	if c != nil {
		return e.capturePrefix(t.Name, c, text, rest, closed, s, p, k)
	}
	return e.captureAny(t.Name, text, rest, closed, s, p, k)
}

// captureRun takes the rest of the current text run.
func (e *engine) captureRun(name string, c *Constraint, text string, isText bool, rest []token.Token, closed bool, s *stream, p position, k cont) (*outcome, error) {
	np := p
	if isText {
		np = s.next(p)
	}
	return e.capture(name, c, text, np, rest, closed, s, k)
}

// capturePrefix takes the longest prefix of the run the constraint accepts.
func (e *engine) capturePrefix(name string, c *Constraint, text string, rest []token.Token, closed bool, s *stream, p position, k cont) (*outcome, error) {
	v, ok := c.Prefix(text)
	if !ok {
		return nil, nil
	}
	return e.capture(name, c, v, s.advance(p, len(v)), rest, closed, s, k)
}

// captureAny tries every end boundary of an unanchored, unconstrained
// placeholder. Two complete alignments with different bindings make the
// instance ambiguous.
func (e *engine) captureAny(name, text string, rest []token.Token, closed bool, s *stream, p position, k cont) (*outcome, error) {
	var found *outcome
	for _, end := range captureEnds(text) {
		np := p
		if end > 0 {
			np = s.advance(p, end)
		}
		o, err := e.capture(name, nil, text[:end], np, rest, closed, s, k)
		if err != nil {
			return nil, err
		}
		if o == nil {
			continue
		}
		if found == nil {
			found = o
			continue
		}
		if !found.equal(o) {
			e.logger.Debug("ambiguous placeholder boundary", zap.String("name", name))
			return nil, &AmbiguityError{Name: name, Alternatives: []Bindings{found.scope, o.scope}}
		}
	}
	return found, nil
}

func (e *engine) capture(name string, c *Constraint, raw string, np position, rest []token.Token, closed bool, s *stream, k cont) (*outcome, error) {
	value := strings.TrimSpace(raw)
	if c != nil && !c.Accepts(value) {
		return nil, nil
	}
	o, err := e.seq(rest, closed, s, np, k)
	if err != nil || o == nil {
		return nil, err
	}
	if err := o.scope.Bind(name, Value(value)); err != nil {
		return nil, err
	}
	return o, nil
}

// repeat aligns body n times from p, then hands over to k. With scoped set
// every repetition binds into its own scope and must consume input.
func (e *engine) repeat(body []token.Token, n int, scoped bool, s *stream, p position, k cont) (*outcome, error) {
	if n == 0 {
		return k(p)
	}
	return e.seq(body, false, s, p, func(q position) (*outcome, error) {
		if scoped && q == p {
			return nil, nil
		}
		o, err := e.repeat(body, n-1, scoped, s, q, k)
		if err != nil || o == nil || !scoped {
			return o, err
		}
		return o.push(), nil
	})
}

func (e *engine) matchIf(t *token.If, rest []token.Token, closed bool, s *stream, p position, k cont) (*outcome, error) {
	after := func(q position) (*outcome, error) {
		return e.seq(rest, closed, s, q, k)
	}
	o, err := e.repeat(t.Body, 0, false, s, p, after)
	if err != nil || o != nil {
		return o, err
	}
	o, err = e.repeat(t.Body, 1, false, s, p, after)
	if err != nil || o == nil {
		return nil, err
	}
	if err := o.scope.Bind(t.Name, Condition(blockText(t.Body, o.scope))); err != nil {
		return nil, err
	}
	return o, nil
}

func (e *engine) matchForEach(t *token.ForEach, rest []token.Token, closed bool, s *stream, p position, k cont) (*outcome, error) {
	after := func(q position) (*outcome, error) {
		return e.seq(rest, closed, s, q, k)
	}
	limit := repeatLimit(t.Body, s, p)
	if !e.floating(t.Body) {
		return e.expand(t, limit, s, p, after)
	}
	for n := 0; n <= limit; n++ {
		o, err := e.repeat(t.Body, n, true, s, p, after)
		if err != nil {
			return nil, err
		}
		if o == nil {
			continue
		}
		if n < limit {
			alt, err := e.repeat(t.Body, n+1, true, s, p, after)
			if err != nil {
				return nil, err
			}
			if alt != nil {
				items, _ := o.pop(n)
				altItems, _ := alt.pop(n + 1)
				e.logger.Debug("ambiguous repetition count", zap.String("name", t.Name), zap.Int("count", n))
				return nil, &AmbiguityError{
					Name:         t.Name,
					Alternatives: []Bindings{{t.Name: List(items...)}, {t.Name: List(altItems...)}},
				}
			}
		}
		items, o := o.pop(n)
		if err := o.scope.Bind(t.Name, List(items...)); err != nil {
			return nil, err
		}
		return o, nil
	}
	return nil, nil
}

// reach is a position first reached after some repetitions of a body, linked
// to the position of the repetition before it.
type reach struct {
	pos    position
	parent *reach
}

// expand matches a repeated body without floating placeholders. Positions are
// visited by increasing repetition count and each one only once: what follows
// a position does not depend on how it was reached, and a later count cannot
// succeed where a smaller one failed. The rest of the template is tried at
// every new position, so the first success has the smallest count and, among
// those, the first alignment in search order.
func (e *engine) expand(t *token.ForEach, limit int, s *stream, p position, after cont) (*outcome, error) {
	start := &reach{pos: p}
	if o, err := e.settle(t, start, s, after); err != nil || o != nil {
		return o, err
	}
	visited := map[position]bool{p: true}
	level := []*reach{start}
	for n := 1; n <= limit && len(level) > 0; n++ {
		var next []*reach
		for _, from := range level {
			ends, err := e.ends(t.Body, s, from.pos)
			if err != nil {
				return nil, err
			}
			for _, q := range ends {
				if visited[q] {
					continue
				}
				visited[q] = true
				r := &reach{pos: q, parent: from}
				o, err := e.settle(t, r, s, after)
				if err != nil || o != nil {
					return o, err
				}
				next = append(next, r)
			}
		}
		level = next
	}
	return nil, nil
}

// ends lists the distinct positions one repetition of body can stop at when
// started at p, in search order. A repetition must consume input.
func (e *engine) ends(body []token.Token, s *stream, p position) ([]position, error) {
	var out []position
	seen := make(map[position]bool)
	_, err := e.seq(body, false, s, p, func(q position) (*outcome, error) {
		if q != p && !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
		return nil, nil
	})
	return out, err
}

// settle aligns the rest of the template at r. On success the repetitions
// leading to r are aligned again, each up to the position the next one starts
// at, to collect their scopes into the list bound to the block name.
func (e *engine) settle(t *token.ForEach, r *reach, s *stream, after cont) (*outcome, error) {
	o, err := after(r.pos)
	if err != nil || o == nil {
		return nil, err
	}
	var items []Bindings
	for ; r.parent != nil; r = r.parent {
		target := r.pos
		rep, err := e.seq(t.Body, false, s, r.parent.pos, func(q position) (*outcome, error) {
			if q != target {
				return nil, nil
			}
			return newOutcome(), nil
		})
		if err != nil || rep == nil {
			return nil, err
		}
		items = append(items, rep.scope)
	}
	slices.Reverse(items)
	if err := o.scope.Bind(t.Name, List(items...)); err != nil {
		return nil, err
	}
	return o, nil
}

// floating reports whether body holds an unconstrained placeholder whose end
// is not anchored by a literal, an element or the end of a scope.
func (e *engine) floating(body []token.Token) bool {
	for i, t := range body {
		switch v := t.(type) {
		case *token.ValueOf:
			if e.constraint(v.Name) != nil {
				continue
			}
			if i == len(body)-1 {
				return true
			}
			switch body[i+1].(type) {
			case *token.If, *token.ForEach:
				return true
			}
		case *token.If:
			if e.floating(v.Body) {
				return true
			}
		case *token.ForEach:
			if e.floating(v.Body) {
				return true
			}
		}
	}
	return false
}

// repeatLimit bounds the repetition count of body by the input left at p.
// Every repetition consumes at least one unit, and at least as many
// elements and characters as the body requires.
func repeatLimit(body []token.Token, s *stream, p position) int {
	tags, runes := s.remaining(p)
	limit := tags + runes
	minTags, minRunes := required(body)
	if minTags > 0 && tags/minTags < limit {
		limit = tags / minTags
	}
	if minRunes > 0 && runes/minRunes < limit {
		limit = runes / minRunes
	}
	return limit
}

// required counts the elements and non-space characters every alignment of
// seq consumes at its own level.
func required(seq []token.Token) (tags, runes int) {
	for _, t := range seq {
		switch v := t.(type) {
		case *token.Tag:
			tags++
		case *token.Text:
			runes += nonSpaceRunes(v.Value)
		}
	}
	return tags, runes
}
