package match

import (
	"context"

	"go.uber.org/zap"

	"github.com/gnolang/revxslt/token"
)

// DefaultBudget is the number of search steps a single Match call may take
// unless WithBudget says otherwise.
const DefaultBudget = 2_000_000

type config struct {
	constraints Constraints
	budget      int
	ctx         context.Context
	logger      *zap.Logger
}

// Option configures a Match call.
type Option func(*config)

// WithConstraints restricts what the named placeholders may capture.
func WithConstraints(c Constraints) Option {
	return func(cfg *config) {
		cfg.constraints = c
	}
}

// WithBudget bounds the number of search steps. Zero disables the bound.
func WithBudget(steps int) Option {
	return func(cfg *config) {
		cfg.budget = steps
	}
}

// WithContext makes the search stop once ctx is done.
func WithContext(ctx context.Context) Option {
	return func(cfg *config) {
		if ctx != nil {
			cfg.ctx = ctx
		}
	}
}

// WithLogger sets the logger receiving search traces.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{
		constraints: Constraints{},
		budget:      DefaultBudget,
		ctx:         context.Background(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.constraints == nil {
		cfg.constraints = Constraints{}
	}
	return cfg
}

// Match infers the bindings that make template render as instance.
//
// It returns the bindings and true when the instance is compatible with the
// template, and nil and false when it is not. A non-nil error reports misuse,
// an instance holding template constructs, a template whose placeholders
// cannot be told apart, an ambiguous or conflicting inference, or an
// exhausted search.
func Match(template, instance []token.Token, opts ...Option) (Bindings, bool, error) {
	cfg := newConfig(opts)
	if token.ContainsNil(template) || token.ContainsNil(instance) {
		return nil, false, ErrIllegalMatchUse
	}
	if token.ContainsTemplateOnly(instance) {
		return nil, false, ErrDisallowedMatch
	}

	tmpl := token.NormalizeTree(template)
	if err := checkConsecutive(tmpl, cfg.constraints); err != nil {
		return nil, false, err
	}

	e := newEngine(cfg)
	o, err := e.scope(tmpl, token.NormalizeTree(instance))
	cfg.logger.Debug("match finished",
		zap.Int("steps", e.steps),
		zap.Bool("matched", o != nil),
		zap.Error(err),
	)
	if err != nil {
		return nil, false, err
	}
	if o == nil {
		return nil, false, nil
	}
	return o.scope, true, nil
}

// Matches reports whether instance is compatible with template.
func Matches(template, instance []token.Token, opts ...Option) (bool, error) {
	_, ok, err := Match(template, instance, opts...)
	return ok, err
}

// checkConsecutive rejects an unconstrained placeholder directly followed by
// another placeholder, at any depth.
func checkConsecutive(seq []token.Token, c Constraints) error {
	for i, t := range seq {
		if v, ok := t.(*token.ValueOf); ok && i+1 < len(seq) {
			if next, ok := seq[i+1].(*token.ValueOf); ok {
				if _, constrained := c.Lookup(v.Name); !constrained {
					return &ConsecutiveError{First: v.Name, Second: next.Name}
				}
			}
		}
		if err := checkConsecutive(token.Children(t), c); err != nil {
			return err
		}
	}
	return nil
}
