package match

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Constraint validates the text a placeholder may capture.
type Constraint struct {
	Pattern string

	full   *regexp.Regexp // anchored at both ends
	prefix *regexp.Regexp // anchored at the start only
}

// CompileConstraint compiles a regular expression into a Constraint.
func CompileConstraint(pattern string) (*Constraint, error) {
	full, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid constraint %q: %w", pattern, err)
	}
	prefix, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid constraint %q: %w", pattern, err)
	}
	return &Constraint{Pattern: pattern, full: full, prefix: prefix}, nil
}

// Accepts reports whether the whole of s satisfies the constraint.
func (c *Constraint) Accepts(s string) bool {
	return c.full.MatchString(s)
}

// Prefix returns the leftmost-first match of the constraint at the start of s.
func (c *Constraint) Prefix(s string) (string, bool) {
	loc := c.prefix.FindStringIndex(s)
	if loc == nil {
		return "", false
	}
	return s[:loc[1]], true
}

func (c *Constraint) String() string { return "/" + c.Pattern + "/" }

// Constraints maps placeholder names to constraints. Names without an entry
// are unconstrained.
type Constraints map[string]*Constraint

// NewConstraints compiles a name -> pattern table.
func NewConstraints(patterns map[string]string) (Constraints, error) {
	c := make(Constraints, len(patterns))
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.Add(name, patterns[name]); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustConstraints is like NewConstraints but panics on invalid patterns.
func MustConstraints(patterns map[string]string) Constraints {
	c, err := NewConstraints(patterns)
	if err != nil {
		panic(err)
	}
	return c
}

// Add compiles pattern and registers it for name.
func (c Constraints) Add(name, pattern string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("constraint for empty name")
	}
	con, err := CompileConstraint(pattern)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	c[name] = con
	return nil
}

// Lookup returns the constraint registered for name.
func (c Constraints) Lookup(name string) (*Constraint, bool) {
	con, ok := c[name]
	return con, ok && con != nil
}

// Patterns returns the source patterns of the table.
func (c Constraints) Patterns() map[string]string {
	out := make(map[string]string, len(c))
	for name, con := range c {
		out[name] = con.Pattern
	}
	return out
}
