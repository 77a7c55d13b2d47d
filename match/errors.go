package match

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by Match. All of them abort the whole call: they signal a
// usage or template-authoring problem, not an incompatible document, which is
// reported as a plain no-match instead.
var (
	ErrIllegalMatchUse         = errors.New("illegal match use: template and instance must be token sequences")
	ErrDisallowedMatch         = errors.New("disallowed match: instance contains template-only tokens")
	ErrConsecutiveValueOfToken = errors.New("consecutive value-of tokens")
	ErrAmbiguousMatch          = errors.New("ambiguous match")
	ErrDuplicatedTokenName     = errors.New("duplicated token name")
	ErrSearchBudgetExceeded    = errors.New("search budget exceeded")
)

// DuplicateError reports a name bound twice with conflicting values.
type DuplicateError struct {
	Name   string
	First  Binding
	Second Binding
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: %q bound to %s and %s", ErrDuplicatedTokenName, e.Name, e.First, e.Second)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicatedTokenName }

// AmbiguityError reports two alignments of equal rank producing different bindings.
type AmbiguityError struct {
	Name         string // construct whose boundary could not be decided
	Alternatives []Bindings
}

func (e *AmbiguityError) Error() string {
	alts := make([]string, len(e.Alternatives))
	for i, alt := range e.Alternatives {
		alts[i] = alt.String()
	}
	return fmt.Sprintf("%s at %q: %s", ErrAmbiguousMatch, e.Name, strings.Join(alts, " vs "))
}

func (e *AmbiguityError) Unwrap() error { return ErrAmbiguousMatch }

// ConsecutiveError reports two adjacent placeholders that nothing separates.
type ConsecutiveError struct {
	First  string
	Second string
}

func (e *ConsecutiveError) Error() string {
	return fmt.Sprintf("%s: %q followed by %q without separator or constraint", ErrConsecutiveValueOfToken, e.First, e.Second)
}

func (e *ConsecutiveError) Unwrap() error { return ErrConsecutiveValueOfToken }
