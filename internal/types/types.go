package types

import (
	"time"

	"github.com/gnolang/revxslt/match"
)

// Status tells how the extraction of one document ended.
type Status string

const (
	StatusMatched Status = "matched"
	StatusNoMatch Status = "no-match"
	StatusError   Status = "error"
)

// Record is the result of matching one instance document against a template.
type Record struct {
	Source      string         `json:"source"`
	Template    string         `json:"template"`
	Status      Status         `json:"status"`
	Bindings    match.Bindings `json:"bindings,omitempty"`
	Error       string         `json:"error,omitempty"`
	Duration    time.Duration  `json:"duration"`
	ExtractedAt time.Time      `json:"extracted_at"`
}

// Matched reports whether the document was produced by the template.
func (r Record) Matched() bool {
	return r.Status == StatusMatched
}
