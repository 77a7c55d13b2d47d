// Package store persists extraction records.
//
// Two backends are available: SQLite through gorm, which keeps every
// extraction, and Redis, which keeps the latest record of each source.
// Both answer Load and List with the latest record per source.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	tt "github.com/gnolang/revxslt/internal/types"
	"github.com/gnolang/revxslt/match"
)

var ErrNotFound = errors.New("record not found")

type Store interface {
	// Save persists r.
	Save(ctx context.Context, r tt.Record) error
	// Load returns the latest record extracted from source.
	Load(ctx context.Context, source string) (tt.Record, error)
	// List returns the latest record of every source, ordered by source.
	// An empty template lists records of every template.
	List(ctx context.Context, template string) ([]tt.Record, error)
	Close() error
}

// Open selects a backend from dsn: redis:// and rediss:// URLs open a Redis
// store, anything else is a SQLite database path with an optional sqlite://
// prefix.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return OpenRedis(ctx, dsn)
	case dsn == "":
		return nil, fmt.Errorf("empty store location")
	default:
		return OpenSQLite(strings.TrimPrefix(dsn, "sqlite://"))
	}
}

func encodeBindings(b match.Bindings) (string, error) {
	if b == nil {
		return "", nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to marshal bindings: %w", err)
	}
	return string(data), nil
}

func decodeBindings(s string) (match.Bindings, error) {
	if s == "" {
		return nil, nil
	}
	var b match.Bindings
	if err := json.Unmarshal([]byte(s), &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bindings: %w", err)
	}
	return b, nil
}
