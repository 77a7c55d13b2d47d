package internal

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gnolang/revxslt/internal/fetch"
	tt "github.com/gnolang/revxslt/internal/types"
	"github.com/gnolang/revxslt/match"
	"github.com/gnolang/revxslt/parser"
	"github.com/gnolang/revxslt/scanner"
	"github.com/gnolang/revxslt/token"
)

var documents = scanner.New("")

// Fetcher downloads remote instance documents.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body []byte, contentType string, err error)
}

// Observer is told about every produced record.
type Observer interface {
	Observe(r tt.Record)
}

// Engine matches instance documents against one parsed template.
type Engine struct {
	templatePath string
	template     []token.Token
	constraints  match.Constraints
	budget       int
	logger       *zap.Logger
	cache        *Cache
	fetcher      Fetcher
	observers    []Observer
	parseOpts    []parser.Option
	now          func() time.Time

	mu           sync.RWMutex
	ignoredPaths []string

	watcher    *fsnotify.Watcher
	watchDirs  []string
	isWatching bool
	onRecord   func(tt.Record)
	debounce   time.Duration
}

type EngineOption func(*Engine)

func WithCache(c *Cache) EngineOption {
	return func(e *Engine) {
		e.cache = c
	}
}

func WithFetcher(f Fetcher) EngineOption {
	return func(e *Engine) {
		e.fetcher = f
	}
}

// WithObserver adds o to the observers notified after each extraction.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithBudget(steps int) EngineOption {
	return func(e *Engine) {
		e.budget = steps
	}
}

func WithConstraints(c match.Constraints) EngineOption {
	return func(e *Engine) {
		e.constraints = c
	}
}

// WithParseOptions applies opts when parsing instance documents.
func WithParseOptions(opts ...parser.Option) EngineOption {
	return func(e *Engine) {
		e.parseOpts = append(e.parseOpts, opts...)
	}
}

// WithWatchDirs sets the directories StartWatching observes.
func WithWatchDirs(dirs ...string) EngineOption {
	return func(e *Engine) {
		e.watchDirs = append(e.watchDirs, dirs...)
	}
}

// WithRecordHandler sets the callback receiving records produced by the
// watcher and the poller.
func WithRecordHandler(fn func(tt.Record)) EngineOption {
	return func(e *Engine) {
		e.onRecord = fn
	}
}

// NewEngine creates an engine for an already parsed template. templatePath
// only labels the produced records.
func NewEngine(templatePath string, template []token.Token, opts ...EngineOption) (*Engine, error) {
	if template == nil || token.ContainsNil(template) {
		return nil, fmt.Errorf("template %s: %w", templatePath, match.ErrIllegalMatchUse)
	}

	e := &Engine{
		templatePath: templatePath,
		template:     template,
		budget:       match.DefaultBudget,
		logger:       zap.NewNop(),
		now:          time.Now,
		debounce:     100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}

	if len(e.watchDirs) > 0 {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		e.watcher = watcher
	}

	return e, nil
}

// Template returns the parsed template.
func (e *Engine) Template() []token.Token {
	return e.template
}

func (e *Engine) TemplatePath() string {
	return e.templatePath
}

// Run extracts bindings from a file path or an http(s) URL. The returned
// error is set when the document could not be obtained; matching failures
// are reported in the record only.
func (e *Engine) Run(ctx context.Context, source string) (tt.Record, error) {
	if fetch.IsURL(source) {
		return e.runURL(ctx, source)
	}

	if e.cache != nil {
		if record, ok := e.cache.Get(source); ok {
			e.logger.Debug("cache hit", zap.String("source", source))
			return record, nil
		}
	}

	content, err := os.ReadFile(source)
	if err != nil {
		err = fmt.Errorf("error reading %s: %w", source, err)
		return e.failed(source, err), err
	}

	record := e.RunSource(ctx, source, content, "")
	if e.cache != nil && record.Status != tt.StatusError {
		if err := e.cache.Set(source, record); err != nil {
			e.logger.Warn("failed to cache record", zap.String("source", source), zap.Error(err))
		}
	}
	return record, nil
}

func (e *Engine) runURL(ctx context.Context, url string) (tt.Record, error) {
	if e.fetcher == nil {
		err := fmt.Errorf("cannot fetch %s: no fetcher configured", url)
		return e.failed(url, err), err
	}
	body, contentType, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return e.failed(url, err), err
	}
	return e.RunSource(ctx, url, body, contentType), nil
}

// RunSource matches an in-memory document. contentType may carry a charset
// parameter; without one the encoding is sniffed from the markup.
func (e *Engine) RunSource(ctx context.Context, name string, src []byte, contentType string) tt.Record {
	start := e.now()

	instance, err := parser.ParseWithCharset(bytes.NewReader(src), contentType, e.parseOpts...)
	if err != nil {
		return e.finish(name, start, nil, false, fmt.Errorf("error parsing %s: %w", name, err))
	}

	bindings, ok, err := match.Match(e.template, instance,
		match.WithConstraints(e.constraints),
		match.WithBudget(e.budget),
		match.WithContext(ctx),
		match.WithLogger(e.logger),
	)
	return e.finish(name, start, bindings, ok, err)
}

func (e *Engine) finish(name string, start time.Time, bindings match.Bindings, ok bool, err error) tt.Record {
	record := tt.Record{
		Source:      name,
		Template:    e.templatePath,
		Status:      tt.StatusNoMatch,
		Duration:    e.now().Sub(start),
		ExtractedAt: start.UTC(),
	}
	switch {
	case err != nil:
		record.Status = tt.StatusError
		record.Error = err.Error()
		e.logger.Warn("extraction failed", zap.String("source", name), zap.Error(err))
	case ok:
		record.Status = tt.StatusMatched
		record.Bindings = bindings
	}

	for _, o := range e.observers {
		o.Observe(record)
	}
	return record
}

func (e *Engine) failed(source string, err error) tt.Record {
	return e.finish(source, e.now(), nil, false, err)
}

// IgnorePath excludes path, and everything below it, from directory walks
// and the watcher. Entries may be glob patterns.
func (e *Engine) IgnorePath(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ignoredPaths = append(e.ignoredPaths, filepath.Clean(path))
}

// IsIgnored reports whether path was excluded with IgnorePath.
func (e *Engine) IsIgnored(path string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	path = filepath.Clean(path)
	for _, ignored := range e.ignoredPaths {
		if path == ignored || strings.HasPrefix(path, ignored+string(filepath.Separator)) {
			return true
		}
		if matched, err := filepath.Match(ignored, path); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(ignored, filepath.Base(path)); err == nil && matched {
			return true
		}
	}
	return false
}

// IsDocument reports whether path has an extension of a markup document.
func IsDocument(path string) bool {
	return documents.IsTarget(path)
}
