// Package extract runs a template over files, directories, URLs and
// in-memory documents, and loads the YAML configuration describing a job.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnolang/revxslt/internal"
	"github.com/gnolang/revxslt/internal/fetch"
	tt "github.com/gnolang/revxslt/internal/types"
	"github.com/gnolang/revxslt/match"
	"github.com/gnolang/revxslt/parser"
	"github.com/gnolang/revxslt/scanner"
)

// ProgressWriter receives the progress bar drawn while walking directories.
var ProgressWriter io.Writer = os.Stderr

type ExtractEngine interface {
	Run(ctx context.Context, source string) (tt.Record, error)
	RunSource(ctx context.Context, name string, src []byte, contentType string) tt.Record
	IgnorePath(path string)
	IsIgnored(path string) bool
}

// Processor turns one source into a record.
type Processor func(ctx context.Context, engine ExtractEngine, source string) (tt.Record, error)

// Source is an in-memory instance document.
type Source struct {
	Name        string
	Content     []byte
	ContentType string
}

// New builds an engine for cfg. Relative paths in cfg are resolved against
// baseDir, normally the directory of the configuration file; dependencies
// name extra files whose change invalidates the cache.
func New(cfg Config, baseDir string, logger *zap.Logger, dependencies []string, opts ...internal.EngineOption) (*internal.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	templatePath := resolve(baseDir, cfg.Template)
	f, err := os.Open(templatePath)
	if err != nil {
		return nil, fmt.Errorf("error opening template: %w", err)
	}
	defer f.Close()

	var parseOpts []parser.Option
	if cfg.StrictXPath {
		parseOpts = append(parseOpts, parser.WithXPathValidation())
	}
	template, err := parser.Parse(f, parseOpts...)
	if err != nil {
		return nil, fmt.Errorf("error parsing template %s: %w", templatePath, err)
	}

	constraints, err := match.NewConstraints(cfg.Constraints)
	if err != nil {
		return nil, err
	}

	engineOpts := []internal.EngineOption{
		internal.WithLogger(logger),
		internal.WithConstraints(constraints),
	}
	if cfg.Budget > 0 {
		engineOpts = append(engineOpts, internal.WithBudget(cfg.Budget))
	}
	if cfg.CacheDir != "" {
		cache, err := internal.NewCache(resolve(baseDir, cfg.CacheDir), append([]string{templatePath}, dependencies...)...)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, internal.WithCache(cache))
	}
	engineOpts = append(engineOpts, opts...)

	engine, err := internal.NewEngine(cfg.Template, template, engineOpts...)
	if err != nil {
		return nil, err
	}
	for _, path := range cfg.Ignore {
		engine.IgnorePath(resolve(baseDir, path))
	}

	logger.Debug("engine ready",
		zap.String("template", templatePath),
		zap.Int("constraints", len(constraints)),
	)
	return engine, nil
}

func resolve(baseDir, path string) string {
	if baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ProcessFiles runs processor over every path, which may be a file, a
// directory or an http(s) URL. Records come back in the order of paths, and
// directory entries in lexical order.
func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine ExtractEngine,
	paths []string,
	processor Processor,
) ([]tt.Record, error) {
	var all []tt.Record
	for _, path := range paths {
		records, err := ProcessPath(ctx, logger, engine, path, processor)
		all = append(all, records...)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return all, err
		}
	}

	return all, nil
}

func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine ExtractEngine,
	path string,
	processor Processor,
) ([]tt.Record, error) {
	if fetch.IsURL(path) {
		record, err := processor(ctx, engine, path)
		logFailure(logger, path, err)
		return []tt.Record{record}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}
	if !info.IsDir() {
		if engine.IsIgnored(path) {
			return nil, nil
		}
		record, err := processor(ctx, engine, path)
		logFailure(logger, path, err)
		return []tt.Record{record}, nil
	}

	files, err := collectDocuments(engine, path)
	if err != nil {
		return nil, err
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(ProgressWriter),
		progressbar.OptionSetDescription(path),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	defer func() { _ = bar.Finish() }()

	records := make([]tt.Record, len(files))
	done := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			record, err := processor(gctx, engine, file)
			logFailure(logger, file, err)
			records[i] = record
			done[i] = true
			_ = bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return completed(records, done), err
	}
	if err := ctx.Err(); err != nil {
		return completed(records, done), err
	}

	return records, nil
}

func completed(records []tt.Record, done []bool) []tt.Record {
	out := make([]tt.Record, 0, len(records))
	for i, r := range records {
		if done[i] {
			out = append(out, r)
		}
	}
	return out
}

func collectDocuments(engine ExtractEngine, root string) ([]string, error) {
	found, err := scanner.New(root, scanner.WithSkip(engine.IsIgnored)).Scan()
	if err != nil {
		return nil, fmt.Errorf("error walking %s: %w", root, err)
	}
	files := make([]string, len(found))
	for i, f := range found {
		files[i] = f.Path
	}
	return files, nil
}

func logFailure(logger *zap.Logger, source string, err error) {
	if err != nil && logger != nil {
		logger.Error("Error processing source", zap.String("source", source), zap.Error(err))
	}
}

// ProcessSources matches in-memory documents one after another.
func ProcessSources(ctx context.Context, engine ExtractEngine, sources []Source) ([]tt.Record, error) {
	records := make([]tt.Record, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		records = append(records, engine.RunSource(ctx, src.Name, src.Content, src.ContentType))
	}
	return records, nil
}

func ProcessFile(ctx context.Context, engine ExtractEngine, path string) (tt.Record, error) {
	return engine.Run(ctx, path)
}
