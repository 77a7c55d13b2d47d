package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	tt "github.com/gnolang/revxslt/internal/types"
)

// StartWatching re-extracts documents under the watch directories whenever
// they are written or created. It returns once the watcher is set up.
func (e *Engine) StartWatching(ctx context.Context) error {
	if e.watcher == nil {
		return fmt.Errorf("no directories to watch")
	}
	if e.isWatching {
		return fmt.Errorf("already watching")
	}

	for _, dir := range e.watchDirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return nil
			}
			if e.IsIgnored(path) {
				return filepath.SkipDir
			}
			return e.watcher.Add(path)
		})
		if err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	e.isWatching = true
	go e.watchLoop(ctx)
	return nil
}

func (e *Engine) StopWatching() error {
	if !e.isWatching {
		e.logger.Warn("not watching")
		return nil
	}

	e.isWatching = false
	return e.watcher.Close()
}

func (e *Engine) watchLoop(ctx context.Context) {
	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		for _, timer := range pending {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			if !e.wantsEvent(event) {
				continue
			}
			// several writes in a short burst count as one change
			mu.Lock()
			if timer, ok := pending[event.Name]; ok {
				timer.Stop()
			}
			name := event.Name
			pending[name] = time.AfterFunc(e.debounce, func() {
				mu.Lock()
				delete(pending, name)
				mu.Unlock()
				e.handleFileEvent(ctx, name)
			})
			mu.Unlock()
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.logger.Error("watch error", zap.Error(err))
		}
	}
}

func (e *Engine) wantsEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	return IsDocument(event.Name) && !e.IsIgnored(event.Name)
}

func (e *Engine) handleFileEvent(ctx context.Context, filename string) {
	record, err := e.Run(ctx, filename)
	if err != nil {
		e.logger.Error("error processing file", zap.String("file", filename), zap.Error(err))
		return
	}
	e.reportRecord(record)
}

func (e *Engine) reportRecord(record tt.Record) {
	e.logger.Info("extracted",
		zap.String("source", record.Source),
		zap.String("status", string(record.Status)),
		zap.Int("bindings", len(record.Bindings)),
		zap.Duration("duration", record.Duration),
	)
	if e.onRecord != nil {
		e.onRecord(record)
	}
}

// Poll fetches and matches every URL once per interval until ctx is done.
// The first round starts immediately.
func (e *Engine) Poll(ctx context.Context, urls []string, every time.Duration) error {
	if len(urls) == 0 {
		return nil
	}
	if every <= 0 {
		return fmt.Errorf("invalid poll interval %s", every)
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	for _, url := range urls {
		_, err := s.NewJob(
			gocron.DurationJob(every),
			gocron.NewTask(func() { e.pollOnce(ctx, url) }),
			gocron.WithStartAt(gocron.WithStartImmediately()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithName(url),
		)
		if err != nil {
			_ = s.Shutdown()
			return fmt.Errorf("failed to schedule %s: %w", url, err)
		}
	}

	s.Start()
	<-ctx.Done()

	if err := s.Shutdown(); err != nil {
		e.logger.Warn("scheduler shutdown", zap.Error(err))
	}
	return nil
}

func (e *Engine) pollOnce(ctx context.Context, url string) {
	record, err := e.Run(ctx, url)
	if err != nil {
		e.logger.Error("error fetching document", zap.String("url", url), zap.Error(err))
		return
	}
	e.reportRecord(record)
}
