package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnolang/revxslt/formatter"
	"github.com/gnolang/revxslt/internal"
	"github.com/gnolang/revxslt/internal/store"
	tt "github.com/gnolang/revxslt/internal/types"
)

var pollEvery time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dirs or urls...]",
	Short: "Re-extract documents as they change",
	Long: `Watch directories for written documents and poll URLs at a fixed
interval, printing a record for each extraction until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		config, baseDir, err := loadConfig(cfgFile, templateFlag)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}

		var saver store.Store
		if dsn := firstNonEmpty(storeDSN, config.Store); dsn != "" {
			saver, err = store.Open(ctx, dsn)
			if err != nil {
				logger.Fatal("Failed to open store", zap.Error(err))
			}
			defer saver.Close()
		}

		urls, dirs := splitSources(args)
		engine, err := newEngine(config, baseDir,
			internal.WithWatchDirs(dirs...),
			internal.WithRecordHandler(recordPrinter(ctx, saver)),
		)
		if err != nil {
			logger.Fatal("Failed to initialize engine", zap.Error(err))
		}

		if err := runWatch(ctx, engine, dirs, urls, pollEvery); err != nil {
			logger.Error("Watch failed", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	watchCmd.Flags().DurationVar(&pollEvery, "every", 10*time.Minute, "Polling interval for URLs")
	watchCmd.Flags().StringVar(&storeDSN, "store", "", "Save records to a SQLite path or redis:// URL")
}

type watcher interface {
	StartWatching(ctx context.Context) error
	StopWatching() error
	Poll(ctx context.Context, urls []string, every time.Duration) error
}

func runWatch(ctx context.Context, w watcher, dirs, urls []string, every time.Duration) error {
	if len(dirs) > 0 {
		if err := w.StartWatching(ctx); err != nil {
			return err
		}
		defer func() { _ = w.StopWatching() }()
		logger.Info("watching", zap.Strings("dirs", dirs))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Poll(gctx, urls, every)
	})
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

func recordPrinter(ctx context.Context, saver store.Store) func(tt.Record) {
	var mu sync.Mutex
	return func(r tt.Record) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Print(formatter.GenerateFormattedRecords([]tt.Record{r}))
		if saver != nil {
			if err := saver.Save(ctx, r); err != nil {
				logger.Error("Error saving record", zap.String("source", r.Source), zap.Error(err))
			}
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
