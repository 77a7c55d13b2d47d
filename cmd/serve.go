package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/revxslt/internal"
	"github.com/gnolang/revxslt/internal/metrics"
	"github.com/gnolang/revxslt/internal/server"
	"github.com/gnolang/revxslt/internal/store"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the extraction API over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		config, baseDir, err := loadConfig(cfgFile, templateFlag)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}

		m := metrics.New()
		engine, err := newEngine(config, baseDir, internal.WithObserver(m))
		if err != nil {
			logger.Fatal("Failed to initialize engine", zap.Error(err))
		}

		opts := []server.Option{
			server.WithMetrics(m.Handler()),
			server.WithLogger(logger),
		}
		if dsn := firstNonEmpty(storeDSN, config.Store); dsn != "" {
			s, err := store.Open(ctx, dsn)
			if err != nil {
				logger.Fatal("Failed to open store", zap.Error(err))
			}
			defer s.Close()
			opts = append(opts, server.WithStore(s))
		}

		srv := &http.Server{
			Addr:              listenAddr,
			Handler:           server.New(engine, opts...).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		if err := serve(ctx, srv); err != nil {
			logger.Error("Server failed", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&storeDSN, "store", "", "Save records to a SQLite path or redis:// URL")
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
