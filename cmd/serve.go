package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/sheetplan/internal/api"
	"github.com/nibzard/sheetplan/internal/config"
	"github.com/nibzard/sheetplan/internal/store"
)

// serveCommand runs the HTTP import API until ctx is cancelled.
func serveCommand(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("sheetplan serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.Server.ListenAddr, "HTTP listen address")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening plan store: %w", err)
	}
	defer db.Close()

	router := api.NewRouter(api.Options{
		Plans:        store.NewPlanStore(db),
		Ping:         db.PingContext,
		Decode:       cfg.DecodeOptions(time.Time{}),
		Limits:       cfg.Limits(),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		APIKey:       cfg.Server.APIKey,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", *addr, "db", cfg.DBPath, "auth", cfg.Server.APIKey != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
