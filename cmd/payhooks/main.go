// payhooks receives payment processor webhooks, reconciles them against the
// order ledger and fans out shipment and customer notification side effects.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goliatone/go-payhooks/adapters/gologger"
	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/security"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("PAYHOOKS_CONFIG"), "Path to the YAML config file")
	logLevel := flag.String("log-level", envOr("PAYHOOKS_LOG_LEVEL", "info"), "Log level: trace, debug, info, warn, error")
	addr := flag.String("addr", "", "HTTP listen address, overrides http.addr")
	flag.Parse()

	logger := gologger.NewSlogLogger(os.Stderr, gologger.ParseLevel(*logLevel)).Named("payhooks")
	if err := run(*configPath, strings.TrimSpace(*addr), logger); err != nil {
		logger.Fatal("payhooks: exited with error", "error", err.Error())
	}
}

func run(configPath string, addr string, logger *gologger.SlogLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.HTTP.Addr = addr
	}

	application, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           application.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("payhooks: listening",
			"addr", cfg.HTTP.Addr,
			"webhook_path", cfg.Webhook.Path,
			"side_effects", cfg.SideEffects.Mode,
			"admin", cfg.HTTP.AdminToken != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("payhooks: shutting down")
	case err := <-serveErr:
		if err != nil {
			_ = application.shutdown(context.Background())
			return fmt.Errorf("payhooks: serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	httpErr := srv.Shutdown(shutdownCtx)
	appErr := application.shutdown(shutdownCtx)
	return errors.Join(httpErr, appErr)
}

// loadConfig resolves the config and opens any sealed secrets in it.
func loadConfig(ctx context.Context, path string) (core.Config, error) {
	cfg, err := core.LoadConfig(ctx, path)
	if err != nil {
		return core.Config{}, err
	}
	secrets, err := security.NewSealedSecretsFromEnv(os.LookupEnv)
	if err != nil {
		return core.Config{}, err
	}
	if err := secrets.OpenConfig(ctx, &cfg); err != nil {
		return core.Config{}, err
	}
	if strings.TrimSpace(cfg.Webhook.Secret) == "" {
		return core.Config{}, fmt.Errorf("payhooks: webhook.secret is required")
	}
	return cfg, nil
}

func envOr(key string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
