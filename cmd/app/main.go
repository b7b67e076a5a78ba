package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dino-video-labeler/internal/application"
	"dino-video-labeler/internal/config"
	"dino-video-labeler/internal/domain/ports/adapter"
	"dino-video-labeler/internal/infra/api"
	"dino-video-labeler/internal/infra/logging"
	"dino-video-labeler/internal/infra/metrics"
	"dino-video-labeler/internal/infra/ratelimit"
	red "dino-video-labeler/internal/infra/redis"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// set via -ldflags
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	labeler, err := application.NewLabeler(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info().
		Str("model", cfg.NVCF.Model).
		Str("inference_url", cfg.NVCF.InferenceURL).
		Str("api_key", logging.Redact(cfg.NVCF.APIKey, false)).
		Int("concurrent_limit", cfg.NVCF.ConcurrentLimit).
		Msg("nvcf client ready")

	g, ctx := errgroup.WithContext(ctx)

	var limiter adapter.RateLimiter
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		limiter = red.NewRateLimiter(rc)
		logger.Info().Msg("rate limiting via redis")
	} else {
		local := ratelimit.NewLocal(3 * cfg.RateLimit.Window)
		g.Go(func() error {
			local.Run(ctx, cfg.RateLimit.Window)
			return nil
		})
		limiter = local
		logger.Info().Msg("rate limiting in process")
	}

	srv := api.NewServer(labeler.UC, limiter, api.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		RateLimit:      cfg.RateLimit.Limit,
		RateWindow:     cfg.RateLimit.Window,
		LabelTimeout:   labelTimeout(cfg.Server.WriteTimeout),
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// labelTimeout leaves room under the server write deadline, which starts
// before the handler runs, so a late run still gets its response written.
func labelTimeout(write time.Duration) time.Duration {
	if write <= 0 {
		return 0
	}
	margin := write / 10
	if margin < time.Second {
		margin = time.Second
	}
	if margin > 30*time.Second {
		margin = 30 * time.Second
	}
	if write <= margin {
		return write / 2
	}
	return write - margin
}
