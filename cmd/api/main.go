package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shippingbox/internal/box"
	"shippingbox/internal/config"
	"shippingbox/internal/kv"
	"shippingbox/internal/rate"
	"shippingbox/internal/server"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := kv.Open(openCtx, cfg.Store())
	cancel()
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl := box.NewController(box.NewBlobRepository(store), rate.NewByName(cfg.RateProvider))

	cache := box.NewViewCache(ctrl, logger)
	if err := cache.Load(ctx); err != nil {
		// The list page retries on every visit.
		logger.Warn("initial load failed", zap.Error(err))
	}

	drafts := box.NewDrafts(cfg.HealDelay, logger)
	defer drafts.Close()

	key := []byte(cfg.SessionKey)
	if len(key) == 0 {
		logger.Warn("SESSION_KEY not set; sessions will not survive a restart")
		key = securecookie.GenerateRandomKey(32)
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.New(server.Deps{
			Controller: ctrl,
			Cache:      cache,
			Drafts:     drafts,
			Sessions:   server.NewSessionStore(key),
			Logger:     logger,
		}),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.StoreDriver),
			zap.String("rate_provider", cfg.RateProvider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
