package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/park285/cheese-web/internal/archive"
	"github.com/park285/cheese-web/internal/clock"
	"github.com/park285/cheese-web/internal/config"
	"github.com/park285/cheese-web/internal/httpapi"
	"github.com/park285/cheese-web/internal/msgcat"
	"github.com/park285/cheese-web/internal/obslog"
	"github.com/park285/cheese-web/internal/session"
	"github.com/park285/cheese-web/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	if err := run(cfg); err != nil {
		obslog.L().Error("shutdown_error", zap.Error(err))
		obslog.Sync()
		os.Exit(1)
	}
}

// closer is one shutdown step, run in reverse registration order.
type closer struct {
	name string
	fn   func() error
}

func run(cfg *config.AppConfig) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []closer
	defer func() {
		var result *multierror.Error
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].fn(); cerr != nil {
				result = multierror.Append(result, fmt.Errorf("%s: %w", closers[i].name, cerr))
			}
		}
		if cerr := result.ErrorOrNil(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	kv, err := openKV(ctx, cfg)
	if err != nil {
		return err
	}
	if rkv, ok := kv.(*store.RedisKV); ok {
		closers = append(closers, closer{"redis", rkv.Close})
	}

	sess := restoreSession(ctx, kv, cfg)
	writer := store.NewWriter(kv, cfg.SessionKey)
	closers = append(closers, closer{"writer", func() error { writer.Close(); return nil }})

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}

	hub := httpapi.NewHub(0)
	closers = append(closers, closer{"hub", func() error { hub.Close(); return nil }})

	opts := []session.Option{
		session.WithPersister(writer),
		session.WithPublisher(hub),
		session.WithMessages(msgs),
		session.WithTicker(clock.NewTicker(cfg.TickInterval)),
	}
	if repo := openArchive(ctx, cfg); repo != nil {
		opts = append(opts, session.WithArchiver(repo))
		closers = append(closers, closer{"archive", repo.Close})
	}

	ctl := session.NewController(sess, opts...)
	closers = append(closers, closer{"session", func() error {
		writer.Save(ctl.Close())
		return nil
	}})
	ctl.Resume()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewServer(ctl, hub),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		obslog.L().Info("http_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		obslog.L().Info("shutdown_signal")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// websocket watchers only return once the hub closes
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openKV(ctx context.Context, cfg *config.AppConfig) (store.KV, error) {
	if cfg.RedisURL == "" {
		obslog.L().Warn("store_memory", zap.String("reason", "REDIS_URL not set; session will not survive restarts"))
		return store.NewMemoryKV(), nil
	}
	kv, err := store.NewRedisKV(ctx, cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	obslog.L().Info("store_redis", zap.String("key", cfg.SessionKey), zap.Duration("ttl", cfg.SessionTTL))
	return kv, nil
}

// restoreSession never fails: a missing or unreadable record yields a fresh game.
func restoreSession(ctx context.Context, kv store.KV, cfg *config.AppConfig) *session.Session {
	fresh := func() *session.Session {
		return session.New(session.Options{
			TimeControl:  cfg.TimeControl,
			BoardTheme:   cfg.BoardTheme,
			SoundEnabled: true,
		})
	}

	loadCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rec, err := store.Load(loadCtx, kv, cfg.SessionKey)
	switch {
	case errors.Is(err, store.ErrNoRecord):
		obslog.L().Info("session_fresh", zap.String("reason", "no record"))
		return fresh()
	case err != nil:
		obslog.L().Warn("session_restore_failed", zap.Error(err))
		return fresh()
	}

	s, err := session.FromRecord(rec, time.Now)
	if err != nil {
		obslog.L().Warn("session_restore_failed", zap.Error(err))
		return fresh()
	}
	obslog.L().Info("session_restored",
		zap.String("game_id", s.GameID()),
		zap.Int("moves", len(rec.MoveHistory)),
	)
	return s
}

func openArchive(ctx context.Context, cfg *config.AppConfig) *archive.Repository {
	if cfg.DatabaseURL == "" {
		return nil
	}
	repo, err := archive.NewRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		obslog.L().Warn("archive_disabled", zap.Error(err))
		return nil
	}
	schemaCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(schemaCtx); err != nil {
		obslog.L().Warn("archive_disabled", zap.Error(err))
		_ = repo.Close()
		return nil
	}
	return repo
}
