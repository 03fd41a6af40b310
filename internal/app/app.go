package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-dispatch/internal/auth"
	"github.com/vovakirdan/wirechat-dispatch/internal/config"
	"github.com/vovakirdan/wirechat-dispatch/internal/core"
	"github.com/vovakirdan/wirechat-dispatch/internal/notify"
	"github.com/vovakirdan/wirechat-dispatch/internal/presence"
	"github.com/vovakirdan/wirechat-dispatch/internal/service/servers"
	"github.com/vovakirdan/wirechat-dispatch/internal/store"
	"github.com/vovakirdan/wirechat-dispatch/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-dispatch/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	dispatcher      *core.Dispatcher
	store           store.Store
	presence        presence.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	presences, err := newPresence(ctx, cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})

	hub := core.NewHub(logger)

	var pusher core.Pusher = notify.NopPusher{}
	if cfg.PushEnabled {
		pusher = notify.NewPushSender(st, hub, notify.LogTransport{Log: logger}, logger)
	}

	dispatcher := core.NewDispatcher(st, core.NewMentionResolver(st), hub, notify.NewService(st, logger), pusher, logger)

	server := transporthttp.NewServer(cfg, transporthttp.Deps{
		Auth:       authService,
		Store:      st,
		Hub:        hub,
		Dispatcher: dispatcher,
		Servers:    servers.New(st, hub, presences, dispatcher, logger),
		Presence:   presences,
	}, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		dispatcher:      dispatcher,
		store:           st,
		presence:        presences,
		log:             logger,
	}, nil
}

func newPresence(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (presence.Store, error) {
	if cfg.RedisURL == "" {
		logger.Info().Msg("presence kept in memory")
		return presence.NewMemoryStore(), nil
	}
	rs, err := presence.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("init presence: %w", err)
	}
	logger.Info().Msg("presence backed by redis")
	return rs, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		// Let in-flight fan-outs finish before the store goes away.
		if err := a.dispatcher.Wait(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("fan-out still running at shutdown")
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if err := a.presence.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close presence store")
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
