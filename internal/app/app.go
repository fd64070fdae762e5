package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vkurochkin/linechat-server/internal/config"
	"github.com/vkurochkin/linechat-server/internal/core"
	"github.com/vkurochkin/linechat-server/internal/metrics"
	"github.com/vkurochkin/linechat-server/internal/transport/tcp"
)

// App wires together the registries and the transport layers.
type App struct {
	chat            *tcp.Server
	metricsServer   *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	conns := core.NewConnRegistry(cfg.MaxClients, logger)
	rooms := core.NewRoomRegistry()

	return &App{
		chat: tcp.NewServer(cfg.Addr, conns, rooms, logger),
		metricsServer: &stdhttp.Server{
			Addr:    cfg.MetricsAddr,
			Handler: metrics.Handler(),
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}
}

// Run starts the chat and metrics servers and blocks until context
// cancellation or a fatal listener error.
func (a *App) Run(ctx context.Context) error {
	if err := a.chat.Listen(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	a.log.Info().Str("addr", a.chat.Addr().String()).Msg("chat server listening")

	serverErr := make(chan error, 2)

	go func() {
		serverErr <- a.chat.Serve()
	}()

	go func() {
		a.log.Info().Str("addr", a.metricsServer.Addr).Msg("metrics server listening")
		if err := a.metricsServer.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
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
		a.log.Info().Msg("shutting down")
		a.cleanup()
		return nil
	}
}

// cleanup stops admissions, unwinds every session, and closes the
// metrics endpoint.
func (a *App) cleanup() {
	a.chat.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("failed to stop metrics server")
	}

	a.log.Info().Msg("shutdown complete")
}
