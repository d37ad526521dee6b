// Package server initializes and runs the chat relay server: it wires the
// Postgres store, the session token service, the connection registry and the
// websocket relay, and handles graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akruglov/chatline/internal/logging"
	"github.com/akruglov/chatline/internal/server/auth"
	"github.com/akruglov/chatline/internal/server/config"
	"github.com/akruglov/chatline/internal/server/registry"
	"github.com/akruglov/chatline/internal/server/relay"
	"github.com/akruglov/chatline/internal/server/store"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  *store.PostgresStore
	relay  *relay.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON()

	st, err := store.NewPostgresStore(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	tokens := auth.NewService(c.TokenValidity)
	reg := registry.New()

	srv := relay.NewServer(c.Addr, relay.Options{
		ReadLimit:  c.ReadLimit,
		SendBuffer: c.SendBuffer,
	}, reg, tokens, st, logger)

	return &App{config: c, logger: logger, store: st, relay: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "addr", app.config.Addr)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.relay.Run(ctx); err != nil {
			app.logger.Error(ctx, "relay stopped", "err", err)
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "store close failed", "err", err)
	}
}
