// Package app initializes and runs the backend process. It drives the
// bootstrap sequence, exposes the gRPC health endpoint that flips to
// SERVING once startup completes, and handles graceful shutdown.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/blogcore/internal/bootstrap"
	"github.com/dmitrijs2005/blogcore/internal/logging"
	"github.com/dmitrijs2005/blogcore/internal/retryx"
)

type App struct {
	logger logging.Logger
	steps  bootstrap.Steps
	policy retryx.Policy
}

func NewApp(logger logging.Logger) *App {
	return &App{
		logger: logger,
		steps:  bootstrap.DefaultSteps(),
		policy: retryx.DefaultPolicy(),
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run bootstraps the backing services and then serves the health endpoint
// until the context is cancelled or a signal arrives. The bootstrap error,
// if any, is returned unwrapped for the caller to classify.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	rt, err := bootstrap.Start(ctx, app.logger, app.steps, app.policy)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			app.logger.Error(ctx, "closing store handles", "error", cerr)
		}
	}()

	hs := NewHealthServer(rt.Config.GRPCHealthAddr, app.logger)
	return hs.Run(ctx, rt.Ready())
}
