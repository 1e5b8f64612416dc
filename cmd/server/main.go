package main

import (
	"context"
	"errors"
	"os"

	"github.com/dmitrijs2005/blogcore/internal/app"
	"github.com/dmitrijs2005/blogcore/internal/auth"
	"github.com/dmitrijs2005/blogcore/internal/config"
	"github.com/dmitrijs2005/blogcore/internal/logging"
)

func main() {

	ctx := context.Background()
	logger := logging.NewJSONLogger(os.Stdout)

	a := app.NewApp(logger)

	if err := a.Run(ctx); err != nil {
		logger.Error(ctx, "startup failed", "error", err)

		// Misconfiguration is an operator mistake; distinguish it from
		// infrastructure failures in the exit code.
		var cfgErr *config.ConfigError
		var secErr *auth.SecretError
		if errors.As(err, &cfgErr) || errors.As(err, &secErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}

}
