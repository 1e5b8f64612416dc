// Package bootstrap runs the one-time startup sequence: load and validate
// configuration, materialize secrets and open the backing stores in
// parallel, provision the superuser, then release the ready signal the
// serving layer gates on.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/blogcore/internal/auth"
	"github.com/dmitrijs2005/blogcore/internal/cache"
	"github.com/dmitrijs2005/blogcore/internal/config"
	"github.com/dmitrijs2005/blogcore/internal/db"
	"github.com/dmitrijs2005/blogcore/internal/logging"
	"github.com/dmitrijs2005/blogcore/internal/provision"
	"github.com/dmitrijs2005/blogcore/internal/retryx"
	"github.com/dmitrijs2005/blogcore/internal/users"
)

// Step names used in BootstrapError diagnostics.
const (
	StepConfig     = "config"
	StepSecrets    = "secrets"
	StepRelational = "relational-store"
	StepCache      = "cache-store"
	StepSuperuser  = "superuser-provisioning"
)

// BootstrapError wraps the first fatal error of the sequence with the name
// of the step that produced it.
type BootstrapError struct {
	Step string
	Err  error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap: step %s failed: %v", e.Step, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// Steps holds the individual startup operations. Each field defaults to the
// real implementation; tests can substitute any of them.
type Steps struct {
	LoadConfig        func() (*config.Config, error)
	MaterializeSecret func(cfg *config.Config) (*auth.Manager, error)
	OpenRelational    func(ctx context.Context, cfg *config.Config, policy retryx.Policy) (*sql.DB, error)
	OpenCache         func(ctx context.Context, cfg *config.Config, policy retryx.Policy) (*cache.Cache, error)
	EnsureSuperuser   func(ctx context.Context, cfg *config.Config, repo users.Repository) (provision.Result, error)
}

// DefaultSteps wires the production implementations. Opening the relational
// store includes applying the embedded schema migrations.
func DefaultSteps() Steps {
	return Steps{
		LoadConfig:        config.Load,
		MaterializeSecret: auth.Materialize,
		OpenRelational: func(ctx context.Context, cfg *config.Config, policy retryx.Policy) (*sql.DB, error) {
			handle, err := db.Open(ctx, cfg, policy)
			if err != nil {
				return nil, err
			}
			if err := db.Migrate(ctx, handle); err != nil {
				_ = handle.Close()
				return nil, err
			}
			return handle, nil
		},
		OpenCache:       cache.Open,
		EnsureSuperuser: provision.EnsureSuperuser,
	}
}

// Runtime aggregates everything the serving layer needs after a successful
// bootstrap. The pooled handles belong to the bootstrap layer: workers use
// them but must not close or reconfigure them.
type Runtime struct {
	Config    *config.Config
	Secrets   *auth.Manager
	DB        *sql.DB
	Cache     *cache.Cache
	Provision provision.Result

	ready chan struct{}
}

// Ready returns the one-shot readiness gate. It is closed exactly once,
// after every startup dependency is satisfied; the serving layer must not
// accept external requests before then.
func (r *Runtime) Ready() <-chan struct{} {
	return r.ready
}

// Close releases the pooled store handles. Call on graceful shutdown only.
func (r *Runtime) Close() error {
	var errs []error
	if r.Cache != nil {
		errs = append(errs, r.Cache.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

// Start runs the startup sequence. Configuration loads first; secret
// materialization and the two store dials run concurrently since they only
// depend on configuration; superuser provisioning waits for the relational
// handle. The whole sequence is bounded by the configured bootstrap
// timeout, after which in-flight attempts are cancelled and the first
// failure is returned as a *BootstrapError.
func Start(ctx context.Context, logger logging.Logger, steps Steps, policy retryx.Policy) (*Runtime, error) {
	cfg, err := steps.LoadConfig()
	if err != nil {
		return nil, &BootstrapError{Step: StepConfig, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.BootstrapTimeout)
	defer cancel()

	logger.Info(ctx, "starting bootstrap",
		"project", cfg.ProjectTitle,
		"db_host", cfg.DBHost,
		"redis_host", cfg.RedisHost,
		"timeout", cfg.BootstrapTimeout)

	var (
		secrets     *auth.Manager
		relational  *sql.DB
		cacheHandle *cache.Cache
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := steps.MaterializeSecret(cfg)
		if err != nil {
			return &BootstrapError{Step: StepSecrets, Err: err}
		}
		secrets = m
		return nil
	})
	g.Go(func() error {
		handle, err := steps.OpenRelational(gctx, cfg, policy)
		if err != nil {
			return &BootstrapError{Step: StepRelational, Err: err}
		}
		relational = handle
		return nil
	})
	g.Go(func() error {
		handle, err := steps.OpenCache(gctx, cfg, policy)
		if err != nil {
			return &BootstrapError{Step: StepCache, Err: err}
		}
		cacheHandle = handle
		return nil
	})

	if err := g.Wait(); err != nil {
		closeHandles(relational, cacheHandle)
		return nil, asBootstrapError(err)
	}

	repo := users.NewPostgresRepository(relational)
	result, err := steps.EnsureSuperuser(ctx, cfg, repo)
	if err != nil {
		closeHandles(relational, cacheHandle)
		return nil, &BootstrapError{Step: StepSuperuser, Err: err}
	}

	rt := &Runtime{
		Config:    cfg,
		Secrets:   secrets,
		DB:        relational,
		Cache:     cacheHandle,
		Provision: result,
		ready:     make(chan struct{}),
	}
	close(rt.ready)

	logger.Info(ctx, "bootstrap complete", "superuser", string(result))
	return rt, nil
}

func closeHandles(relational *sql.DB, cacheHandle *cache.Cache) {
	if relational != nil {
		_ = relational.Close()
	}
	if cacheHandle != nil {
		_ = cacheHandle.Close()
	}
}

func asBootstrapError(err error) *BootstrapError {
	var berr *BootstrapError
	if errors.As(err, &berr) {
		return berr
	}
	return &BootstrapError{Step: "bootstrap", Err: err}
}
