// Package db opens and health-checks the pooled relational store handle.
// Dialing is retried under the bounded-backoff policy; authentication
// rejections are surfaced immediately.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/blogcore/internal/common"
	"github.com/dmitrijs2005/blogcore/internal/config"
	"github.com/dmitrijs2005/blogcore/internal/db/migrations"
	"github.com/dmitrijs2005/blogcore/internal/retryx"
)

const (
	pingTimeout   = 3 * time.Second
	healthTimeout = 1 * time.Second
)

// Open connects to Postgres using the configured DSN and pool size. The
// initial ping is retried under policy; the returned handle is safe for
// concurrent use and stays open for the process lifetime.
func Open(ctx context.Context, cfg *config.Config, policy retryx.Policy) (*sql.DB, error) {
	sqlDB, err := sql.Open("pgx", cfg.DatabaseDSN())
	if err != nil {
		return nil, &common.ConnectionError{Store: "postgres", Kind: common.ConnUnreachable, Err: err}
	}

	sqlDB.SetMaxOpenConns(cfg.DBPoolSize)
	sqlDB.SetMaxIdleConns(cfg.DBPoolSize)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	err = policy.Do(ctx, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()

		if err := sqlDB.PingContext(pingCtx); err != nil {
			cerr := Classify(err)
			if cerr.Kind == common.ConnAuthRejected {
				return cerr
			}
			return retryx.Retryable(cerr)
		}
		return nil
	})
	if err != nil {
		_ = sqlDB.Close()
		var cerr *common.ConnectionError
		if errors.As(err, &cerr) {
			return nil, cerr
		}
		return nil, &common.ConnectionError{Store: "postgres", Kind: common.ConnUnreachable, Err: err}
	}

	return sqlDB, nil
}

// Classify maps a driver error onto the connection-failure taxonomy.
func Classify(err error) *common.ConnectionError {
	kind := common.ConnUnreachable

	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && (pgErr.Code == "28000" || pgErr.Code == "28P01"):
		kind = common.ConnAuthRejected
	case errors.Is(err, context.DeadlineExceeded):
		kind = common.ConnTimeout
	}

	return &common.ConnectionError{Store: "postgres", Kind: kind, Err: err}
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, sqlDB *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, sqlDB, ".")
}

// HealthCheck reports whether the store answers a ping within the health
// timeout. Intended for liveness probes; never blocks past the timeout.
func HealthCheck(ctx context.Context, sqlDB *sql.DB) bool {
	pingCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return sqlDB.PingContext(pingCtx) == nil
}
