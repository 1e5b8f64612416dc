package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/blogcore/internal/auth"
	"github.com/dmitrijs2005/blogcore/internal/cache"
	"github.com/dmitrijs2005/blogcore/internal/config"
	"github.com/dmitrijs2005/blogcore/internal/logging"
	"github.com/dmitrijs2005/blogcore/internal/provision"
	"github.com/dmitrijs2005/blogcore/internal/retryx"
	"github.com/dmitrijs2005/blogcore/internal/users"
)

func testConfig(timeout time.Duration) *config.Config {
	return &config.Config{
		ProjectTitle:         "test",
		DBHost:               "localhost",
		RedisHost:            "localhost",
		SecretKey:            "0123456789abcdef0123456789abcdef",
		Algorithm:            "HS256",
		AccessTokenValidity:  time.Minute,
		RefreshTokenValidity: time.Hour,
		BootstrapTimeout:     timeout,
	}
}

func testLogger() logging.Logger {
	return logging.NewJSONLogger(io.Discard)
}

// stepRecorder produces a Steps value whose store handles are inert and
// records the order in which steps run.
type stepRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *stepRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, name)
}

func (r *stepRecorder) steps(t *testing.T, cfg *config.Config) Steps {
	t.Helper()

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return Steps{
		LoadConfig: func() (*config.Config, error) {
			r.record(StepConfig)
			return cfg, nil
		},
		MaterializeSecret: func(cfg *config.Config) (*auth.Manager, error) {
			r.record(StepSecrets)
			return auth.Materialize(cfg)
		},
		OpenRelational: func(ctx context.Context, cfg *config.Config, policy retryx.Policy) (*sql.DB, error) {
			r.record(StepRelational)
			return sqlDB, nil
		},
		OpenCache: func(ctx context.Context, cfg *config.Config, policy retryx.Policy) (*cache.Cache, error) {
			r.record(StepCache)
			return &cache.Cache{}, nil
		},
		EnsureSuperuser: func(ctx context.Context, cfg *config.Config, repo users.Repository) (provision.Result, error) {
			r.record(StepSuperuser)
			return provision.ResultCreated, nil
		},
	}
}

func TestStart_Success(t *testing.T) {
	rec := &stepRecorder{}
	cfg := testConfig(5 * time.Second)

	rt, err := Start(context.Background(), testLogger(), rec.steps(t, cfg), retryx.DefaultPolicy())
	require.NoError(t, err)

	select {
	case <-rt.Ready():
	default:
		t.Fatal("ready channel not closed after successful bootstrap")
	}

	assert.Same(t, cfg, rt.Config)
	assert.NotNil(t, rt.Secrets)
	assert.NotNil(t, rt.DB)
	assert.NotNil(t, rt.Cache)
	assert.Equal(t, provision.ResultCreated, rt.Provision)

	// Provisioning must run last: it needs the relational handle, and the
	// ready signal must not fire before it completes.
	require.NotEmpty(t, rec.order)
	assert.Equal(t, StepConfig, rec.order[0])
	assert.Equal(t, StepSuperuser, rec.order[len(rec.order)-1])
}

func TestStart_ConfigFailureAbortsEverything(t *testing.T) {
	rec := &stepRecorder{}
	steps := rec.steps(t, nil)

	wantErr := errors.New("missing variable")
	steps.LoadConfig = func() (*config.Config, error) {
		return nil, wantErr
	}

	rt, err := Start(context.Background(), testLogger(), steps, retryx.DefaultPolicy())
	require.Nil(t, rt)

	var berr *BootstrapError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, StepConfig, berr.Step)
	assert.ErrorIs(t, err, wantErr)
	assert.Empty(t, rec.order, "no later step may run after config fails")
}

func TestStart_SecretFailureIsNamed(t *testing.T) {
	rec := &stepRecorder{}
	cfg := testConfig(5 * time.Second)
	cfg.SecretKey = "short"

	rt, err := Start(context.Background(), testLogger(), rec.steps(t, cfg), retryx.DefaultPolicy())
	require.Nil(t, rt)

	var berr *BootstrapError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, StepSecrets, berr.Step)

	var serr *auth.SecretError
	assert.ErrorAs(t, err, &serr)
}

func TestStart_RelationalFailureSkipsProvisioning(t *testing.T) {
	rec := &stepRecorder{}
	cfg := testConfig(5 * time.Second)
	steps := rec.steps(t, cfg)

	wantErr := errors.New("connection refused")
	steps.OpenRelational = func(ctx context.Context, cfg *config.Config, policy retryx.Policy) (*sql.DB, error) {
		return nil, wantErr
	}

	rt, err := Start(context.Background(), testLogger(), steps, retryx.DefaultPolicy())
	require.Nil(t, rt)

	var berr *BootstrapError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, StepRelational, berr.Step)
	assert.ErrorIs(t, err, wantErr)
	assert.NotContains(t, rec.order, StepSuperuser)
}

func TestStart_TimeoutBoundsTheSequence(t *testing.T) {
	rec := &stepRecorder{}
	cfg := testConfig(50 * time.Millisecond)
	steps := rec.steps(t, cfg)

	steps.OpenRelational = func(ctx context.Context, cfg *config.Config, policy retryx.Policy) (*sql.DB, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	start := time.Now()
	rt, err := Start(context.Background(), testLogger(), steps, retryx.DefaultPolicy())
	elapsed := time.Since(start)

	require.Nil(t, rt)

	var berr *BootstrapError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, StepRelational, berr.Step)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 2*time.Second, "deadline must cut the sequence short")
}

func TestStart_SuperuserFailureClosesHandles(t *testing.T) {
	rec := &stepRecorder{}
	cfg := testConfig(5 * time.Second)
	steps := rec.steps(t, cfg)

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	steps.OpenRelational = func(ctx context.Context, cfg *config.Config, policy retryx.Policy) (*sql.DB, error) {
		return sqlDB, nil
	}
	wantErr := errors.New("insert failed")
	steps.EnsureSuperuser = func(ctx context.Context, cfg *config.Config, repo users.Repository) (provision.Result, error) {
		return "", wantErr
	}

	rt, err := Start(context.Background(), testLogger(), steps, retryx.DefaultPolicy())
	require.Nil(t, rt)

	var berr *BootstrapError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, StepSuperuser, berr.Step)
	assert.ErrorIs(t, err, wantErr)
	assert.NoError(t, mock.ExpectationsWereMet(), "relational handle must be closed on failure")
}
