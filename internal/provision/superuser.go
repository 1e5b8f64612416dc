// Package provision seeds the administrative account at startup. The
// operation is idempotent across restarts and safe against concurrently
// starting server processes.
package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/blogcore/internal/auth"
	"github.com/dmitrijs2005/blogcore/internal/common"
	"github.com/dmitrijs2005/blogcore/internal/config"
	"github.com/dmitrijs2005/blogcore/internal/users"
)

// Result reports what EnsureSuperuser did.
type Result string

const (
	ResultCreated       Result = "created"
	ResultAlreadyExists Result = "already-exists"
)

// Kind classifies a provisioning failure.
type Kind string

const (
	KindStoreUnavailable    Kind = "store-unavailable"
	KindConstraintViolation Kind = "constraint-violation"
)

// ProvisionError reports a failed provisioning attempt.
type ProvisionError struct {
	Kind Kind
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision: superuser provisioning failed (%s): %v", e.Kind, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// EnsureSuperuser makes sure exactly one account exists for the configured
// superuser email. An existing account is left untouched even when its
// role or description differ from the configuration; drift is never
// silently overwritten on restart. A unique-constraint failure during the
// insert means a sibling process won the startup race and counts as
// already-exists.
func EnsureSuperuser(ctx context.Context, cfg *config.Config, repo users.Repository) (Result, error) {
	_, err := repo.GetByEmail(ctx, cfg.SuperuserEmail)
	if err == nil {
		return ResultAlreadyExists, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", &ProvisionError{Kind: KindStoreUnavailable, Err: err}
	}

	hash, err := auth.HashPassword(cfg.SuperuserPassword)
	if err != nil {
		return "", fmt.Errorf("provision: hashing superuser password: %w", err)
	}

	user := &users.User{
		Name:            cfg.SuperuserName,
		Email:           cfg.SuperuserEmail,
		PasswordHash:    hash,
		Role:            cfg.SuperuserRole,
		RoleDescription: cfg.SuperuserRoleDescription,
	}
	if _, err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return ResultAlreadyExists, nil
		}
		return "", &ProvisionError{Kind: KindStoreUnavailable, Err: err}
	}

	return ResultCreated, nil
}
