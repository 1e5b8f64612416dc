// Package users stores and retrieves accounts keyed by their unique email.
package users

import "context"

// Repository is the storage contract for accounts.
//
// Create must fail with common.ErrorAlreadyExists when the email is already
// taken; GetByEmail must fail with common.ErrorNotFound when no account
// matches.
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
