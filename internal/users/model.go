package users

import "time"

// User is a stored account. Email is the unique key.
type User struct {
	ID              string
	Name            string
	Email           string
	PasswordHash    string
	Role            string
	RoleDescription string
	CreatedAt       time.Time
}
