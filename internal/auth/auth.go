// Package auth defines the credential and feature-flag boundary the console
// calls into. The console never stores users itself; it checks credentials
// and reads flags through these interfaces.
package auth

import "context"

// Role labels what a signed-in session may do.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleTrader Role = "trader"
	RoleAdmin  Role = "admin"
)

// Session is the result of a successful credential check.
type Session struct {
	User string
	Role Role
}

// CredentialChecker verifies a username, password and one-time code.
type CredentialChecker interface {
	Check(ctx context.Context, user, pass, code string) (Session, error)
}

// FlagReader reads operator feature flags. A missing flag is disabled.
type FlagReader interface {
	Enabled(ctx context.Context, name string) (bool, error)
}

// User is one managed account record.
type User struct {
	Name       string
	Role       Role
	TOTPSecret string
}

// UserStore manages accounts. The console core only consumes it; concrete
// administration lives in the UI layer.
type UserStore interface {
	List(ctx context.Context) ([]User, error)
	Put(ctx context.Context, u User) error
	Delete(ctx context.Context, name string) error
}
