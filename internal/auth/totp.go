package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/pquerna/otp/totp"
)

// ErrBadCredentials is returned for any failed check. The caller gets no
// hint about which factor failed.
var ErrBadCredentials = errors.New("auth: bad credentials")

// TOTPChecker validates a single configured operator account with a
// password and a time-based one-time code.
type TOTPChecker struct {
	user   string
	pass   string
	secret string
	role   Role
}

// NewTOTPChecker creates a checker for one account. An empty secret skips
// the second factor, for local development.
func NewTOTPChecker(user, pass, totpSecret string, role Role) *TOTPChecker {
	return &TOTPChecker{user: user, pass: pass, secret: totpSecret, role: role}
}

// Check verifies all factors in constant time with respect to the password.
func (c *TOTPChecker) Check(ctx context.Context, user, pass, code string) (Session, error) {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.user)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(c.pass)) == 1
	if !userOK || !passOK {
		return Session{}, ErrBadCredentials
	}
	if c.secret != "" && !totp.Validate(code, c.secret) {
		return Session{}, ErrBadCredentials
	}
	return Session{User: c.user, Role: c.role}, nil
}
