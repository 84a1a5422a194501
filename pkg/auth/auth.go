package auth

import (
	"errors"
	"net/http"
)

// ErrUnauthorized error fired when request credentials do not match
var ErrUnauthorized = errors.New("User unauthorized")

// Authenticator gates a request. Implementations inspect whatever credential
// material the request carries and return ErrUnauthorized on mismatch.
type Authenticator interface {
	Authenticate(r *http.Request) error
}

// Static authenticates against a fixed username/password pair carried in the
// "user" and "pass" request headers. A placeholder, not production auth.
type Static struct {
	User string
	Pass string
}

// NewStatic returns a header-based static credential Authenticator.
func NewStatic(user, pass string) Static {
	return Static{User: user, Pass: pass}
}

// Authenticate implements Authenticator.
func (s Static) Authenticate(r *http.Request) error {
	if r.Header.Get("user") != s.User || r.Header.Get("pass") != s.Pass {
		return ErrUnauthorized
	}
	return nil
}
