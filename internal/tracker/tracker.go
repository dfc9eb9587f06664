// Package tracker defines the contract bzstat expects from a bug tracker and
// the scoped login session used when queries require authentication.
package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielolaszy/bzstat/internal/logging"
	"github.com/danielolaszy/bzstat/internal/query"
	"github.com/danielolaszy/bzstat/pkg/models"
)

var (
	// ErrNoCredentials is returned when login is required but no credentials were loaded.
	ErrNoCredentials = errors.New("no credentials available to log into the bug tracker")
	// ErrAuthentication is returned when the tracker rejects a login.
	ErrAuthentication = errors.New("authentication failed")
)

// Searcher runs a single query against a tracker.
type Searcher interface {
	Query(ctx context.Context, q query.Query) ([]models.Bug, error)
}

// Authenticator logs a tracker client in and out.
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
}

// Client is a tracker that can both search and authenticate.
type Client interface {
	Searcher
	Authenticator
}

// Session is an authenticated tracker login. It is released with Close.
type Session struct {
	auth   Authenticator
	user   string
	closed bool
}

// NewSession logs in with the given credentials.
func NewSession(ctx context.Context, auth Authenticator, creds *query.Credentials) (*Session, error) {
	if creds == nil {
		return nil, ErrNoCredentials
	}

	logging.Debug("logging into bug tracker", "username", logging.MaskSensitive(creds.Username))

	if err := auth.Login(ctx, creds.Username, creds.Password); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	logging.Info("logged into bug tracker", "username", logging.MaskSensitive(creds.Username))
	return &Session{auth: auth, user: creds.Username}, nil
}

// Close logs out. Calling Close more than once is a no-op.
func (s *Session) Close(ctx context.Context) error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true

	if err := s.auth.Logout(ctx); err != nil {
		return fmt.Errorf("failed to log out of bug tracker: %w", err)
	}

	logging.Debug("logged out of bug tracker", "username", logging.MaskSensitive(s.user))
	return nil
}

// WithSession runs fn inside an authenticated session and always logs out,
// whether or not fn fails. An error from fn takes precedence over a logout error.
func WithSession(ctx context.Context, auth Authenticator, creds *query.Credentials, fn func(ctx context.Context) error) (err error) {
	session, err := NewSession(ctx, auth, creds)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := session.Close(ctx); closeErr != nil {
			if err == nil {
				err = closeErr
				return
			}
			logging.Warn("logout failed after query error", "error", closeErr)
		}
	}()

	return fn(ctx)
}
