package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/tollgate/core"
	"github.com/layer-3/tollgate/internal/telemetry"
	"github.com/layer-3/tollgate/ports"
	"github.com/rs/zerolog"
)

const (
	// DefaultStoreTimeout bounds every session store call
	DefaultStoreTimeout = 250 * time.Millisecond

	// TokenType is the token type reported to clients at login
	TokenType = "Bearer"

	bearerPrefix = "Bearer "
)

// LoginResult is returned to a client after a successful login
type LoginResult struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
	Identity  core.Identity
}

// ExpiresIn returns the remaining absolute token lifetime relative to now in whole seconds
func (r LoginResult) ExpiresIn(now time.Time) int64 {
	remaining := r.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int64(remaining / time.Second)
}

// Option customizes an AuthService
type Option func(*AuthService)

// WithStoreTimeout sets the bound applied to each session store call
func WithStoreTimeout(d time.Duration) Option {
	return func(s *AuthService) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer ports.Tokenizer
	sessions  ports.SessionStore
	verifier  ports.CredentialVerifier
	eventPub  ports.EventPublisher
	metrics   *telemetry.Metrics

	storeTimeout time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	sessions ports.SessionStore,
	verifier ports.CredentialVerifier,
	eventPub ports.EventPublisher,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		tokenizer:    tokenizer,
		sessions:     sessions,
		verifier:     verifier,
		eventPub:     eventPub,
		metrics:      telemetry.GetMetrics(),
		storeTimeout: DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies the credentials with the user directory and starts a session
func (s *AuthService) Login(ctx context.Context, identifier, password string) (LoginResult, error) {
	if s.verifier == nil {
		return LoginResult{}, errors.New("no credential verifier configured")
	}

	principal, err := s.verifier.VerifyCredentials(ctx, identifier, password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			return LoginResult{}, core.ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("failed to verify credentials: %w", err)
	}

	return s.IssueFor(ctx, principal)
}

// IssueFor issues a token for an already verified principal and starts its idle session.
// No token is returned unless the session record was written.
func (s *AuthService) IssueFor(ctx context.Context, principal core.Principal) (LoginResult, error) {
	token, id, err := s.tokenizer.Issue(principal.Subject, principal.Claims)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to issue token: %w", err)
	}

	err = s.withStoreTimeout(ctx, func(ctx context.Context) error {
		return s.sessions.Start(ctx, id.TokenID, principal.Subject)
	})
	if err != nil {
		s.metrics.RecordStoreError(ctx, "start")
		return LoginResult{}, fmt.Errorf("failed to start session: %w", err)
	}
	s.metrics.SessionsStarted.Add(ctx, 1)

	if err := s.eventPub.PublishSessionStarted(ctx, principal.Subject, id.TokenID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("token_id", id.TokenID).Msg("failed to publish session started event")
	}

	return LoginResult{
		Token:     token,
		TokenType: TokenType,
		ExpiresAt: id.ExpiresAt,
		Identity:  id,
	}, nil
}

// Authenticate decides whether a request carrying the given Authorization header
// value is allowed. Exactly one token verification and at most one session touch
// happen per call. Every failure is a rejection; nothing is retried.
func (s *AuthService) Authenticate(ctx context.Context, authorization string) (id core.Identity, rej *core.Rejection) {
	defer func() {
		if r := recover(); r != nil {
			id = core.Identity{}
			rej = core.Reject(core.ReasonInvalidCredential, fmt.Errorf("panic during authentication: %v", r))
		}
		if rej != nil {
			s.metrics.RecordRejected(ctx, rej.Reason.String())
			return
		}
		s.metrics.RecordAllowed(ctx)
	}()

	token, ok := BearerToken(authorization)
	if !ok {
		return core.Identity{}, core.Reject(core.ReasonMissingCredential, nil)
	}

	id, err := s.tokenizer.Verify(token)
	if err != nil {
		return core.Identity{}, core.Reject(core.ReasonFor(err), err)
	}

	var live bool
	err = s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var touchErr error
		live, touchErr = s.sessions.Touch(ctx, id.TokenID)
		return touchErr
	})
	if err != nil {
		s.metrics.RecordStoreError(ctx, "touch")
		zerolog.Ctx(ctx).Warn().Err(err).Str("token_id", id.TokenID).Msg("session store unavailable, denying request")
		return core.Identity{}, core.Reject(core.ReasonStoreUnavailable, err)
	}
	if !live {
		return core.Identity{}, core.Reject(core.ReasonSessionExpired, core.ErrSessionExpired)
	}

	return id, nil
}

// Logout ends the session of the presented token without verifying it.
// Unknown sessions are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	tokenID, err := s.tokenizer.ExtractTokenID(token)
	if err != nil {
		return err
	}
	return s.EndSession(ctx, tokenID)
}

// EndSession deletes the session record of tokenID
func (s *AuthService) EndSession(ctx context.Context, tokenID string) error {
	var (
		sess  core.Session
		found bool
	)
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var lookupErr error
		sess, found, lookupErr = s.sessions.Lookup(ctx, tokenID)
		if lookupErr != nil {
			return lookupErr
		}
		return s.sessions.End(ctx, tokenID)
	})
	if err != nil {
		s.metrics.RecordStoreError(ctx, "end")
		return fmt.Errorf("failed to end session: %w", err)
	}
	if !found {
		return nil
	}
	s.metrics.SessionsEnded.Add(ctx, 1)

	if err := s.eventPub.PublishSessionEnded(ctx, sess.Subject, tokenID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("token_id", tokenID).Msg("failed to publish session ended event")
	}

	return nil
}

// SessionStatus reports the session record of tokenID without refreshing it
func (s *AuthService) SessionStatus(ctx context.Context, tokenID string) (core.Session, bool, error) {
	var (
		sess  core.Session
		found bool
	)
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var lookupErr error
		sess, found, lookupErr = s.sessions.Lookup(ctx, tokenID)
		return lookupErr
	})
	if err != nil {
		s.metrics.RecordStoreError(ctx, "lookup")
		return core.Session{}, false, fmt.Errorf("failed to look up session: %w", err)
	}
	return sess, found, nil
}

// withStoreTimeout runs fn with a context bounded by the store timeout.
// A timeout or cancellation is reported as core.ErrStoreUnavailable.
func (s *AuthService) withStoreTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrStoreUnavailable) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, ctxErr)
	}
	return err
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(authorization string) (string, bool) {
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(authorization[len(bearerPrefix):])
	if token == "" {
		return "", false
	}

	return token, true
}
