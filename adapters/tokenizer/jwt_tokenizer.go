package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/tollgate/core"
)

// MinSecretLength is the minimum HMAC-SHA256 secret length in bytes
const MinSecretLength = 32

// Config configures the JWT tokenizer
type Config struct {
	Secret []byte        // HMAC signing secret, at least MinSecretLength bytes
	Issuer string        // iss claim written and required on verification
	TTL    time.Duration // Absolute token lifetime, no default
	Leeway time.Duration // Tolerated clock skew on expiry, zero by default
}

// Validate checks the configuration
func (c Config) Validate() error {
	if len(c.Secret) < MinSecretLength {
		return fmt.Errorf("%w: signing secret must be at least %d bytes", core.ErrInvalidConfig, MinSecretLength)
	}
	if c.Issuer == "" {
		return fmt.Errorf("%w: issuer is required", core.ErrInvalidConfig)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("%w: token TTL must be positive", core.ErrInvalidConfig)
	}
	if c.Leeway < 0 {
		return fmt.Errorf("%w: leeway must not be negative", core.ErrInvalidConfig)
	}
	return nil
}

// Option customizes a JWTTokenizer
type Option func(*JWTTokenizer)

// WithClock replaces the wall clock used for issuing and verifying tokens
func WithClock(now func() time.Time) Option {
	return func(j *JWTTokenizer) {
		j.now = now
	}
}

// JWTTokenizer issues and verifies HS256 JWTs.
// It is immutable after construction and safe for concurrent use.
type JWTTokenizer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(cfg Config, opts ...Option) (*JWTTokenizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	j := &JWTTokenizer{
		secret: append([]byte(nil), cfg.Secret...),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(j.now),
	}
	if cfg.Leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(cfg.Leeway))
	}
	j.parser = jwt.NewParser(parserOpts...)

	return j, nil
}

// TTL returns the absolute token lifetime
func (j *JWTTokenizer) TTL() time.Duration {
	return j.ttl
}

// Issue signs a new access token for subject
func (j *JWTTokenizer) Issue(subject string, claims core.Claims) (string, core.Identity, error) {
	if subject == "" {
		return "", core.Identity{}, errors.New("subject is required")
	}

	jti, err := uuid.NewRandom()
	if err != nil {
		return "", core.Identity{}, fmt.Errorf("failed to generate token id: %w", err)
	}

	now := j.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(j.ttl)

	accessClaims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   subject,
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)

	signedToken, err := token.SignedString(j.secret)
	if err != nil {
		return "", core.Identity{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, core.Identity{
		Subject:   subject,
		TokenID:   jti.String(),
		Claims:    claims,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify parses tokenStr, checks its signature and absolute expiry, and returns the identity.
// Errors wrap core.ErrMalformedToken, core.ErrInvalidSignature or core.ErrTokenExpired.
func (j *JWTTokenizer) Verify(tokenStr string) (core.Identity, error) {
	// Structural problems are reported before any signature work so that a
	// failure in the signature stage below can only be the signature itself.
	if _, _, err := j.parser.ParseUnverified(tokenStr, &AccessClaims{}); err != nil {
		return core.Identity{}, fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	}

	claims := &AccessClaims{}
	token, err := j.parser.ParseWithClaims(tokenStr, claims, j.keyFunc)
	if err != nil {
		return core.Identity{}, classify(err)
	}
	if !token.Valid {
		return core.Identity{}, core.ErrMalformedToken
	}

	if claims.Subject == "" || claims.ID == "" {
		return core.Identity{}, fmt.Errorf("%w: missing subject or token id", core.ErrMalformedToken)
	}

	return identityFromClaims(claims), nil
}

// ExtractTokenID returns the jti claim without verifying the signature
func (j *JWTTokenizer) ExtractTokenID(tokenStr string) (string, error) {
	claims := &AccessClaims{}
	if _, _, err := j.parser.ParseUnverified(tokenStr, claims); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	}
	if claims.ID == "" {
		return "", fmt.Errorf("%w: missing token id", core.ErrMalformedToken)
	}
	return claims.ID, nil
}

func (j *JWTTokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return j.secret, nil
}

// classify maps parser errors onto the codec taxonomy. It is only called
// after the header and claims segments decoded, so a malformed error here
// refers to the signature segment.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", core.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	}
}

func identityFromClaims(claims *AccessClaims) core.Identity {
	id := core.Identity{
		Subject: claims.Subject,
		TokenID: claims.ID,
		Claims: core.Claims{
			Name:  claims.Name,
			Email: claims.Email,
			Role:  claims.Role,
		},
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return id
}
