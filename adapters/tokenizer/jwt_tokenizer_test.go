package tokenizer

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/tollgate/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTokenizer(t *testing.T, clock *fakeClock) *JWTTokenizer {
	t.Helper()
	tk, err := NewJWTTokenizer(Config{
		Secret: testSecret,
		Issuer: "tollgate-test",
		TTL:    15 * time.Minute,
	}, WithClock(clock.Now))
	require.NoError(t, err)
	return tk
}

func testClaims() core.Claims {
	return core.Claims{Name: "Ada", Email: "ada@example.com", Role: "USER"}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	tk := newTestTokenizer(t, clock)

	token, issued, err := tk.Issue("42", testClaims())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, clock.now.UTC(), issued.IssuedAt)
	assert.Equal(t, clock.now.Add(15*time.Minute).UTC(), issued.ExpiresAt)

	id, err := tk.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "42", id.Subject)
	assert.Equal(t, issued.TokenID, id.TokenID)
	assert.Equal(t, testClaims(), id.Claims)
	assert.Equal(t, issued.ExpiresAt, id.ExpiresAt)

	jti, err := tk.ExtractTokenID(token)
	require.NoError(t, err)
	assert.Equal(t, issued.TokenID, jti)
}

func TestIssueGeneratesUniqueTokenIDs(t *testing.T) {
	tk := newTestTokenizer(t, &fakeClock{now: time.Now()})

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		_, id, err := tk.Issue("42", testClaims())
		require.NoError(t, err)
		_, dup := seen[id.TokenID]
		require.False(t, dup, "duplicate token id %s", id.TokenID)
		seen[id.TokenID] = struct{}{}
	}
}

func TestIssueRejectsEmptySubject(t *testing.T) {
	tk := newTestTokenizer(t, &fakeClock{now: time.Now()})

	_, _, err := tk.Issue("", testClaims())
	require.Error(t, err)
}

func TestVerifyRejectsMutatedSignature(t *testing.T) {
	tk := newTestTokenizer(t, &fakeClock{now: time.Now()})

	token, _, err := tk.Issue("42", testClaims())
	require.NoError(t, err)

	dot := strings.LastIndex(token, ".")
	require.Positive(t, dot)

	for i := dot + 1; i < len(token); i++ {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		mutated := token[:i] + string(replacement) + token[i+1:]

		_, err := tk.Verify(mutated)
		require.ErrorIs(t, err, core.ErrInvalidSignature, "mutation at byte %d", i)
	}
}

func TestVerifyRejectsTruncatedSignature(t *testing.T) {
	tk := newTestTokenizer(t, &fakeClock{now: time.Now()})

	token, _, err := tk.Issue("42", testClaims())
	require.NoError(t, err)

	_, err = tk.Verify(token[:len(token)-4])
	require.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tk := newTestTokenizer(t, clock)

	other, err := NewJWTTokenizer(Config{
		Secret: []byte("ffffffffffffffffffffffffffffffff"),
		Issuer: "tollgate-test",
		TTL:    15 * time.Minute,
	}, WithClock(clock.Now))
	require.NoError(t, err)

	token, _, err := other.Issue("42", testClaims())
	require.NoError(t, err)

	_, err = tk.Verify(token)
	require.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestVerifyRejectsUnexpectedAlgorithm(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tk := newTestTokenizer(t, clock)

	claims := AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "tollgate-test",
		Subject:   "42",
		ID:        "jti-1",
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = tk.Verify(token)
	require.ErrorIs(t, err, core.ErrInvalidSignature)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tk.Verify(unsigned)
	require.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestVerifyExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	tk := newTestTokenizer(t, clock)

	token, _, err := tk.Issue("42", testClaims())
	require.NoError(t, err)

	clock.Advance(15*time.Minute - time.Second)
	_, err = tk.Verify(token)
	require.NoError(t, err)

	// expiresAt itself is already expired
	clock.Advance(time.Second)
	_, err = tk.Verify(token)
	require.ErrorIs(t, err, core.ErrTokenExpired)

	clock.Advance(time.Hour)
	_, err = tk.Verify(token)
	require.ErrorIs(t, err, core.ErrTokenExpired)

	// the token id stays readable for logout after expiry
	_, err = tk.ExtractTokenID(token)
	require.NoError(t, err)
}

func TestVerifyLeeway(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	tk, err := NewJWTTokenizer(Config{
		Secret: testSecret,
		Issuer: "tollgate-test",
		TTL:    time.Minute,
		Leeway: 5 * time.Second,
	}, WithClock(clock.Now))
	require.NoError(t, err)

	token, _, err := tk.Issue("42", testClaims())
	require.NoError(t, err)

	clock.Advance(time.Minute + 4*time.Second)
	_, err = tk.Verify(token)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = tk.Verify(token)
	require.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tk := newTestTokenizer(t, clock)

	other, err := NewJWTTokenizer(Config{Secret: testSecret, Issuer: "someone-else", TTL: time.Minute}, WithClock(clock.Now))
	require.NoError(t, err)

	token, _, err := other.Issue("42", testClaims())
	require.NoError(t, err)

	_, err = tk.Verify(token)
	require.ErrorIs(t, err, core.ErrMalformedToken)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	tk := newTestTokenizer(t, &fakeClock{now: time.Now()})

	for _, token := range []string{
		"",
		"not-a-token",
		"a.b",
		"a.b.c",
		"eyJhbGciOiJIUzI1NiJ9.!!!.c2ln",
	} {
		_, err := tk.Verify(token)
		require.ErrorIs(t, err, core.ErrMalformedToken, "token %q", token)

		_, err = tk.ExtractTokenID(token)
		require.ErrorIs(t, err, core.ErrMalformedToken, "token %q", token)
	}
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	tk := newTestTokenizer(t, &fakeClock{now: time.Now()})

	claims := AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:  "tollgate-test",
		Subject: "42",
		ID:      "jti-1",
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = tk.Verify(token)
	require.ErrorIs(t, err, core.ErrMalformedToken)
}

func TestNewJWTTokenizerValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "short secret", cfg: Config{Secret: []byte("short"), Issuer: "i", TTL: time.Minute}},
		{name: "missing issuer", cfg: Config{Secret: testSecret, TTL: time.Minute}},
		{name: "missing ttl", cfg: Config{Secret: testSecret, Issuer: "i"}},
		{name: "negative leeway", cfg: Config{Secret: testSecret, Issuer: "i", TTL: time.Minute, Leeway: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJWTTokenizer(tt.cfg)
			require.ErrorIs(t, err, core.ErrInvalidConfig)
		})
	}
}
