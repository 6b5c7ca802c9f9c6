package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonCodes(t *testing.T) {
	tests := []struct {
		reason Reason
		code   string
	}{
		{ReasonMissingCredential, CodeMissing},
		{ReasonExpired, CodeExpired},
		{ReasonSessionExpired, CodeExpired},
		{ReasonStoreUnavailable, CodeExpired},
		{ReasonInvalidSignature, CodeInvalidSig},
		{ReasonMalformed, CodeInvalid},
		{ReasonInvalidCredential, CodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			assert.Equal(t, tt.code, tt.reason.Code())
		})
	}
	assert.Equal(t, CodeInvalid, Reason(0).Code())
	assert.Equal(t, "reason(0)", Reason(0).String())
}

func TestReasonFor(t *testing.T) {
	assert.Equal(t, ReasonInvalidSignature, ReasonFor(fmt.Errorf("%w: bad mac", ErrInvalidSignature)))
	assert.Equal(t, ReasonExpired, ReasonFor(fmt.Errorf("%w: exp", ErrTokenExpired)))
	assert.Equal(t, ReasonMalformed, ReasonFor(fmt.Errorf("%w: segments", ErrMalformedToken)))
	assert.Equal(t, ReasonStoreUnavailable, ReasonFor(fmt.Errorf("%w: dial", ErrStoreUnavailable)))
	assert.Equal(t, ReasonInvalidCredential, ReasonFor(errors.New("unexpected")))
}

func TestRejectionUnwrapsCause(t *testing.T) {
	rej := Reject(ReasonSessionExpired, ErrSessionExpired)
	require.ErrorIs(t, rej, ErrSessionExpired)
	assert.Contains(t, rej.Error(), "session_expired")

	assert.Equal(t, "rejected: missing_credential", Reject(ReasonMissingCredential, nil).Error())
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{Subject: "42", TokenID: "jti"})
	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "42", id.Subject)
}

func TestPolicies(t *testing.T) {
	user := Identity{Subject: "1", Claims: Claims{Role: "USER"}}
	admin := Identity{Subject: "9", Claims: Claims{Role: "admin"}}
	own := Resource{OwnerSubject: "1"}
	other := Resource{OwnerSubject: "2"}

	assert.True(t, CanAccess(user, other, Public))
	assert.False(t, CanAccess(user, other, AdminOnly))
	assert.True(t, CanAccess(admin, other, AdminOnly))
	assert.True(t, CanAccess(user, own, SelfOrAdmin))
	assert.False(t, CanAccess(user, other, SelfOrAdmin))
	assert.True(t, CanAccess(admin, other, SelfOrAdmin))
	assert.False(t, CanAccess(Identity{}, Resource{}, SelfOrAdmin))
	assert.False(t, CanAccess(admin, own, nil))
}
