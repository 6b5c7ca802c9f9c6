package ports

import (
	"context"

	"github.com/layer-3/tollgate/core"
)

// CredentialVerifier checks a login identifier and password against the user directory.
// It returns core.ErrInvalidCredentials for unknown users and wrong passwords alike.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, identifier, password string) (core.Principal, error)
}
