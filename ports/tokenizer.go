package ports

import "github.com/layer-3/tollgate/core"

// Tokenizer issues and verifies self-contained bearer tokens
type Tokenizer interface {
	// Issue signs a new token for the subject with a fresh token ID
	Issue(subject string, claims core.Claims) (string, core.Identity, error)

	// Verify checks signature, structure and absolute expiry
	Verify(token string) (core.Identity, error)

	// ExtractTokenID reads the token ID without verifying the token
	ExtractTokenID(token string) (string, error)
}
