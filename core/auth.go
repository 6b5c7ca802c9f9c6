package core

import "time"

// Claims are the display and authorization attributes carried in a token.
// They are copied from the user directory at login and not re-validated per request.
type Claims struct {
	Name  string // Display name
	Email string // Contact address
	Role  string // Opaque role string, e.g. "USER" or "ADMIN"
}

// Principal is an identity whose credentials have already been verified
type Principal struct {
	Subject string // Durable user identifier
	Claims  Claims
}

// Identity is the authenticated identity of a single request
type Identity struct {
	Subject   string    // Durable user identifier
	TokenID   string    // Per-issuance token identifier, joins with the session record
	Claims    Claims    // Display and role claims
	IssuedAt  time.Time // When the token was issued
	ExpiresAt time.Time // Absolute token expiry
}

// Role returns the role claim of the identity
func (i Identity) Role() string {
	return i.Claims.Role
}

// Session represents a live session record in the session store
type Session struct {
	TokenID string        // Token identifier the record is keyed by
	Subject string        // Owning subject, kept for diagnostics
	IdleTTL time.Duration // Remaining idle window
}
