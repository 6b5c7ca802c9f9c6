package core

import (
	"errors"
	"fmt"
)

// Reason classifies why a request was not authenticated
type Reason int

const (
	ReasonMalformed Reason = iota + 1
	ReasonInvalidSignature
	ReasonExpired
	ReasonSessionExpired
	ReasonMissingCredential
	ReasonStoreUnavailable
	ReasonInvalidCredential
)

// Wire codes returned to clients in the 401 body
const (
	CodeMissing    = "auth.missing"
	CodeExpired    = "auth.expired"
	CodeInvalidSig = "auth.invalidsig"
	CodeInvalid    = "auth.invalid"
)

var reasonNames = map[Reason]string{
	ReasonMalformed:         "malformed",
	ReasonInvalidSignature:  "invalid_signature",
	ReasonExpired:           "expired",
	ReasonSessionExpired:    "session_expired",
	ReasonMissingCredential: "missing_credential",
	ReasonStoreUnavailable:  "store_unavailable",
	ReasonInvalidCredential: "invalid_credential",
}

// String returns the reason name used in logs and metrics
func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Code returns the client-facing reason code.
// StoreUnavailable is indistinguishable from SessionExpired on the wire.
func (r Reason) Code() string {
	switch r {
	case ReasonMissingCredential:
		return CodeMissing
	case ReasonExpired, ReasonSessionExpired, ReasonStoreUnavailable:
		return CodeExpired
	case ReasonInvalidSignature:
		return CodeInvalidSig
	default:
		return CodeInvalid
	}
}

// Rejection is the deny outcome of an authentication attempt.
// Cause is for logs only and must never reach the client.
type Rejection struct {
	Reason Reason
	Cause  error
}

// Reject builds a rejection with the given reason and internal cause
func Reject(reason Reason, cause error) *Rejection {
	return &Rejection{Reason: reason, Cause: cause}
}

func (r *Rejection) Error() string {
	if r.Cause == nil {
		return "rejected: " + r.Reason.String()
	}
	return "rejected: " + r.Reason.String() + ": " + r.Cause.Error()
}

func (r *Rejection) Unwrap() error {
	return r.Cause
}

// ReasonFor classifies a token codec error.
// Anything that is not a known codec failure is an invalid credential.
func ReasonFor(err error) Reason {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return ReasonInvalidSignature
	case errors.Is(err, ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, ErrMalformedToken):
		return ReasonMalformed
	case errors.Is(err, ErrSessionExpired):
		return ReasonSessionExpired
	case errors.Is(err, ErrStoreUnavailable):
		return ReasonStoreUnavailable
	default:
		return ReasonInvalidCredential
	}
}
