package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines the registered claims with the display and role claims
type AccessClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}
