package auth

import "time"

// AuthMethod identifies how a principal was authenticated.
type AuthMethod string

const (
	AuthMethodJWT AuthMethod = "jwt"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID         string
	Username   string
	AuthMethod AuthMethod
	ExpiresAt  time.Time
}
