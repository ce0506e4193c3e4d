package domain

import "time"

// SessionClaims is the verified content of a session token.
// Role is the snapshot taken at issuance; authorization uses the
// directory's current role instead.
type SessionClaims struct {
	ID        string
	Subject   string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is a freshly signed session token.
type IssuedToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}
