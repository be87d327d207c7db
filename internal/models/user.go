package models

import (
	"time"
)

// User is the canonical local row for an account. In federated mode the row is
// a mirror of the identity provider's record: PasswordHash is the empty string
// and FederatedID carries the IdP's stable subject identifier.
type User struct {
	ID                int64
	Username          string
	Email             string
	PasswordHash      string // "" means no local credential (federated rows)
	FederatedID       *string
	LastSyncedAt      *time.Time
	ProfilePictureRef *string // object-store key, managed by the storage layer
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasFederatedID reports whether the row is already bound to an IdP subject.
func (u *User) HasFederatedID() bool {
	return u.FederatedID != nil && *u.FederatedID != ""
}
