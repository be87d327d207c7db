package idp

import (
	"errors"
	"fmt"
)

// Sentinel errors for the identity-provider boundary
var (
	ErrAuthFailed    = errors.New("identity provider rejected credentials")
	ErrTokenInvalid  = errors.New("token is not valid")
	ErrUnavailable   = errors.New("identity provider unavailable")
	ErrAmbiguousUser = errors.New("multiple identity provider users match username")
)

// ConflictError reports that provisioning collided with an existing user in
// the IdP. Field is "username", "email", or "" when the IdP did not say.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return "user already exists in identity provider"
	}
	return fmt.Sprintf("user already exists in identity provider: %s taken", e.Field)
}

// PartialProvisionError reports that the user record was created in the IdP
// (phase 1) but a later phase failed. The IdP-side record is NOT rolled back;
// cleanup is an operator decision. FederatedID identifies the orphan.
type PartialProvisionError struct {
	FederatedID string
	Phase       string
	Err         error
}

func (e *PartialProvisionError) Error() string {
	return fmt.Sprintf("provisioning incomplete at %s for idp user %s: %v", e.Phase, e.FederatedID, e.Err)
}

func (e *PartialProvisionError) Unwrap() error {
	return e.Err
}
