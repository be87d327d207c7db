package models

// IdPTokenClaims is the merged view of a bearer token after introspection and
// a userinfo lookup against the identity provider. Active comes from
// introspection; everything else comes from userinfo.
type IdPTokenClaims struct {
	FederatedID       string
	PreferredUsername string
	Email             string
	Active            bool
}

// RegistrationProfile carries the fields a new user submits at registration.
type RegistrationProfile struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	DateOfBirth string // ISO-8601 date, optional
	PhoneNumber string // optional
}

// RegistrationResult reports the identifiers assigned during registration.
// FederatedID is empty in legacy mode.
type RegistrationResult struct {
	UserID      int64
	Username    string
	FederatedID string
}

// TokenSet is the credential material returned by a successful login.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
}
