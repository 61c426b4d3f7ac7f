package domain

import "time"

// DelegatedToken is an access token obtained from the authorization provider
// via code exchange, used to add the user to a server on their behalf. At
// most one live token per user; re-authorization overwrites it in place.
type DelegatedToken struct {
	UserID       string    `bson:"_id"                     json:"user_id"`
	AccessToken  string    `bson:"access_token"            json:"access_token"`
	RefreshToken string    `bson:"refresh_token,omitempty" json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `bson:"expires_at"              json:"expires_at"`
	CreatedAt    time.Time `bson:"created_at"              json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"              json:"updated_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *DelegatedToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
