// Package directory defines the contract for the external group-membership
// directory: the service that actually holds servers, members and roles, and
// that can add a user to a server on their behalf given a delegated token.
package directory

import (
	"context"
	"errors"
	"fmt"
)

// Error codes the directory uses to reject a delegated token. These are the
// only failures a caller should answer with "re-authorize"; anything else is
// a genuine provider error.
const (
	CodeMissingAccess = "missing_access"
	CodeInvalidToken  = "invalid_oauth_token"
	CodeUnauthorized  = "unauthorized"
)

// Error is a structured failure from the directory.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("directory error %s: %s", e.Code, e.Message)
}

// IsTokenRejected reports whether err means the directory rejected the
// delegated token as invalid, expired or unauthorized.
func IsTokenRejected(err error) bool {
	var derr *Error
	if !errors.As(err, &derr) {
		return false
	}
	switch derr.Code {
	case CodeMissingAccess, CodeInvalidToken, CodeUnauthorized:
		return true
	}
	return false
}

// Member describes a directory member after a successful add.
type Member struct {
	Username string `json:"username"`
}

// Directory is the group-membership service consumed by the join
// orchestrator.
type Directory interface {
	// IsMember reports whether userID already belongs to serverID.
	IsMember(ctx context.Context, serverID, userID string) (bool, error)

	// AddMember adds userID to serverID using the user's delegated access
	// token, optionally granting roleID (empty means no role). Token
	// rejections come back as *Error with one of the token-rejection
	// codes.
	AddMember(ctx context.Context, serverID, userID, accessToken, roleID string) (*Member, error)

	// ServerName resolves a server's display name. The second return is
	// false when the directory does not know the server.
	ServerName(ctx context.Context, serverID string) (string, bool)
}
