package errors

import "fmt"

// JoinError represents a failure of the passport join machinery with a
// machine-readable code alongside the human-readable description. The
// description is safe to surface across external interfaces; internal detail
// stays in the logs.
type JoinError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Error codes for the join taxonomy.
const (
	NoValidPassport       = "no_valid_passport"
	AlreadyMember         = "already_member"
	AuthorizationRequired = "authorization_required"
	AuthorizationExpired  = "authorization_expired"
	AuthorizationInvalid  = "authorization_invalid"
	InvalidOrExpiredState = "invalid_or_expired_state"
	TokenExchangeFailed   = "token_exchange_failed"
	StoreUnavailable      = "store_unavailable"
	ProviderError         = "provider_error"
)

func NewNoValidPassport() *JoinError {
	return &JoinError{
		Code:        NoValidPassport,
		Description: "No valid passport for this server",
	}
}

func NewAlreadyMember() *JoinError {
	return &JoinError{
		Code:        AlreadyMember,
		Description: "User is already a member of this server",
	}
}

func NewAuthorizationRequired() *JoinError {
	return &JoinError{
		Code:        AuthorizationRequired,
		Description: "Authorization required",
	}
}

func NewAuthorizationExpired() *JoinError {
	return &JoinError{
		Code:        AuthorizationExpired,
		Description: "Authorization expired, please re-authorize",
	}
}

func NewAuthorizationInvalid() *JoinError {
	return &JoinError{
		Code:        AuthorizationInvalid,
		Description: "Authorization invalid, please re-authorize",
	}
}

func NewInvalidOrExpiredState() *JoinError {
	return &JoinError{
		Code:        InvalidOrExpiredState,
		Description: "Invalid or expired state",
	}
}

func NewTokenExchangeFailed(description string) *JoinError {
	return &JoinError{
		Code:        TokenExchangeFailed,
		Description: description,
	}
}

func NewStoreUnavailable(description string) *JoinError {
	return &JoinError{
		Code:        StoreUnavailable,
		Description: description,
	}
}

func NewProviderError(description string) *JoinError {
	return &JoinError{
		Code:        ProviderError,
		Description: description,
	}
}
