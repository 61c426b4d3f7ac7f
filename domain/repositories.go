package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness
	// invariant, e.g. a second passport for the same (holder, issuer).
	ErrDuplicate = errors.New("record already exists")
)

// PassportRepository persists passports. Inserts must enforce the
// (holder_id, issuer_id) uniqueness invariant and report violations as
// ErrDuplicate.
type PassportRepository interface {
	Create(ctx context.Context, passport *Passport) error
	GetByHolderAndIssuer(ctx context.Context, holderID, issuerID string) (*Passport, error)
	ListByHolder(ctx context.Context, holderID string) ([]*Passport, error)
	// ListByIssuer returns the issuer's passports ordered by issue time,
	// oldest first.
	ListByIssuer(ctx context.Context, issuerID string) ([]*Passport, error)
	// Delete removes the (holder, issuer) passport. It reports whether a
	// record was actually removed; deleting a missing passport is not an
	// error.
	Delete(ctx context.Context, holderID, issuerID string) (bool, error)
}

// PolicyRepository persists acceptance policies, unique per
// (server_id, issuer_id).
type PolicyRepository interface {
	Create(ctx context.Context, policy *AcceptancePolicy) error
	GetByServerAndIssuer(ctx context.Context, serverID, issuerID string) (*AcceptancePolicy, error)
	ListByServer(ctx context.Context, serverID string) ([]*AcceptancePolicy, error)
	ListByIssuer(ctx context.Context, issuerID string) ([]*AcceptancePolicy, error)
	Delete(ctx context.Context, serverID, issuerID string) (bool, error)
}

// AutoIssueRuleRepository persists auto-issue rules, unique per
// (server_id, trigger_role_id).
type AutoIssueRuleRepository interface {
	Create(ctx context.Context, rule *AutoIssueRule) error
	GetByServerAndRole(ctx context.Context, serverID, triggerRoleID string) (*AutoIssueRule, error)
	ListByServer(ctx context.Context, serverID string) ([]*AutoIssueRule, error)
	Delete(ctx context.Context, serverID, triggerRoleID string) (bool, error)
}

// DelegatedTokenRepository persists delegated tokens keyed by user. Upsert
// has insert-or-replace semantics: the first authorization inserts, a
// re-authorization overwrites every field except created_at.
type DelegatedTokenRepository interface {
	Upsert(ctx context.Context, token *DelegatedToken) error
	GetByUser(ctx context.Context, userID string) (*DelegatedToken, error)
	DeleteByUser(ctx context.Context, userID string) error
}
