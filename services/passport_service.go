package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/passport/domain"
	joinerrors "go.pilab.hu/passport/errors"
)

// AccessDecision is the outcome of resolving whether a holder may join a
// target server.
type AccessDecision struct {
	Granted  bool
	RoleID   string
	IssuerID string
}

// ServerAccess names one server a holder can reach with one of their
// passports.
type ServerAccess struct {
	ServerID string `json:"server_id"`
	RoleID   string `json:"role_id,omitempty"`
	IssuerID string `json:"issuer_id"`
}

// PassportService owns passport issuance and revocation, acceptance-policy
// and auto-issue-rule management, and the access-resolution queries the join
// machinery builds on.
type PassportService struct {
	passports domain.PassportRepository
	policies  domain.PolicyRepository
	rules     domain.AutoIssueRuleRepository
	now       func() time.Time
}

// NewPassportService creates a PassportService over the given repositories.
func NewPassportService(
	passports domain.PassportRepository,
	policies domain.PolicyRepository,
	rules domain.AutoIssueRuleRepository,
) *PassportService {
	return &PassportService{
		passports: passports,
		policies:  policies,
		rules:     rules,
		now:       time.Now,
	}
}

// ResolveAccess decides whether holderID may join serverID. The holder's
// passports are checked most-recently-issued first and the first one covered
// by an acceptance policy of the target server wins; that makes the decision
// deterministic when a holder carries several usable passports.
//
// A store failure is returned as a store_unavailable error; callers on the
// join path must treat it as "no access" (fail closed), never as a grant.
func (s *PassportService) ResolveAccess(ctx context.Context, holderID, serverID string) (*AccessDecision, error) {
	passports, err := s.passports.ListByHolder(ctx, holderID)
	if err != nil {
		log.Error().Err(err).Str("holder_id", holderID).Str("server_id", serverID).
			Msg("Store error resolving access")
		return nil, joinerrors.NewStoreUnavailable("could not load passports")
	}

	if len(passports) == 0 {
		return &AccessDecision{Granted: false}, nil
	}

	sort.Slice(passports, func(i, j int) bool {
		return passports[i].IssuedAt.After(passports[j].IssuedAt)
	})

	for _, passport := range passports {
		policy, err := s.policies.GetByServerAndIssuer(ctx, serverID, passport.IssuerID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			log.Error().Err(err).Str("holder_id", holderID).Str("server_id", serverID).
				Msg("Store error resolving access")
			return nil, joinerrors.NewStoreUnavailable("could not load acceptance policies")
		}
		return &AccessDecision{
			Granted:  true,
			RoleID:   policy.RoleID,
			IssuerID: passport.IssuerID,
		}, nil
	}

	return &AccessDecision{Granted: false}, nil
}

// ListAccessibleServers expands every passport of the holder to every server
// whose acceptance policy references the passport's issuer. The sequence is
// not deduplicated; callers dedupe by server if they need to.
func (s *PassportService) ListAccessibleServers(ctx context.Context, holderID string) ([]ServerAccess, error) {
	passports, err := s.passports.ListByHolder(ctx, holderID)
	if err != nil {
		return nil, joinerrors.NewStoreUnavailable("could not load passports")
	}

	var accessible []ServerAccess
	for _, passport := range passports {
		policies, err := s.policies.ListByIssuer(ctx, passport.IssuerID)
		if err != nil {
			return nil, joinerrors.NewStoreUnavailable("could not load acceptance policies")
		}
		for _, policy := range policies {
			accessible = append(accessible, ServerAccess{
				ServerID: policy.ServerID,
				RoleID:   policy.RoleID,
				IssuerID: passport.IssuerID,
			})
		}
	}
	return accessible, nil
}

// ListHolders returns everyone holding a passport from issuerID, oldest
// issuance first.
func (s *PassportService) ListHolders(ctx context.Context, issuerID string) ([]*domain.Passport, error) {
	holders, err := s.passports.ListByIssuer(ctx, issuerID)
	if err != nil {
		return nil, joinerrors.NewStoreUnavailable("could not load passport holders")
	}
	return holders, nil
}

// GetPassport returns the (holder, issuer) passport, or domain.ErrNotFound.
func (s *PassportService) GetPassport(ctx context.Context, holderID, issuerID string) (*domain.Passport, error) {
	return s.passports.GetByHolderAndIssuer(ctx, holderID, issuerID)
}

// ListPassports returns every passport held by holderID.
func (s *PassportService) ListPassports(ctx context.Context, holderID string) ([]*domain.Passport, error) {
	return s.passports.ListByHolder(ctx, holderID)
}

// IssuePassport issues a passport idempotently. It reports false when the
// holder already has one from this issuer, which is not an error.
func (s *PassportService) IssuePassport(ctx context.Context, holderID, issuerID, issuedByID string) (bool, error) {
	_, err := s.passports.GetByHolderAndIssuer(ctx, holderID, issuerID)
	switch {
	case err == nil:
		log.Info().Str("holder_id", holderID).Str("issuer_id", issuerID).Msg("Passport already exists")
		return false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return false, fmt.Errorf("failed to check existing passport: %w", err)
	}

	passport := &domain.Passport{
		ID:         uuid.NewString(),
		HolderID:   holderID,
		IssuerID:   issuerID,
		IssuedAt:   s.now().UTC(),
		IssuedByID: issuedByID,
	}
	if err := s.passports.Create(ctx, passport); err != nil {
		// A concurrent issuance beat us to it; the invariant holds either
		// way.
		if errors.Is(err, domain.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}

	log.Info().Str("holder_id", holderID).Str("issuer_id", issuerID).
		Str("issued_by_id", issuedByID).Msg("Passport issued")
	return true, nil
}

// RevokePassport removes the (holder, issuer) passport. Revoking a passport
// that does not exist is a no-op.
func (s *PassportService) RevokePassport(ctx context.Context, holderID, issuerID string) error {
	removed, err := s.passports.Delete(ctx, holderID, issuerID)
	if err != nil {
		return err
	}
	if removed {
		log.Info().Str("holder_id", holderID).Str("issuer_id", issuerID).Msg("Passport revoked")
	}
	return nil
}

// AddAcceptancePolicy declares that serverID admits passports from issuerID,
// optionally granting roleID on join. Reports false when the policy already
// exists.
func (s *PassportService) AddAcceptancePolicy(ctx context.Context, serverID, issuerID, roleID, addedByID string) (bool, error) {
	policy := &domain.AcceptancePolicy{
		ID:        uuid.NewString(),
		ServerID:  serverID,
		IssuerID:  issuerID,
		RoleID:    roleID,
		AddedAt:   s.now().UTC(),
		AddedByID: addedByID,
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}

	log.Info().Str("server_id", serverID).Str("issuer_id", issuerID).
		Str("role_id", roleID).Msg("Acceptance policy added")
	return true, nil
}

// RemoveAcceptancePolicy removes the (server, issuer) policy. Reports false
// when no such policy exists.
func (s *PassportService) RemoveAcceptancePolicy(ctx context.Context, serverID, issuerID string) (bool, error) {
	removed, err := s.policies.Delete(ctx, serverID, issuerID)
	if err != nil {
		return false, err
	}
	if removed {
		log.Info().Str("server_id", serverID).Str("issuer_id", issuerID).Msg("Acceptance policy removed")
	}
	return removed, nil
}

// ListAcceptancePolicies returns the issuers serverID currently admits.
func (s *PassportService) ListAcceptancePolicies(ctx context.Context, serverID string) ([]*domain.AcceptancePolicy, error) {
	return s.policies.ListByServer(ctx, serverID)
}

// AddAutoIssueRule configures issuance mirroring for a trigger role. Reports
// false when the rule already exists.
func (s *PassportService) AddAutoIssueRule(ctx context.Context, serverID, triggerRoleID, createdByID string) (bool, error) {
	rule := &domain.AutoIssueRule{
		ID:            uuid.NewString(),
		ServerID:      serverID,
		TriggerRoleID: triggerRoleID,
		CreatedAt:     s.now().UTC(),
		CreatedByID:   createdByID,
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}

	log.Info().Str("server_id", serverID).Str("trigger_role_id", triggerRoleID).
		Msg("Auto-issue rule added")
	return true, nil
}

// RemoveAutoIssueRule removes the (server, trigger role) rule. Reports false
// when no such rule exists.
func (s *PassportService) RemoveAutoIssueRule(ctx context.Context, serverID, triggerRoleID string) (bool, error) {
	removed, err := s.rules.Delete(ctx, serverID, triggerRoleID)
	if err != nil {
		return false, err
	}
	if removed {
		log.Info().Str("server_id", serverID).Str("trigger_role_id", triggerRoleID).
			Msg("Auto-issue rule removed")
	}
	return removed, nil
}

// ListAutoIssueRules returns the server's auto-issue rules.
func (s *PassportService) ListAutoIssueRules(ctx context.Context, serverID string) ([]*domain.AutoIssueRule, error) {
	return s.rules.ListByServer(ctx, serverID)
}
