package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/passport/domain"
)

// AutoIssueService reconciles passport possession against membership-role
// changes: gaining a trigger role issues a passport from that server, losing
// the last trigger role revokes it. Events arrive at-least-once and
// unordered, so every step is idempotent.
type AutoIssueService struct {
	rules     domain.AutoIssueRuleRepository
	passports *PassportService
}

// NewAutoIssueService creates an AutoIssueService.
func NewAutoIssueService(rules domain.AutoIssueRuleRepository, passports *PassportService) *AutoIssueService {
	return &AutoIssueService{
		rules:     rules,
		passports: passports,
	}
}

// HandleRoleChange applies every auto-issue rule of the event's server to
// the role delta. A store failure on one rule does not stop the others; the
// failures are joined and returned after the whole batch ran.
//
// Revocation re-checks the member's remaining roles: when a server defines
// several trigger roles and the member still holds one of them, losing
// another must not revoke the passport that the held role still justifies.
func (s *AutoIssueService) HandleRoleChange(ctx context.Context, event *domain.RoleChangeEvent) error {
	rules, err := s.rules.ListByServer(ctx, event.ServerID)
	if err != nil {
		return fmt.Errorf("failed to load auto-issue rules: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}

	added := make(map[string]bool, len(event.AddedRoles))
	for _, r := range event.AddedRoles {
		added[r] = true
	}
	removed := make(map[string]bool, len(event.RemovedRoles))
	for _, r := range event.RemovedRoles {
		removed[r] = true
	}

	var errs []error
	for _, rule := range rules {
		switch {
		case added[rule.TriggerRoleID]:
			issued, err := s.passports.IssuePassport(ctx, event.UserID, event.ServerID, rule.CreatedByID)
			if err != nil {
				errs = append(errs, fmt.Errorf("issue for role %s: %w", rule.TriggerRoleID, err))
				continue
			}
			if issued {
				log.Info().
					Str("user_id", event.UserID).
					Str("server_id", event.ServerID).
					Str("trigger_role_id", rule.TriggerRoleID).
					Msg("Auto-issued passport")
			}

		case removed[rule.TriggerRoleID]:
			if s.stillJustified(event, rules, rule) {
				log.Debug().
					Str("user_id", event.UserID).
					Str("server_id", event.ServerID).
					Str("trigger_role_id", rule.TriggerRoleID).
					Msg("Skipping revocation, another trigger role still held")
				continue
			}
			if err := s.passports.RevokePassport(ctx, event.UserID, event.ServerID); err != nil {
				errs = append(errs, fmt.Errorf("revoke for role %s: %w", rule.TriggerRoleID, err))
				continue
			}
		}
	}

	return errors.Join(errs...)
}

// stillJustified reports whether any other rule of the same server matches a
// role the member still holds after the change.
func (s *AutoIssueService) stillJustified(event *domain.RoleChangeEvent, rules []*domain.AutoIssueRule, current *domain.AutoIssueRule) bool {
	for _, other := range rules {
		if other.TriggerRoleID == current.TriggerRoleID {
			continue
		}
		if event.HasCurrentRole(other.TriggerRoleID) {
			return true
		}
	}
	return false
}
