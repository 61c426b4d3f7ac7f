package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"go.pilab.hu/passport/domain"
)

type AutoIssueRuleRepository struct {
	coll *mongo.Collection
}

func NewAutoIssueRuleRepository(db *mongo.Database) *AutoIssueRuleRepository {
	return &AutoIssueRuleRepository{coll: db.Collection(AutoIssueRulesCollection)}
}

func (r *AutoIssueRuleRepository) Create(ctx context.Context, rule *domain.AutoIssueRule) error {
	_, err := r.coll.InsertOne(ctx, rule)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicate
		}
		log.Error().Err(err).
			Str("server_id", rule.ServerID).
			Str("trigger_role_id", rule.TriggerRoleID).
			Msg("Error saving auto-issue rule")
		return fmt.Errorf("failed to save auto-issue rule: %w", err)
	}
	return nil
}

func (r *AutoIssueRuleRepository) GetByServerAndRole(ctx context.Context, serverID, triggerRoleID string) (*domain.AutoIssueRule, error) {
	var rule domain.AutoIssueRule
	err := r.coll.FindOne(ctx, bson.M{"server_id": serverID, "trigger_role_id": triggerRoleID}).Decode(&rule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve auto-issue rule: %w", err)
	}
	return &rule, nil
}

func (r *AutoIssueRuleRepository) ListByServer(ctx context.Context, serverID string) ([]*domain.AutoIssueRule, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"server_id": serverID})
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-issue rules: %w", err)
	}

	var rules []*domain.AutoIssueRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode auto-issue rules: %w", err)
	}
	return rules, nil
}

func (r *AutoIssueRuleRepository) Delete(ctx context.Context, serverID, triggerRoleID string) (bool, error) {
	result, err := r.coll.DeleteOne(ctx, bson.M{"server_id": serverID, "trigger_role_id": triggerRoleID})
	if err != nil {
		log.Error().Err(err).
			Str("server_id", serverID).
			Str("trigger_role_id", triggerRoleID).
			Msg("Error deleting auto-issue rule")
		return false, fmt.Errorf("failed to delete auto-issue rule: %w", err)
	}
	return result.DeletedCount > 0, nil
}

var _ domain.AutoIssueRuleRepository = (*AutoIssueRuleRepository)(nil)
