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

type PolicyRepository struct {
	coll *mongo.Collection
}

func NewPolicyRepository(db *mongo.Database) *PolicyRepository {
	return &PolicyRepository{coll: db.Collection(PoliciesCollection)}
}

func (r *PolicyRepository) Create(ctx context.Context, policy *domain.AcceptancePolicy) error {
	_, err := r.coll.InsertOne(ctx, policy)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicate
		}
		log.Error().Err(err).
			Str("server_id", policy.ServerID).
			Str("issuer_id", policy.IssuerID).
			Msg("Error saving acceptance policy")
		return fmt.Errorf("failed to save acceptance policy: %w", err)
	}
	return nil
}

func (r *PolicyRepository) GetByServerAndIssuer(ctx context.Context, serverID, issuerID string) (*domain.AcceptancePolicy, error) {
	var policy domain.AcceptancePolicy
	err := r.coll.FindOne(ctx, bson.M{"server_id": serverID, "issuer_id": issuerID}).Decode(&policy)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve acceptance policy: %w", err)
	}
	return &policy, nil
}

func (r *PolicyRepository) ListByServer(ctx context.Context, serverID string) ([]*domain.AcceptancePolicy, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"server_id": serverID})
	if err != nil {
		return nil, fmt.Errorf("failed to list acceptance policies for server: %w", err)
	}

	var policies []*domain.AcceptancePolicy
	if err := cursor.All(ctx, &policies); err != nil {
		return nil, fmt.Errorf("failed to decode acceptance policies: %w", err)
	}
	return policies, nil
}

func (r *PolicyRepository) ListByIssuer(ctx context.Context, issuerID string) ([]*domain.AcceptancePolicy, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"issuer_id": issuerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list acceptance policies for issuer: %w", err)
	}

	var policies []*domain.AcceptancePolicy
	if err := cursor.All(ctx, &policies); err != nil {
		return nil, fmt.Errorf("failed to decode acceptance policies: %w", err)
	}
	return policies, nil
}

func (r *PolicyRepository) Delete(ctx context.Context, serverID, issuerID string) (bool, error) {
	result, err := r.coll.DeleteOne(ctx, bson.M{"server_id": serverID, "issuer_id": issuerID})
	if err != nil {
		log.Error().Err(err).
			Str("server_id", serverID).
			Str("issuer_id", issuerID).
			Msg("Error deleting acceptance policy")
		return false, fmt.Errorf("failed to delete acceptance policy: %w", err)
	}
	return result.DeletedCount > 0, nil
}

var _ domain.PolicyRepository = (*PolicyRepository)(nil)
