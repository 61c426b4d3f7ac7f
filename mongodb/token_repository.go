package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/passport/domain"
)

type DelegatedTokenRepository struct {
	coll *mongo.Collection
}

func NewDelegatedTokenRepository(db *mongo.Database) *DelegatedTokenRepository {
	return &DelegatedTokenRepository{coll: db.Collection(DelegatedTokensCollection)}
}

// Upsert inserts or replaces the user's delegated token in a single atomic
// operation. On replacement created_at is preserved and updated_at is
// refreshed.
func (r *DelegatedTokenRepository) Upsert(ctx context.Context, token *domain.DelegatedToken) error {
	now := time.Now().UTC()

	filter := bson.M{"_id": token.UserID}
	update := bson.M{
		"$set": bson.M{
			"access_token":  token.AccessToken,
			"refresh_token": token.RefreshToken,
			"expires_at":    token.ExpiresAt,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}

	_, err := r.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		log.Error().Err(err).Str("user_id", token.UserID).Msg("Error upserting delegated token")
		return fmt.Errorf("failed to upsert delegated token: %w", err)
	}

	log.Debug().Str("user_id", token.UserID).Time("expires_at", token.ExpiresAt).Msg("Delegated token stored")
	return nil
}

func (r *DelegatedTokenRepository) GetByUser(ctx context.Context, userID string) (*domain.DelegatedToken, error) {
	var token domain.DelegatedToken
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve delegated token: %w", err)
	}
	return &token, nil
}

func (r *DelegatedTokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Error deleting delegated token")
		return fmt.Errorf("failed to delete delegated token: %w", err)
	}
	return nil
}

var _ domain.DelegatedTokenRepository = (*DelegatedTokenRepository)(nil)
