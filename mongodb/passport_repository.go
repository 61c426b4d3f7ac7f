package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/passport/domain"
)

type PassportRepository struct {
	coll *mongo.Collection
}

func NewPassportRepository(db *mongo.Database) *PassportRepository {
	return &PassportRepository{coll: db.Collection(PassportsCollection)}
}

func (r *PassportRepository) Create(ctx context.Context, passport *domain.Passport) error {
	_, err := r.coll.InsertOne(ctx, passport)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicate
		}
		log.Error().Err(err).
			Str("holder_id", passport.HolderID).
			Str("issuer_id", passport.IssuerID).
			Msg("Error saving passport")
		return fmt.Errorf("failed to save passport: %w", err)
	}
	return nil
}

func (r *PassportRepository) GetByHolderAndIssuer(ctx context.Context, holderID, issuerID string) (*domain.Passport, error) {
	var passport domain.Passport
	err := r.coll.FindOne(ctx, bson.M{"holder_id": holderID, "issuer_id": issuerID}).Decode(&passport)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve passport: %w", err)
	}
	return &passport, nil
}

func (r *PassportRepository) ListByHolder(ctx context.Context, holderID string) ([]*domain.Passport, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"holder_id": holderID})
	if err != nil {
		return nil, fmt.Errorf("failed to list passports for holder: %w", err)
	}

	var passports []*domain.Passport
	if err := cursor.All(ctx, &passports); err != nil {
		return nil, fmt.Errorf("failed to decode passports: %w", err)
	}
	return passports, nil
}

func (r *PassportRepository) ListByIssuer(ctx context.Context, issuerID string) ([]*domain.Passport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "issued_at", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"issuer_id": issuerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list passports for issuer: %w", err)
	}

	var passports []*domain.Passport
	if err := cursor.All(ctx, &passports); err != nil {
		return nil, fmt.Errorf("failed to decode passports: %w", err)
	}
	return passports, nil
}

func (r *PassportRepository) Delete(ctx context.Context, holderID, issuerID string) (bool, error) {
	result, err := r.coll.DeleteOne(ctx, bson.M{"holder_id": holderID, "issuer_id": issuerID})
	if err != nil {
		log.Error().Err(err).
			Str("holder_id", holderID).
			Str("issuer_id", issuerID).
			Msg("Error deleting passport")
		return false, fmt.Errorf("failed to delete passport: %w", err)
	}
	return result.DeletedCount > 0, nil
}

var _ domain.PassportRepository = (*PassportRepository)(nil)
