package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
)

const (
	PassportsCollection       = "passports"           // Issued passports
	PoliciesCollection        = "acceptance_policies" // Which issuers a server admits
	AutoIssueRulesCollection  = "auto_issue_rules"    // Role-triggered issuance rules
	DelegatedTokensCollection = "delegated_tokens"    // OAuth tokens keyed by user
)

// Connect establishes and pings a MongoDB client. The caller owns the client
// and is responsible for Disconnect on shutdown.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB primary: %w", err)
	}

	return client, nil
}

// EnsureIndexes creates the indexes that back the data-model invariants:
// one passport per (holder, issuer), one policy per (server, issuer), one
// rule per (server, trigger role). Safe to call on every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true),
		}
	}

	_, err := db.Collection(PassportsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique(bson.D{{Key: "holder_id", Value: 1}, {Key: "issuer_id", Value: 1}}),
		{Keys: bson.D{{Key: "issuer_id", Value: 1}, {Key: "issued_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create passport indexes: %w", err)
	}

	_, err = db.Collection(PoliciesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique(bson.D{{Key: "server_id", Value: 1}, {Key: "issuer_id", Value: 1}}),
		{Keys: bson.D{{Key: "issuer_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create policy indexes: %w", err)
	}

	_, err = db.Collection(AutoIssueRulesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique(bson.D{{Key: "server_id", Value: 1}, {Key: "trigger_role_id", Value: 1}}),
	})
	if err != nil {
		return fmt.Errorf("failed to create auto-issue rule indexes: %w", err)
	}

	return nil
}

// isDuplicateKey reports whether err is a unique-index violation.
func isDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
