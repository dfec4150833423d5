package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"reserveScope/internal/model"
)

const (
	pairsCollection    = "pairs"
	tokensCollection   = "tokens"
	settingsCollection = "settings"

	commonTokensDocID = "commonTokens"
)

// Store provides document-store persistence for the pair/token view.
type Store struct {
	client   *mongo.Client
	pairs    *mongo.Collection
	tokens   *mongo.Collection
	settings *mongo.Collection
}

func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	return &Store{
		client:   client,
		pairs:    db.Collection(pairsCollection),
		tokens:   db.Collection(tokensCollection),
		settings: db.Collection(settingsCollection),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// LoadPairs reads the full pairs collection for the snapshot.
func (s *Store) LoadPairs(ctx context.Context) ([]model.Pair, error) {
	cursor, err := s.pairs.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find pairs: %w", err)
	}
	var pairs []model.Pair
	if err := cursor.All(ctx, &pairs); err != nil {
		return nil, fmt.Errorf("decode pairs: %w", err)
	}
	return pairs, nil
}

// LoadTokens reads the full tokens collection for the snapshot.
func (s *Store) LoadTokens(ctx context.Context) ([]model.Token, error) {
	cursor, err := s.tokens.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find tokens: %w", err)
	}
	var tokens []model.Token
	if err := cursor.All(ctx, &tokens); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	return tokens, nil
}

// ApplyBulk upserts one pass's diffs, carrying only the changed fields.
func (s *Store) ApplyBulk(ctx context.Context, ops model.BulkOperations) error {
	if len(ops.Pairs) > 0 {
		writes := make([]mongo.WriteModel, 0, len(ops.Pairs))
		for _, diff := range ops.Pairs {
			writes = append(writes, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"address": diff.Address}).
				SetUpdate(bson.M{"$set": PairSetDoc(diff)}).
				SetUpsert(true))
		}
		if _, err := s.pairs.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("bulk write pairs: %w", err)
		}
	}

	if len(ops.Tokens) > 0 {
		writes := make([]mongo.WriteModel, 0, len(ops.Tokens))
		for _, diff := range ops.Tokens {
			writes = append(writes, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"identifier": diff.Identifier}).
				SetUpdate(bson.M{"$set": TokenSetDoc(diff)}).
				SetUpsert(true))
		}
		if _, err := s.tokens.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("bulk write tokens: %w", err)
		}
	}

	return nil
}

// CommonTokens reads the whitelist of common token identifiers. A missing
// settings document means an empty whitelist, not an error.
func (s *Store) CommonTokens(ctx context.Context) ([]string, error) {
	var doc struct {
		Tokens []string `bson:"tokens"`
	}
	err := s.settings.FindOne(ctx, bson.M{"_id": commonTokensDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("load common tokens: %w", err)
	}
	return doc.Tokens, nil
}
