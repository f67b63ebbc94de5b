package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store with one MongoDB collection per document
// collection and the key as _id. Documents cross the boundary as relaxed
// extended JSON, so native dates surface as {"$date": ...}.
type MongoStore struct {
	db     *mongo.Database
	logger zerolog.Logger
}

// ConnectMongo opens a client and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// NewMongoStore creates a new MongoDB-backed document store.
func NewMongoStore(db *mongo.Database, logger zerolog.Logger) *MongoStore {
	return &MongoStore{
		db:     db,
		logger: logger.With().Str("component", "remote-mongo-store").Logger(),
	}
}

// Get retrieves a document by collection and key.
func (s *MongoStore) Get(ctx context.Context, collection, key string) (Document, error) {
	raw, err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": key}).Raw()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			s.logger.Debug().Str("collection", collection).Str("key", key).Msg("document not found")
			return nil, nil
		}
		s.logger.Error().Err(err).Str("collection", collection).Str("key", key).Msg("failed to query document")
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	delete(doc, "_id")
	return doc, nil
}

// Set merges fields into the document with $set and upsert.
func (s *MongoStore) Set(ctx context.Context, collection, key string, fields Document) error {
	if len(fields) == 0 {
		return nil
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	var update bson.D
	if err := bson.UnmarshalExtJSON(data, false, &update); err != nil {
		return fmt.Errorf("failed to convert document: %w", err)
	}

	_, err = s.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{"_id": key},
		bson.M{"$set": update},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("collection", collection).
			Str("key", key).
			Msg("failed to write document")
		return fmt.Errorf("failed to write document: %w", err)
	}

	s.logger.Debug().
		Str("collection", collection).
		Str("key", key).
		Int("fields", len(fields)).
		Msg("document written successfully")

	return nil
}
