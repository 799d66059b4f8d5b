package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/webshelf/webshelf/internal/types"
)

// MongoArchive appends every scraped record to a MongoDB collection, keeping
// a raw history of what each run saw alongside the reconciled catalog.
type MongoArchive struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoArchive connects to the MongoDB archive backend.
func NewMongoArchive(uri, database, collection string, logger *slog.Logger) (*MongoArchive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoArchive{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_archive"),
	}, nil
}

func (s *MongoArchive) Name() string { return "mongodb" }

func (s *MongoArchive) Store(records []*types.ParsedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]any, len(records))
	for i, rec := range records {
		docs[i] = map[string]any{
			"slug":            rec.Slug,
			"name":            rec.Name,
			"description":     rec.Description,
			"price":           rec.Price,
			"old_price":       rec.OldPrice,
			"category_name":   rec.CategoryName,
			"category_slug":   rec.CategorySlug,
			"images":          rec.Images,
			"characteristics": rec.Characteristics,
			"sku":             rec.SKU,
			"source_url":      rec.SourceURL,
			"scraped_at":      now,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("insert: %w", err)}
	}

	s.count += len(records)
	s.logger.Debug("records archived", "count", len(records), "total", s.count)
	return nil
}

func (s *MongoArchive) Close() error {
	s.logger.Info("mongo archive closing", "total_records", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
