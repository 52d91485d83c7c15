package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sokol111/ecommerce-sync/pkg/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
)

// MongoClient is a SystemClient over a Mongo-backed system mirror.
// Collections are namespaced per system so both sides of a sync can
// share one database.
type MongoClient struct {
	m      mongo.Mongo
	prefix string
}

func NewMongoClient(m mongo.Mongo, prefix string) *MongoClient {
	return &MongoClient{m: m, prefix: prefix}
}

func (c *MongoClient) coll(collection string) *mongodriver.Collection {
	return c.m.GetCollection(c.prefix + "_" + collection)
}

func (c *MongoClient) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	cursor, err := c.coll(collection).Find(ctx, bson.M(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []map[string]any
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s documents: %w", collection, err)
	}
	for i, doc := range docs {
		docs[i], _ = normalizeDocument(doc)
	}
	return docs, nil
}

func (c *MongoClient) FindByID(ctx context.Context, collection, id string) (map[string]any, error) {
	var doc map[string]any
	err := c.coll(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", collection, id, err)
	}
	normalized, _ := normalizeDocument(doc)
	return normalized, nil
}

func (c *MongoClient) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	doc := copyDoc(data)
	id, _ := doc["_id"].(string)
	if id == "" {
		id = uuid.NewString()
		doc["_id"] = id
	}

	if _, err := c.coll(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to create %s document: %w", collection, err)
	}
	return id, nil
}

func (c *MongoClient) Update(ctx context.Context, collection, id string, data map[string]any) error {
	result, err := c.coll(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(data)})
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
	}
	return nil
}
