package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// SystemClient is the collaborator contract for both sides of a sync:
// the commerce engine and the content system. The orchestrator consumes
// only these four shapes and owns no schema beyond the linkage fields
// it writes (foreign sync ids, lastSyncAt, syncStatus).
type SystemClient interface {
	Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error)
	FindByID(ctx context.Context, collection, id string) (map[string]any, error)
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, data map[string]any) error
}

// MemoryClient is an in-process SystemClient used by tests and
// embedded setups.
type MemoryClient struct {
	mu          sync.RWMutex
	collections map[string][]map[string]any
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{collections: make(map[string][]map[string]any)}
}

// normalizeValue rewrites BSON container types into plain maps and
// slices. Documents decoded by the driver carry bson.D or bson.M for
// nested objects, which would defeat every map[string]any assertion in
// the mapping code.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case bson.D:
		doc := make(map[string]any, len(val))
		for _, e := range val {
			doc[e.Key] = normalizeValue(e.Value)
		}
		return doc
	case bson.M:
		doc := make(map[string]any, len(val))
		for k, inner := range val {
			doc[k] = normalizeValue(inner)
		}
		return doc
	case map[string]any:
		doc := make(map[string]any, len(val))
		for k, inner := range val {
			doc[k] = normalizeValue(inner)
		}
		return doc
	case bson.A:
		list := make([]any, len(val))
		for i, inner := range val {
			list[i] = normalizeValue(inner)
		}
		return list
	case []any:
		list := make([]any, len(val))
		for i, inner := range val {
			list[i] = normalizeValue(inner)
		}
		return list
	default:
		return v
	}
}

// normalizeDocument returns the value as a plain document, converting
// BSON shapes along the way.
func normalizeDocument(v any) (map[string]any, bool) {
	doc, ok := normalizeValue(v).(map[string]any)
	return doc, ok
}

func copyDoc(doc map[string]any) map[string]any {
	clone := make(map[string]any, len(doc))
	for k, v := range doc {
		clone[k] = v
	}
	return clone
}

func matchesFilter(doc, filter map[string]any) bool {
	for k, v := range filter {
		if doc[k] != v {
			return false
		}
	}
	return true
}

func (c *MemoryClient) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []map[string]any
	for _, doc := range c.collections[collection] {
		if matchesFilter(doc, filter) {
			result = append(result, copyDoc(doc))
		}
	}
	return result, nil
}

func (c *MemoryClient) FindByID(ctx context.Context, collection, id string) (map[string]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, doc := range c.collections[collection] {
		if doc["_id"] == id {
			return copyDoc(doc), nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
}

func (c *MemoryClient) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := copyDoc(data)
	id, _ := doc["_id"].(string)
	if id == "" {
		id = uuid.NewString()
		doc["_id"] = id
	}

	c.collections[collection] = append(c.collections[collection], doc)
	return id, nil
}

func (c *MemoryClient) Update(ctx context.Context, collection, id string, data map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range c.collections[collection] {
		if doc["_id"] == id {
			for k, v := range data {
				doc[k] = v
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
}
