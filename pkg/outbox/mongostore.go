package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-sync/pkg/mongo"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

const eventCollection = "outbox_events"

// MongoStore is the durable Store implementation. Every transition is a
// single-document atomic update, so multiple dispatcher instances can
// share one collection safely.
type MongoStore struct {
	coll *mongodriver.Collection
	log  *zap.Logger
}

func NewMongoStore(m mongo.Mongo, log *zap.Logger) *MongoStore {
	return &MongoStore{
		coll: m.GetCollection(eventCollection),
		log:  log,
	}
}

// EnsureIndexes creates the indexes backing the active queries.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "eventType", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "publishedAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create outbox indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Append(ctx context.Context, event *Event) (*Event, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	stored := copyEvent(event)
	stored.normalize(time.Now().UTC())

	if _, err := s.coll.InsertOne(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to append outbox event: %w", err)
	}

	return stored, nil
}

func (s *MongoStore) ListPending(ctx context.Context, tenantID string, limit int) ([]*Event, error) {
	filter := bson.M{"status": StatusPending}
	if tenantID != "" {
		filter["tenantId"] = tenantID
	}
	return s.find(ctx, filter, limit)
}

func (s *MongoStore) FindByType(ctx context.Context, eventType string, limit int) ([]*Event, error) {
	return s.find(ctx, bson.M{"status": StatusPending, "eventType": eventType}, limit)
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	cursor, err := s.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var events []*Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode outbox events: %w", err)
	}
	return events, nil
}

func (s *MongoStore) Claim(ctx context.Context, id string) (bool, error) {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusPending},
		bson.M{"$set": bson.M{"status": StatusProcessing}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim outbox event %s: %w", id, err)
	}
	return result.ModifiedCount == 1, nil
}

func (s *MongoStore) Release(ctx context.Context, id string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusProcessing},
		bson.M{"$set": bson.M{"status": StatusPending}},
	)
	if err != nil {
		return fmt.Errorf("failed to release outbox event %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) MarkPublished(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []Status{StatusPending, StatusProcessing, StatusFailed}}},
		bson.M{
			"$set":   bson.M{"status": StatusPublished, "publishedAt": now},
			"$unset": bson.M{"error": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s published: %w", id, err)
	}
	if result.MatchedCount == 1 {
		return nil
	}

	// Either the event does not exist or it already left the active set.
	var current Event
	err = s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&current)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load outbox event %s: %w", id, err)
	}
	if current.Status == StatusPublished {
		return nil
	}
	return fmt.Errorf("cannot publish %s event %s", current.Status, id)
}

func (s *MongoStore) MarkFailed(ctx context.Context, id string, errText string) error {
	// $inc keeps the read-modify-write of retryCount on the server, so
	// concurrent dispatchers cannot lose an increment.
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set": bson.M{"status": StatusFailed, "error": errText},
			"$inc": bson.M{"retryCount": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s failed: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return nil
}

func (s *MongoStore) RetryFailedEvents(ctx context.Context, tenantID string, maxRetries int) (*RetryResult, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	exhaustedFilter := bson.M{"status": StatusFailed, "retryCount": bson.M{"$gte": maxRetries}}
	if tenantID != "" {
		exhaustedFilter["tenantId"] = tenantID
	}

	cursor, err := s.coll.Find(ctx, exhaustedFilter,
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query exhausted events: %w", err)
	}
	var exhausted []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &exhausted); err != nil {
		return nil, fmt.Errorf("failed to decode exhausted events: %w", err)
	}

	retryFilter := bson.M{"status": StatusFailed, "retryCount": bson.M{"$lt": maxRetries}}
	if tenantID != "" {
		retryFilter["tenantId"] = tenantID
	}

	updated, err := s.coll.UpdateMany(ctx, retryFilter, bson.M{
		"$set":   bson.M{"status": StatusPending},
		"$unset": bson.M{"error": ""},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retry failed events: %w", err)
	}

	result := &RetryResult{
		Retried: int(updated.ModifiedCount),
		Skipped: len(exhausted),
	}
	for _, e := range exhausted {
		result.SkippedEvents = append(result.SkippedEvents, e.ID)
	}
	return result, nil
}

func (s *MongoStore) PurgeOldEvents(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays < 1 {
		return 0, fmt.Errorf("%w: olderThanDays must be at least 1, got %d", ErrInvalidArgument, olderThanDays)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	result, err := s.coll.DeleteMany(ctx, bson.M{
		"status":      StatusPublished,
		"publishedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge outbox events: %w", err)
	}
	return result.DeletedCount, nil
}

func (s *MongoStore) Archive(ctx context.Context, id string) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusPublished},
		bson.M{"$set": bson.M{"status": StatusArchived}},
	)
	if err != nil {
		return fmt.Errorf("failed to archive outbox event %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: no published event %s", ErrEventNotFound, id)
	}
	return nil
}

func (s *MongoStore) GetEventStats(ctx context.Context, tenantID string) (*Stats, error) {
	match := bson.M{"status": bson.M{"$ne": StatusArchived}}
	if tenantID != "" {
		match["tenantId"] = tenantID
	}

	byStatus, err := s.countBy(ctx, match, "$status")
	if err != nil {
		return nil, err
	}
	byType, err := s.countBy(ctx, match, "$eventType")
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ByStatus:    make(map[Status]int64, len(byStatus)),
		ByEventType: byType,
	}
	for status, count := range byStatus {
		stats.ByStatus[Status(status)] = count
		stats.Total += count
	}
	return stats, nil
}

func (s *MongoStore) countBy(ctx context.Context, match bson.M, field string) (map[string]int64, error) {
	cursor, err := s.coll.Aggregate(ctx, mongodriver.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate outbox stats: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode outbox stats: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ID] = row.Count
	}
	return counts, nil
}

func (s *MongoStore) BatchPublish(ctx context.Context, ids []string) (*BatchPublishResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: event id list is empty", ErrInvalidArgument)
	}

	result := &BatchPublishResult{}
	for _, id := range ids {
		if err := s.MarkPublished(ctx, id); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BatchPublishError{EventID: id, Error: err.Error()})
			continue
		}
		result.Published++
	}
	return result, nil
}
