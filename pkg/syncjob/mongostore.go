package syncjob

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

const jobCollection = "sync_jobs"

// MongoStore is the durable Store implementation.
type MongoStore struct {
	coll *mongodriver.Collection
	log  *zap.Logger
}

func NewMongoStore(m mongo.Mongo, log *zap.Logger) *MongoStore {
	return &MongoStore{
		coll: m.GetCollection(jobCollection),
		log:  log,
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{Keys: bson.D{{Key: "sourceCollection", Value: 1}, {Key: "sourceDocId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create sync job indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, job *Job) (*Job, error) {
	if err := validateJob(job); err != nil {
		return nil, err
	}

	stored := copyJob(job)
	stored.normalize(time.Now().UTC())

	if _, err := s.coll.InsertOne(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to create sync job: %w", err)
	}
	return stored, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Job, error) {
	var job Job
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync job %s: %w", id, err)
	}
	return &job, nil
}

func (s *MongoStore) FindLatestQueued(ctx context.Context, sourceCollection, sourceDocID string) (*Job, error) {
	return s.findNewest(ctx, bson.M{
		"sourceCollection": sourceCollection,
		"sourceDocId":      sourceDocID,
		"status":           JobStatusQueued,
	})
}

func (s *MongoStore) FindActive(ctx context.Context, sourceCollection, sourceDocID string) (*Job, error) {
	return s.findNewest(ctx, bson.M{
		"sourceCollection": sourceCollection,
		"sourceDocId":      sourceDocID,
		"status":           bson.M{"$in": []JobStatus{JobStatusQueued, JobStatusRunning}},
	})
}

func (s *MongoStore) findNewest(ctx context.Context, filter bson.M) (*Job, error) {
	var job Job
	err := s.coll.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})).Decode(&job)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync jobs: %w", err)
	}
	return &job, nil
}

func (s *MongoStore) MarkRunning(ctx context.Context, id string) (bool, error) {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": JobStatusQueued},
		bson.M{"$set": bson.M{"status": JobStatusRunning, "startedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark sync job %s running: %w", id, err)
	}
	return result.ModifiedCount == 1, nil
}

func (s *MongoStore) AppendLog(ctx context.Context, id string, level, message string) error {
	entry := LogEntry{Timestamp: time.Now().UTC(), Level: level, Message: message}
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"logs": entry}},
	)
	if err != nil {
		return fmt.Errorf("failed to append sync job log: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

func (s *MongoStore) SetTargetID(ctx context.Context, id, targetID string) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"targetId": targetID}},
	)
	if err != nil {
		return fmt.Errorf("failed to set sync job target id: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

func (s *MongoStore) Complete(ctx context.Context, id string, status JobStatus, errorMessage string) error {
	if status != JobStatusSuccess && status != JobStatusFailed {
		return fmt.Errorf("%w: cannot complete with status %q", ErrInvalidJob, status)
	}

	update := bson.M{"status": status, "finishedAt": time.Now().UTC()}
	if errorMessage != "" {
		update["errorMessage"] = errorMessage
	}

	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return fmt.Errorf("failed to complete sync job %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

func (s *MongoStore) ListByStatus(ctx context.Context, tenantID string, status JobStatus, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	filter := bson.M{"status": status}
	if tenantID != "" {
		filter["tenantId"] = tenantID
	}

	cursor, err := s.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to query sync jobs: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var jobs []*Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode sync jobs: %w", err)
	}
	return jobs, nil
}
