package queue

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

const taskCollection = "sync_queue"

// MongoQueue is the durable Queue implementation. Leasing is a single
// conditional findAndModify, so concurrent workers never double-claim.
type MongoQueue struct {
	coll   *mongodriver.Collection
	policy RetryPolicy
	lease  time.Duration

	keepDone int
	keepDead int

	log *zap.Logger
}

func NewMongoQueue(m mongo.Mongo, conf Config, log *zap.Logger) *MongoQueue {
	conf.applyDefaults()
	return &MongoQueue{
		coll:     m.GetCollection(taskCollection),
		policy:   conf.retryPolicy(),
		lease:    conf.LeaseDuration,
		keepDone: conf.KeepDone,
		keepDead: conf.KeepDead,
		log:      log,
	}
}

func (q *MongoQueue) EnsureIndexes(ctx context.Context) error {
	_, err := q.coll.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "nextRunAt", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "leaseExpiresAt", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "finishedAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create queue indexes: %w", err)
	}
	return nil
}

func (q *MongoQueue) Enqueue(ctx context.Context, task *Task) (*Task, error) {
	stored := copyTask(task)
	if err := stored.normalize(time.Now().UTC(), q.policy.MaxAttempts); err != nil {
		return nil, err
	}

	if _, err := q.coll.InsertOne(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}
	return stored, nil
}

func (q *MongoQueue) FetchAndLease(ctx context.Context) (*Task, error) {
	now := time.Now().UTC()

	var task Task
	err := q.coll.FindOneAndUpdate(ctx,
		bson.M{"status": TaskStatusReady, "nextRunAt": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{
			"status":         TaskStatusLeased,
			"leaseExpiresAt": now.Add(q.lease),
		}},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "createdAt", Value: 1}}).
			SetReturnDocument(options.After),
	).Decode(&task)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, ErrNoTask
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lease task: %w", err)
	}
	return &task, nil
}

func (q *MongoQueue) Succeed(ctx context.Context, id string) error {
	result, err := q.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":   bson.M{"status": TaskStatusDone, "finishedAt": time.Now().UTC()},
			"$unset": bson.M{"leaseExpiresAt": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to finish task %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}

func (q *MongoQueue) Fail(ctx context.Context, id string, taskErr string) error {
	now := time.Now().UTC()

	// The lease holder is the only writer, so incrementing attempts and
	// deciding the next state in two steps stays race-free.
	var task Task
	err := q.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc":   bson.M{"attempts": 1},
			"$set":   bson.M{"lastError": taskErr},
			"$unset": bson.M{"leaseExpiresAt": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&task)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to record task failure %s: %w", id, err)
	}

	update := bson.M{"status": TaskStatusReady, "nextRunAt": now.Add(q.policy.Delay(task.Attempts))}
	if task.Attempts >= task.MaxAttempts {
		update = bson.M{"status": TaskStatusDead, "finishedAt": now}
		q.log.Warn("task exhausted its attempts",
			zap.String("taskId", id),
			zap.String("kind", task.Kind),
			zap.Int("attempts", task.Attempts),
			zap.String("lastError", taskErr),
		)
	}

	if _, err := q.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update}); err != nil {
		return fmt.Errorf("failed to reschedule task %s: %w", id, err)
	}
	return nil
}

func (q *MongoQueue) ReleaseExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC()

	result, err := q.coll.UpdateMany(ctx,
		bson.M{"status": TaskStatusLeased, "leaseExpiresAt": bson.M{"$lte": now}},
		bson.M{
			"$set":   bson.M{"status": TaskStatusReady, "nextRunAt": now},
			"$unset": bson.M{"leaseExpiresAt": ""},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired leases: %w", err)
	}
	return result.ModifiedCount, nil
}

func (q *MongoQueue) Prune(ctx context.Context) (int64, error) {
	pruned, err := q.pruneStatus(ctx, TaskStatusDone, q.keepDone)
	if err != nil {
		return pruned, err
	}
	prunedDead, err := q.pruneStatus(ctx, TaskStatusDead, q.keepDead)
	return pruned + prunedDead, err
}

func (q *MongoQueue) pruneStatus(ctx context.Context, status TaskStatus, keep int) (int64, error) {
	cursor, err := q.coll.Find(ctx,
		bson.M{"status": status},
		options.Find().
			SetSort(bson.D{{Key: "finishedAt", Value: -1}}).
			SetSkip(int64(keep)).
			SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to query %s tasks: %w", status, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var stale []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &stale); err != nil {
		return 0, fmt.Errorf("failed to decode %s tasks: %w", status, err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]string, len(stale))
	for i, doc := range stale {
		ids[i] = doc.ID
	}

	result, err := q.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to prune %s tasks: %w", status, err)
	}
	return result.DeletedCount, nil
}
