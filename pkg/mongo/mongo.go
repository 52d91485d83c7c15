package mongo

import (
	"context"
	"fmt"
	"strings"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// Mongo is the public interface for repository access.
type Mongo interface {
	GetCollection(name string) *mongodriver.Collection
	GetDatabase() *mongodriver.Database
}

type mongo struct {
	client       *mongodriver.Client
	database     *mongodriver.Database
	databaseName string
	conf         Config
	log          *zap.Logger
}

func newMongo(log *zap.Logger, conf Config) (*mongo, error) {
	if err := validateConfig(conf); err != nil {
		return nil, err
	}

	uri := buildURI(conf)
	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(conf.MaxPoolSize).
		SetMinPoolSize(conf.MinPoolSize).
		// Decode nested documents into maps, not bson.D, so documents
		// loaded into map[string]any fields keep their object shape.
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	// Client is created eagerly so GetCollection never sees a nil client.
	// Actual connectivity is validated in connect() via Ping.
	client, err := mongodriver.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	return &mongo{
		client:       client,
		database:     client.Database(conf.Database),
		databaseName: conf.Database,
		conf:         conf,
		log:          log,
	}, nil
}

func buildURI(conf Config) string {
	if conf.ConnectionString != "" {
		return conf.ConnectionString
	}

	var sb strings.Builder
	sb.WriteString("mongodb://")
	if conf.Username != "" {
		sb.WriteString(fmt.Sprintf("%s:%s@", conf.Username, conf.Password))
	}
	sb.WriteString(fmt.Sprintf("%s:%d", conf.Host, conf.Port))

	params := make([]string, 0, 2)
	if conf.ReplicaSet != "" {
		params = append(params, "replicaSet="+conf.ReplicaSet)
	}
	if conf.DirectConnection {
		params = append(params, "directConnection=true")
	}
	if len(params) > 0 {
		sb.WriteString("/?" + strings.Join(params, "&"))
	}

	return sb.String()
}

func (m *mongo) connect(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, m.conf.ConnectTimeout)
	defer cancel()

	if err := m.client.Ping(c, nil); err != nil {
		return fmt.Errorf("failed to ping mongo: %w", err)
	}

	m.log.Info("connected to mongo", zap.String("database", m.databaseName))
	return nil
}

func (m *mongo) disconnect(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongo: %w", err)
	}
	m.log.Info("disconnected from mongo")
	return nil
}

func (m *mongo) GetCollection(name string) *mongodriver.Collection {
	return m.database.Collection(name)
}

func (m *mongo) GetDatabase() *mongodriver.Database {
	return m.database
}
