// internal/output/mongodb.go - MongoDB sink
package output

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/CatalogScrapexter/internal/scraper"
)

// MongoDBOptions defines MongoDB-specific configuration options
type MongoDBOptions struct {
	ConnectionString string
	Database         string
	Collection       string
	Timeout          time.Duration
}

// MongoDBSink buffers documents and inserts them with one ordered
// InsertMany on Close, so an aborted export writes nothing.
type MongoDBSink struct {
	ctx        context.Context
	client     *mongo.Client
	collection *mongo.Collection
	config     MongoDBOptions
	columns    []string
	buffer     []interface{}
	closed     bool
}

// NewMongoDBSink connects to MongoDB and verifies the connection.
func NewMongoDBSink(ctx context.Context, config MongoDBOptions) (*MongoDBSink, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("MongoDB connection string is required")
	}
	if config.Database == "" {
		return nil, fmt.Errorf("MongoDB database name is required")
	}
	if config.Collection == "" {
		return nil, fmt.Errorf("MongoDB collection name is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	clientOptions := options.Client().
		ApplyURI(config.ConnectionString).
		SetConnectTimeout(config.Timeout).
		SetServerSelectionTimeout(config.Timeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoDBSink{
		ctx:        ctx,
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
		config:     config,
	}, nil
}

// WriteHeader records the document keys.
func (s *MongoDBSink) WriteHeader(columns []string) error {
	if s.closed {
		return ErrSinkClosed
	}
	s.columns = append([]string(nil), columns...)
	return nil
}

// Append buffers one document. Documents keep the header order and carry
// their position in the export.
func (s *MongoDBSink) Append(record scraper.ProductRecord) error {
	if s.closed {
		return ErrSinkClosed
	}
	values := record.Columns()
	if len(values) != len(s.columns) {
		return fmt.Errorf("expected %d columns, got %d", len(s.columns), len(values))
	}

	doc := bson.D{{Key: "position", Value: len(s.buffer) + 1}}
	for i, key := range s.columns {
		doc = append(doc, bson.E{Key: key, Value: values[i]})
	}
	s.buffer = append(s.buffer, doc)
	return nil
}

// Close inserts the buffered documents and disconnects.
func (s *MongoDBSink) Close() error {
	if s.closed {
		return ErrSinkClosed
	}
	s.closed = true
	defer s.disconnect()

	if len(s.buffer) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.config.Timeout)
	defer cancel()
	if _, err := s.collection.InsertMany(ctx, s.buffer, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to insert documents: %w", err)
	}
	return nil
}

// Abort drops the buffer and disconnects.
func (s *MongoDBSink) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.buffer = nil
	return s.disconnect()
}

func (s *MongoDBSink) disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Format returns the output type
func (s *MongoDBSink) Format() string { return "mongodb" }

// Destination names the target without exposing credentials.
func (s *MongoDBSink) Destination() string {
	return fmt.Sprintf("mongodb:%s.%s", s.config.Database, s.config.Collection)
}
