// File: metrics/mongo.go
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoOpTimeout = 5 * time.Second

// MongoStore persists rollups and bug reports to MongoDB.
type MongoStore struct {
	client       *mongo.Client
	dailyMetrics *mongo.Collection
	bugReports   *mongo.Collection
}

// NewMongoStore connects, pings, and ensures the unique date index on the
// rollup collection.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	store := &MongoStore{
		client:       client,
		dailyMetrics: db.Collection("daily_metrics"),
		bugReports:   db.Collection("bug_reports"),
	}

	indexCtx, cancelIdx := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancelIdx()
	_, err = store.dailyMetrics.Indexes().CreateOne(indexCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("mongo index: %w", err)
	}

	fmt.Printf("Metrics: connected to MongoDB (%s)\n", database)
	return store, nil
}

// SaveDailyRollup upserts the rollup by its date.
func (s *MongoStore) SaveDailyRollup(ctx context.Context, rollup DailyRollup) error {
	opCtx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := s.dailyMetrics.ReplaceOne(
		opCtx,
		bson.M{"date": rollup.Date},
		rollup,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save rollup %s: %w", rollup.Date, err)
	}
	return nil
}

// SaveBugReport inserts one report document.
func (s *MongoStore) SaveBugReport(ctx context.Context, report BugReport) error {
	opCtx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	if _, err := s.bugReports.InsertOne(opCtx, report); err != nil {
		return fmt.Errorf("save bug report: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	return s.client.Disconnect(opCtx)
}
