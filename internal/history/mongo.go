// Package history persists one record per processed download task so repeated
// crawl runs can be audited. Recording is optional: the crawler works without
// a configured MongoDB connection.
package history

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"election_crawler/internal/config"
)

type Record struct {
	RegionCode    string `bson:"region_code"`
	RegionName    string `bson:"region_name"`
	SubRegionCode string `bson:"sub_region_code"`
	SubRegionName string `bson:"sub_region_name"`
	Status        string `bson:"status"` // downloaded, skipped, error
	File          string `bson:"file,omitempty"`
	Bytes         int64  `bson:"bytes"`
	ErrorMessage  string `bson:"error_message,omitempty"`
	Timestamp     int64  `bson:"timestamp"`
	DurationMS    int64  `bson:"duration_ms"`
}

type Recorder struct {
	client  *mongo.Client
	history *mongo.Collection
}

func Open(ctx context.Context, cfg config.HistoryConfig) (*Recorder, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Connection))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	r := &Recorder{
		client:  client,
		history: client.Database(cfg.Database).Collection(cfg.Collection),
	}
	if err := r.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("can't create indexes: %w", err)
	}
	return r, nil
}

func (r *Recorder) createIndexes(ctx context.Context) error {
	idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.history.Indexes().CreateOne(idxCtx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "region_code", Value: 1},
			{Key: "sub_region_code", Value: 1},
			{Key: "timestamp", Value: -1},
		},
	})
	return err
}

func (r *Recorder) Note(ctx context.Context, rec Record) error {
	insertCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.history.InsertOne(insertCtx, rec)
	return err
}

func (r *Recorder) Close(ctx context.Context) error {
	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return r.client.Disconnect(closeCtx)
}
