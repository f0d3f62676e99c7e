package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB at uri and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// mongoRecord is the document shape for one stored key.
type mongoRecord struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per key in a collection.
type MongoStore struct {
	Collection *mongo.Collection
	client     *mongo.Client
}

// NewMongoStore connects and returns a store on database/collection.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &MongoStore{
		Collection: client.Database(database).Collection(collection),
		client:     client,
	}, nil
}

// Get returns the value stored under key.
func (s *MongoStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.Collection == nil {
		return "", false, fmt.Errorf("mongo collection is nil")
	}
	var rec mongoRecord
	err := s.Collection.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mongo get %s: %w", key, err)
	}
	return rec.Value, true, nil
}

// Set upserts the document for key.
func (s *MongoStore) Set(ctx context.Context, key, value string) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if key == "" {
		return ErrEmptyKey
	}
	update := bson.M{"$set": bson.M{"value": value, "updated_at": time.Now().UTC()}}
	_, err := s.Collection.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo set %s: %w", key, err)
	}
	return nil
}

// Remove deletes the document for key.
func (s *MongoStore) Remove(ctx context.Context, key string) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if _, err := s.Collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongo remove %s: %w", key, err)
	}
	return nil
}

// Close disconnects the client if the store owns one.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
