package customobject

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoObject struct {
	Container      string    `bson:"container"`
	Key            string    `bson:"key"`
	Value          bson.M    `bson:"value"`
	Version        int64     `bson:"version"`
	CreatedAt      time.Time `bson:"created_at"`
	LastModifiedAt time.Time `bson:"last_modified_at"`
}

type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("custom_objects"),
	}
}

func (m *MongoStore) Get(ctx context.Context, container, key string) (*Object, error) {
	var doc mongoObject

	filter := bson.M{"container": container, "key": key}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get custom object %s/%s: %w", container, key, err)
	}

	return doc.toObject()
}

func (m *MongoStore) Upsert(ctx context.Context, container, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal custom object value failed: %w", err)
	}

	// values are kept as documents so they stay queryable from the shell
	var doc bson.M
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return fmt.Errorf("custom object value must be a JSON object: %w", err)
	}

	now := time.Now().UTC()
	filter := bson.M{"container": container, "key": key}
	update := bson.M{
		"$set":         bson.M{"value": doc, "last_modified_at": now},
		"$setOnInsert": bson.M{"created_at": now},
		"$inc":         bson.M{"version": 1},
	}
	opts := options.Update().SetUpsert(true)

	_, err = m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert custom object %s/%s: %w", container, key, err)
	}

	return nil
}

func (m *MongoStore) List(ctx context.Context, container string, offset, limit int) ([]Object, int, error) {
	filter := bson.M{"container": container}

	total, err := m.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count custom objects: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "key", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list custom objects: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoObject
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode custom objects: %w", err)
	}

	objects := make([]Object, 0, len(docs))
	for _, doc := range docs {
		obj, err := doc.toObject()
		if err != nil {
			return nil, 0, err
		}
		objects = append(objects, *obj)
	}

	return objects, int(total), nil
}

func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "container", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func (d mongoObject) toObject() (*Object, error) {
	raw, err := bson.MarshalExtJSON(d.Value, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to encode custom object %s/%s: %w", d.Container, d.Key, err)
	}

	return &Object{
		Container:      d.Container,
		Key:            d.Key,
		Value:          raw,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		LastModifiedAt: d.LastModifiedAt,
	}, nil
}
