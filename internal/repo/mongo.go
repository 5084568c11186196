package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"call-intake/internal/lead"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// CollectionCallers holds one document per normalized phone number.
const CollectionCallers = "callers"

// MongoRepository stores callers as documents with an embedded call history.
type MongoRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongo connects to MongoDB and verifies the primary is reachable.
func NewMongo(ctx context.Context, uri, database string, logger *slog.Logger) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	r := newMongo(client.Database(database).Collection(CollectionCallers), logger)
	r.client = client
	return r, nil
}

func newMongo(coll *mongo.Collection, logger *slog.Logger) *MongoRepository {
	return &MongoRepository{
		coll:   coll,
		logger: logger.With("component", "repo_mongo"),
	}
}

// Close disconnects the client.
func (r *MongoRepository) Close() {
	if r.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Disconnect(ctx); err != nil {
		r.logger.Warn("disconnect mongodb", "error", err)
	}
}

// Ping ensures the primary is reachable.
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

// RunMigrations creates the collection indexes. The SQL files in filesystem
// do not apply to MongoDB.
func (r *MongoRepository) RunMigrations(ctx context.Context, _ fs.FS) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "phoneNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_phone_number"),
		},
		{
			Keys:    bson.D{{Key: "updatedAt", Value: -1}},
			Options: options.Index().SetName("idx_updated_at"),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create caller indexes: %w", err)
	}
	return nil
}

// FindByPhone returns the caller stored under phone.
func (r *MongoRepository) FindByPhone(ctx context.Context, phone string) (*Caller, error) {
	var c Caller
	err := r.coll.FindOne(ctx, bson.M{"phoneNumber": phone}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find caller by phone: %w", err)
	}
	return &c, nil
}

// UpsertCall issues one findAndModify with upsert. Known profile values go to
// $set and placeholders to $setOnInsert, so a placeholder only ever lands on
// a fresh document.
func (r *MongoRepository) UpsertCall(ctx context.Context, update CallerUpdate) (*Caller, error) {
	update, err := prepare(update)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"phoneNumber": update.PhoneNumber}
	doc := upsertDocument(update)
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c Caller
	err = r.coll.FindOneAndUpdate(ctx, filter, doc, opts).Decode(&c)
	if mongo.IsDuplicateKeyError(err) {
		// Two first calls raced on the unique index; the loser now matches.
		r.logger.Debug("retrying caller upsert after duplicate key", "phone", update.PhoneNumber)
		err = r.coll.FindOneAndUpdate(ctx, filter, doc, opts).Decode(&c)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert caller: %w", err)
	}
	return &c, nil
}

func upsertDocument(update CallerUpdate) bson.M {
	set := bson.M{"updatedAt": update.At}
	onInsert := bson.M{
		"_id":       randomUUID(),
		"createdAt": update.At,
	}
	for _, f := range update.Profile.fields() {
		if !lead.Known(f.value) {
			onInsert[f.key] = f.value
		} else {
			set[f.key] = f.value
		}
	}
	return bson.M{
		"$setOnInsert": onInsert,
		"$set":         set,
		"$push":        bson.M{"calls": update.Call},
	}
}
