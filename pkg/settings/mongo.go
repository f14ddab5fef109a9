package settings

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/echiweshe/sceneforge/pkg/errors"
)

const (
	settingsCollection = "settings"
	settingsDocID      = "default"
)

// MongoConfig configures the Mongo settings backend.
type MongoConfig struct {
	// URI is the connection string, e.g. mongodb://localhost:27017.
	URI string `json:"uri"`

	// Database holds the settings collection.
	Database string `json:"database"`
}

// MongoStore persists settings in a MongoDB collection, one document per
// install keyed by a fixed id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "connecting to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeIO, err, "pinging mongodb")
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(settingsCollection),
	}, nil
}

var _ Store = (*MongoStore)(nil)

type settingsDoc struct {
	ID       string   `bson:"_id"`
	Settings Settings `bson:"settings"`
}

// Load reads the settings document, returning defaults when none exists.
func (m *MongoStore) Load(ctx context.Context) (Settings, error) {
	var doc settingsDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": settingsDocID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Default(), nil
	}
	if err != nil {
		return Default(), errors.Wrap(errors.ErrCodeIO, err, "loading settings")
	}
	return doc.Settings, nil
}

// Save upserts the settings document.
func (m *MongoStore) Save(ctx context.Context, s Settings) error {
	_, err := m.coll.ReplaceOne(ctx,
		bson.M{"_id": settingsDocID},
		settingsDoc{ID: settingsDocID, Settings: s},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "saving settings")
	}
	return nil
}

// Close disconnects from MongoDB.
func (m *MongoStore) Close() error {
	return m.client.Disconnect(context.Background())
}
