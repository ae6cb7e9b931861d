package config

import (
	"context"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const databaseName = "lifelink"

type MongoDBConfig struct {
	URI string
}

func NewMongoDBConfig(log *zap.Logger) *MongoDBConfig {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		log.Fatal("MONGO_URI not set")
	}
	return &MongoDBConfig{URI: uri}
}

type MongoDBClient struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDBClient(lc fx.Lifecycle, config *MongoDBConfig, log *zap.Logger) (*MongoDBClient, *mongo.Database, error) {
	clientOptions := options.Client().ApplyURI(config.URI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", zap.Error(err))
	}

	log.Info("Connected to MongoDB")

	db := client.Database(databaseName)

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			return EnsureIndexes(startCtx, db, log)
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info("Closing MongoDB connection ...")
			return client.Disconnect(stopCtx)
		},
	})

	return &MongoDBClient{Client: client, Database: db}, db, nil
}

// EnsureIndexes creates the indexes the query paths depend on: the unique
// email constraint, the 2dsphere index backing the donor proximity search,
// and the alert listing/sweeping indexes.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := db.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.M{"email": 1},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.M{"location": "2dsphere"},
		},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("alerts").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "blood_group", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "hospital_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
	})
	if err != nil {
		return err
	}

	for _, coll := range []string{"donors", "hospitals"} {
		_, err = db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.M{"user_id": 1},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return err
		}
	}

	log.Info("MongoDB indexes ensured")
	return nil
}

func (c *MongoDBClient) GetCollection(collectionName string) *mongo.Collection {
	return c.Client.Database(databaseName).Collection(collectionName)
}
