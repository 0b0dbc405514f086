package startup

import (
	"context"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/lovenav/internal/logger"
)

// ConnectMongoWithRetry подключается к Mongo с повторами; при недоступности БД не роняет процесс сразу.
// logPrefix добавляется к сообщениям лога (например "api: ").
func ConnectMongoWithRetry(uri, database string, maxWait time.Duration, logPrefix string) *mongo.Database {
	deadline := time.Now().Add(maxWait)
	backoff := 2 * time.Second
	for {
		client, err := mongo.Connect(options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second))
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = client.Ping(pingCtx, readpref.Primary())
			pingCancel()
			if err == nil {
				return client.Database(database)
			}
			_ = client.Disconnect(context.Background())
		}
		if time.Now().After(deadline) {
			logger.Errorf("%smongo connect (gave up after %v): %v", logPrefix, maxWait, err)
			os.Exit(1)
		}
		logger.Errorf("%smongo connect failed, retry in %v: %v", logPrefix, backoff, err)
		time.Sleep(backoff)
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// EnsureIndexes создаёт нужные индексы. Идемпотентно, зовётся на старте.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := db.Collection("couples").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "invite_code", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := db.Collection("bookmarks").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "couple_id", Value: 1}, {Key: "place_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := db.Collection("visits").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "couple_id", Value: 1}, {Key: "visited_at", Value: -1}},
	}); err != nil {
		return err
	}
	for _, coll := range []string{"places", "challenge_places"} {
		if _, err := db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		}); err != nil {
			return err
		}
	}
	return nil
}
