package datastore

import (
	"context"
	"os"
	"time"

	"github.com/louskac/VHP/infrastructure/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	VerificationModel *mongo.Collection

	cancelConn *context.CancelFunc
)

func ConnectMongo() {
	url := os.Getenv("DB_URL")

	if url == "" {
		logger.Error("mongo url missing")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	cancelConn = &cancel

	clientOpts := options.Client().ApplyURI(url)
	clientOpts.SetMinPoolSize(5)
	clientOpts.SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)

	if err != nil {
		logger.Warning("an error occured while starting the database", logger.LoggerOptions{Key: "error", Data: err})
		return
	}

	db := client.Database(os.Getenv("DB_NAME"))
	setUpIndexes(ctx, db)

	logger.Info("connected to mongodb successfully")
}

// Set up the indexes for the database
func setUpIndexes(ctx context.Context, db *mongo.Database) {
	VerificationModel = db.Collection("Verifications")
	VerificationModel.Indexes().CreateMany(ctx, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "challengeID", Value: 1}},
		Options: options.Index(),
	}, {
		Keys:    bson.D{{Key: "recipient", Value: 1}},
		Options: options.Index(),
	}})
}

func CleanUp() {
	if cancelConn != nil {
		(*cancelConn)()
	}
}
