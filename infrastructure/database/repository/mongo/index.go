package mongo

import (
	"context"
	"time"

	"github.com/louskac/VHP/infrastructure/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (repo *MongoRepository[T]) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

func (repo *MongoRepository[T]) CreateOne(payload T) (*T, error) {
	ctx, cancel := repo.requestContext()
	defer cancel()

	_, err := repo.Model.InsertOne(ctx, payload.ParseModel())
	if err != nil {
		logger.Error("mongo error occured while running CreateOne", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	return &payload, nil
}

func (repo *MongoRepository[T]) FindOneByFilter(filter map[string]interface{}, opts ...FindOptions) (*T, error) {
	ctx, cancel := repo.requestContext()
	defer cancel()

	findOpts := options.FindOne()
	if len(opts) > 0 {
		if opts[0].Projection != nil {
			findOpts.SetProjection(*opts[0].Projection)
		}
		if opts[0].Sort != nil {
			findOpts.SetSort(*opts[0].Sort)
		}
	}

	var result T
	err := repo.Model.FindOne(ctx, filter, findOpts).Decode(&result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (repo *MongoRepository[T]) UpdatePartialByFilter(filter map[string]interface{}, update map[string]interface{}) (bool, error) {
	ctx, cancel := repo.requestContext()
	defer cancel()

	result, err := repo.Model.UpdateOne(ctx, filter, bson.M{"$set": update})
	if err != nil {
		logger.Error("mongo error occured while running UpdatePartialByFilter", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (repo *MongoRepository[T]) CountDocs(filter map[string]interface{}) (int64, error) {
	ctx, cancel := repo.requestContext()
	defer cancel()

	return repo.Model.CountDocuments(ctx, filter)
}
