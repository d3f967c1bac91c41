package repository

import (
	"sync"

	"github.com/louskac/VHP/entities"
	"github.com/louskac/VHP/infrastructure/database/connection/datastore"
	"github.com/louskac/VHP/infrastructure/database/repository/mongo"
)

var verificationOnce = sync.Once{}

var verificationRepository mongo.MongoRepository[entities.VerificationRecord]

func VerificationRepo() *mongo.MongoRepository[entities.VerificationRecord] {
	verificationOnce.Do(func() {
		verificationRepository = mongo.MongoRepository[entities.VerificationRecord]{Model: datastore.VerificationModel}
	})
	return &verificationRepository
}
