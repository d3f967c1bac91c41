package connection

import (
	"github.com/louskac/VHP/infrastructure/database/connection/cache"
	"github.com/louskac/VHP/infrastructure/database/connection/datastore"
)

func ConnectToDatabase() {
	datastore.ConnectMongo()
	cache.ConnectRedis()
}
