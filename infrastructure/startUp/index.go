package startup

import (
	"github.com/louskac/VHP/infrastructure/database"
	"github.com/louskac/VHP/infrastructure/database/connection/datastore"
	"github.com/louskac/VHP/infrastructure/detection"
	"github.com/louskac/VHP/infrastructure/judge"
	"github.com/louskac/VHP/infrastructure/logger"
)

// Used to start services such as loggers, databases, queues, etc.
func StartServices() {
	logger.InitializeLogger()
	database.SetUpDatabase()
	detection.InitialiseDetectionService()
	judge.InitialiseJudgeService()
}

// Used to clean up after services that have been shutdown.
func CleanUpServices() {
	detection.Dispose()
	datastore.CleanUp()
}
