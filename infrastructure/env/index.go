package env

import (
	"github.com/joho/godotenv"
	"github.com/louskac/VHP/infrastructure/logger"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		logger.Info("error loading env variables")
	}
}

func LoadEnv() {
}
