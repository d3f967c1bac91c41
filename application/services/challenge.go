package services

import (
	"math/rand"
	"time"

	"github.com/louskac/VHP/application/constants"
	"github.com/louskac/VHP/application/utils"
	"github.com/louskac/VHP/entities"
	"github.com/louskac/VHP/infrastructure/database/repository/cache"
	"github.com/louskac/VHP/infrastructure/logger"
)

// IssueChallenge picks a random action from the challenge pool and stores it
// against a fresh ID so a later submission can be judged against it.
func IssueChallenge() (*entities.Challenge, error) {
	description := constants.ChallengePool[rand.Intn(len(constants.ChallengePool))]
	challenge := &entities.Challenge{
		ID:          utils.GenerateULIDString(),
		Description: description,
		ExpiresAt:   time.Now().Add(constants.ChallengeTTL),
	}
	success := cache.Cache.CreateEntry(challengeCacheKey(challenge.ID), description, constants.ChallengeTTL)
	if !success {
		logger.Error("failed to store issued challenge", logger.LoggerOptions{
			Key:  "challengeID",
			Data: challenge.ID,
		})
		return nil, ErrChallengeStoreFailed
	}
	logger.Info("challenge issued", logger.LoggerOptions{
		Key:  "challengeID",
		Data: challenge.ID,
	})
	return challenge, nil
}

// ResolveChallenge looks up the description for a previously issued challenge.
// Expired or unknown IDs resolve to nil.
func ResolveChallenge(challengeID string) *string {
	return cache.Cache.FindOne(challengeCacheKey(challengeID))
}

// ConsumeChallenge resolves a challenge and removes it so it cannot be
// replayed by a second submission.
func ConsumeChallenge(challengeID string) *string {
	description := ResolveChallenge(challengeID)
	if description == nil {
		return nil
	}
	cache.Cache.DeleteOne(challengeCacheKey(challengeID))
	return description
}

func challengeCacheKey(challengeID string) string {
	return "vhp-challenge-" + challengeID
}
