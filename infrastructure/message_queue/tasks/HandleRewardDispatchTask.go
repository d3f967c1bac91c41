package queue_tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	"github.com/louskac/VHP/application/repository"
	"github.com/louskac/VHP/infrastructure/logger"
	mq_types "github.com/louskac/VHP/infrastructure/message_queue/types"
	"github.com/louskac/VHP/infrastructure/network"
)

var HandleRewardDispatchTaskName mq_types.Queues = "dispatch_reward"

type RewardDispatchPayload struct {
	ChallengeID string
	Recipient   string
	Amount      uint
}

type chainGatewayResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionID"`
	Error         string `json:"error"`
}

func HandleRewardDispatchTask(ctx context.Context, t *asynq.Task) error {
	var payload RewardDispatchPayload
	err := json.Unmarshal(t.Payload(), &payload)
	if err != nil {
		logger.Error("an error occured while unmarshalling reward dispatch payload", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}
	gateway := network.NetworkController{
		BaseUrl: os.Getenv("CHAIN_GATEWAY_URL"),
	}
	response, statusCode, err := gateway.Post("/transfer", &map[string]string{}, map[string]any{
		"challengeID": payload.ChallengeID,
		"recipient":   payload.Recipient,
		"amount":      payload.Amount,
	})
	if err != nil {
		logger.Error("failed to reach chain gateway for reward dispatch", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "challengeID",
			Data: payload.ChallengeID,
		})
		return err
	}
	if statusCode == nil || *statusCode != 200 {
		logger.Error("chain gateway rejected reward dispatch", logger.LoggerOptions{
			Key:  "statusCode",
			Data: statusCode,
		}, logger.LoggerOptions{
			Key:  "challengeID",
			Data: payload.ChallengeID,
		})
		return fmt.Errorf("chain gateway returned a non-200 status for challenge %s", payload.ChallengeID)
	}
	var gatewayResponse chainGatewayResponse
	if err := json.Unmarshal(*response, &gatewayResponse); err != nil {
		logger.Error("failed to parse chain gateway response", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}
	if !gatewayResponse.Success {
		return fmt.Errorf("reward dispatch failed for challenge %s: %s", payload.ChallengeID, gatewayResponse.Error)
	}

	verificationRepo := repository.VerificationRepo()
	_, err = verificationRepo.UpdatePartialByFilter(map[string]interface{}{
		"challengeID": payload.ChallengeID,
		"recipient":   payload.Recipient,
	}, map[string]interface{}{
		"transactionID": gatewayResponse.TransactionID,
	})
	if err != nil {
		logger.Error("failed to record reward transaction on verification record", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "transactionID",
			Data: gatewayResponse.TransactionID,
		})
		return err
	}
	logger.Info("reward dispatched", logger.LoggerOptions{
		Key:  "challengeID",
		Data: payload.ChallengeID,
	}, logger.LoggerOptions{
		Key:  "transactionID",
		Data: gatewayResponse.TransactionID,
	})
	return nil
}
