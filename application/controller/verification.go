package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	apperrors "github.com/louskac/VHP/application/appErrors"
	"github.com/louskac/VHP/application/constants"
	"github.com/louskac/VHP/application/controller/dto"
	"github.com/louskac/VHP/application/interfaces"
	"github.com/louskac/VHP/application/pipeline"
	"github.com/louskac/VHP/application/repository"
	"github.com/louskac/VHP/application/services"
	"github.com/louskac/VHP/application/utils"
	"github.com/louskac/VHP/entities"
	"github.com/louskac/VHP/infrastructure/logger"
	messagequeue "github.com/louskac/VHP/infrastructure/message_queue"
	queue_tasks "github.com/louskac/VHP/infrastructure/message_queue/tasks"
	mq_types "github.com/louskac/VHP/infrastructure/message_queue/types"
	server_response "github.com/louskac/VHP/infrastructure/serverResponse"
	"github.com/louskac/VHP/infrastructure/validator"
)

const defaultPipelineTimeoutSeconds = 120

// RequestChallenge issues a short action challenge the caller must perform
// on camera before submitting.
func RequestChallenge(ctx *interfaces.ApplicationContext[any]) {
	challenge, err := services.IssueChallenge()
	if err != nil {
		apperrors.FatalServerError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusCreated, "challenge issued", challenge, nil, nil)
}

// SubmitVerification runs the full verification pipeline against an uploaded
// video and selfie, persists the outcome and, on a pass, queues the reward.
func SubmitVerification(ctx *interfaces.ApplicationContext[dto.SubmitVerificationDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}

	challengeDescription := services.ConsumeChallenge(ctx.Body.ChallengeID)
	if challengeDescription == nil {
		apperrors.NotFoundError(ctx.Ctx, "challenge not found or expired")
		return
	}

	videoBytes, err := utils.DecodeBase64Image(ctx.Body.Video)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, "invalid video encoding", nil, nil)
		return
	}
	photoBytes, err := utils.DecodeBase64Image(ctx.Body.Photo)
	if err != nil {
		apperrors.ClientError(ctx.Ctx, "invalid photo encoding", nil, nil)
		return
	}

	videoBlob := &entities.MediaBlob{MimeType: ctx.Body.VideoMimeType, Data: videoBytes}
	photoBlob := &entities.MediaBlob{MimeType: ctx.Body.PhotoMimeType, Data: photoBytes}

	runCtx, cancel := context.WithTimeout(context.Background(), pipelineTimeout())
	defer cancel()

	run := pipeline.NewPipeline().Run(runCtx, videoBlob, photoBlob, ctx.Body.ChallengeID, *challengeDescription)

	record := entities.VerificationRecord{
		ID:                run.ID,
		ChallengeID:       ctx.Body.ChallengeID,
		Challenge:         *challengeDescription,
		Recipient:         ctx.Body.Recipient,
		OverallPass:       run.OverallPass,
		OverallConfidence: run.OverallConfidence,
		Steps:             run.Steps,
		CreatedAt:         time.Now(),
	}
	_, err = repository.VerificationRepo().CreateOne(record)
	if err != nil {
		logger.Error("failed to persist verification record", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "runID",
			Data: run.ID,
		})
	}

	if run.OverallPass {
		payload, _ := json.Marshal(queue_tasks.RewardDispatchPayload{
			ChallengeID: ctx.Body.ChallengeID,
			Recipient:   ctx.Body.Recipient,
			Amount:      constants.DefaultRewardAmount,
		})
		messagequeue.TaskQueue.Enqueue(mq_types.QueueTask{
			Name:     queue_tasks.HandleRewardDispatchTaskName,
			Payload:  payload,
			Priority: mq_types.High,
		})
	}

	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "verification completed", run, nil, nil)
}

func pipelineTimeout() time.Duration {
	seconds, err := strconv.Atoi(os.Getenv("PIPELINE_TIMEOUT_SECONDS"))
	if err != nil || seconds <= 0 {
		seconds = defaultPipelineTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}
