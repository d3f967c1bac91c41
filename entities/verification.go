package entities

import (
	"time"

	"github.com/louskac/VHP/application/utils"
)

type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// StepResult is the outcome of a single verification step. Confidence uses
// the external 0-100 scale; internal classifier confidences (0.0-1.0) are
// multiplied by 100 exactly once when the result is built.
type StepResult struct {
	StepID     string     `bson:"stepID" json:"stepID"`
	Name       string     `bson:"name" json:"name"`
	Status     StepStatus `bson:"status" json:"status"`
	Passed     bool       `bson:"passed" json:"passed"`
	Confidence float64    `bson:"confidence" json:"confidence"`
	Details    string     `bson:"details" json:"details"`

	// step-specific fields
	FaceAreaRatio      *float64 `bson:"faceAreaRatio,omitempty" json:"faceAreaRatio,omitempty"`
	FramesChecked      *int     `bson:"framesChecked,omitempty" json:"framesChecked,omitempty"`
	JudgeScore         *int     `bson:"judgeScore,omitempty" json:"judgeScore,omitempty"`
	ChallengeCompleted *bool    `bson:"challengeCompleted,omitempty" json:"challengeCompleted,omitempty"`
}

// PipelineRun is one complete verification attempt. It is appended to while
// the pipeline executes and immutable once Finalize has been called.
type PipelineRun struct {
	ID                string       `bson:"runID" json:"runID"`
	ChallengeID       string       `bson:"challengeID" json:"challengeID"`
	Steps             []StepResult `bson:"steps" json:"steps"`
	OverallPass       bool         `bson:"overallPass" json:"overallPass"`
	OverallConfidence float64      `bson:"overallConfidence" json:"overallConfidence"`
	StartedAt         time.Time    `bson:"startedAt" json:"startedAt"`
	CompletedAt       time.Time    `bson:"completedAt" json:"completedAt"`
}

func NewPipelineRun(challengeID string) *PipelineRun {
	return &PipelineRun{
		ID:          utils.GenerateULIDString(),
		ChallengeID: challengeID,
		StartedAt:   time.Now(),
	}
}

func (pr *PipelineRun) Append(result StepResult) {
	pr.Steps = append(pr.Steps, result)
}

// Finalize computes the aggregate outcome. Overall pass is the AND of all
// executed steps; overall confidence is the mean of the confidences of the
// steps that passed.
func (pr *PipelineRun) Finalize() {
	pr.OverallPass = len(pr.Steps) > 0
	var sum float64
	var passed int
	for _, step := range pr.Steps {
		if step.Status == StepStatusPending {
			continue
		}
		if !step.Passed {
			pr.OverallPass = false
			continue
		}
		sum += step.Confidence
		passed++
	}
	if passed > 0 {
		pr.OverallConfidence = sum / float64(passed)
	}
	pr.CompletedAt = time.Now()
}

func (pr *PipelineRun) ParseModel() any {
	return pr
}

// Challenge is a short task description the user must perform on camera.
// Issued challenges live in redis until they expire or are consumed.
type Challenge struct {
	ID          string    `json:"challengeID"`
	Description string    `json:"description"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// VerificationRecord is the persisted trace of a finished run, the local
// source of truth for the off-chain metadata log.
type VerificationRecord struct {
	ID                string       `bson:"_id" json:"id"`
	ChallengeID       string       `bson:"challengeID" json:"challengeID"`
	Challenge         string       `bson:"challenge" json:"challenge"`
	Recipient         string       `bson:"recipient" json:"recipient"`
	OverallPass       bool         `bson:"overallPass" json:"overallPass"`
	OverallConfidence float64      `bson:"overallConfidence" json:"overallConfidence"`
	Steps             []StepResult `bson:"steps" json:"steps"`
	TransactionID     *string      `bson:"transactionID,omitempty" json:"transactionID,omitempty"`
	CreatedAt         time.Time    `bson:"createdAt" json:"createdAt"`
}

func (vr VerificationRecord) ParseModel() any {
	return vr
}
