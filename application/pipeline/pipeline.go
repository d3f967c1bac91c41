package pipeline

import (
	"context"
	"fmt"

	"github.com/louskac/VHP/application/constants"
	"github.com/louskac/VHP/entities"
	"github.com/louskac/VHP/infrastructure/detection"
	"github.com/louskac/VHP/infrastructure/judge"
	judge_types "github.com/louskac/VHP/infrastructure/judge/types"
	"github.com/louskac/VHP/infrastructure/logger"
	"github.com/louskac/VHP/infrastructure/video"
)

// ProgressFunc receives step progress as the pipeline executes. percent is
// 0-100 within the named step, with checkpoints emitted as the step works.
type ProgressFunc func(stepID string, percent int, message string)

// SourceOpener turns an uploaded video blob into a seekable frame source.
type SourceOpener func(blob *entities.MediaBlob) (video.Source, error)

// Pipeline runs the four verification steps in order. Run never returns an
// error: every failure mode becomes a failed step result, and steps after
// the first failure are reported as pending.
type Pipeline struct {
	Classifier video.FrameClassifier
	Judge      judge_types.VisionJudge
	OpenSource SourceOpener
	Progress   ProgressFunc
}

// NewPipeline wires the production pipeline from the shared singletons.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Classifier: detection.Service(),
		Judge:      judge.JudgeService,
		OpenSource: func(blob *entities.MediaBlob) (video.Source, error) {
			return video.NewFFmpegSource(blob)
		},
	}
}

type stepSpec struct {
	id   string
	name string
	run  func(ctx context.Context, in *runInput) entities.StepResult
}

type runInput struct {
	video     *entities.MediaBlob
	photo     *entities.MediaBlob
	challenge string
}

func (p *Pipeline) steps() []stepSpec {
	return []stepSpec{
		{constants.StepBasicFileCheck, "Basic File Check", p.basicFileCheck},
		{constants.StepHumanVideoCheck, "Human Video Check", p.humanVideoCheck},
		{constants.StepHumanSelfieCheck, "Human Selfie Check", p.humanSelfieCheck},
		{constants.StepAIChallengeCheck, "AI Challenge Check", p.aiChallengeCheck},
	}
}

func (p *Pipeline) Run(ctx context.Context, videoBlob *entities.MediaBlob, photoBlob *entities.MediaBlob, challengeID string, challengeDescription string) *entities.PipelineRun {
	run := entities.NewPipelineRun(challengeID)
	in := &runInput{video: videoBlob, photo: photoBlob, challenge: challengeDescription}

	steps := p.steps()
	failed := false
	for _, step := range steps {
		if failed {
			run.Append(entities.StepResult{
				StepID: step.id,
				Name:   step.name,
				Status: entities.StepStatusPending,
			})
			continue
		}

		p.reportProgress(step.id, 0, fmt.Sprintf("running %s", step.name))

		var result entities.StepResult
		if err := ctx.Err(); err != nil {
			result = entities.StepResult{
				Passed:  false,
				Details: fmt.Sprintf("verification timed out before this step could run: %v", err),
			}
		} else {
			result = p.executeStepWithDeadline(ctx, step, in)
		}
		result.StepID = step.id
		result.Name = step.name
		if result.Passed {
			result.Status = entities.StepStatusCompleted
		} else {
			result.Status = entities.StepStatusFailed
			failed = true
		}
		run.Append(result)

		p.reportProgress(step.id, 100, result.Details)
	}

	run.Finalize()
	logger.Info("verification pipeline finished", logger.LoggerOptions{
		Key:  "runID",
		Data: run.ID,
	}, logger.LoggerOptions{
		Key:  "overallPass",
		Data: run.OverallPass,
	}, logger.LoggerOptions{
		Key:  "overallConfidence",
		Data: run.OverallConfidence,
	})
	return run
}

// executeStepWithDeadline fails the step as soon as the run deadline fires,
// even while the step is still working. The abandoned step goroutine finishes
// on its own; its result is discarded.
func (p *Pipeline) executeStepWithDeadline(ctx context.Context, step stepSpec, in *runInput) entities.StepResult {
	done := make(chan entities.StepResult, 1)
	go func() {
		done <- p.executeStep(ctx, step, in)
	}()
	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		return entities.StepResult{
			Passed:  false,
			Details: fmt.Sprintf("verification timed out during this step: %v", ctx.Err()),
		}
	}
}

// executeStep contains the step crash boundary. A panicking step becomes a
// failed result instead of taking down the run.
func (p *Pipeline) executeStep(ctx context.Context, step stepSpec, in *runInput) (result entities.StepResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("verification step panicked", logger.LoggerOptions{
				Key:  "stepID",
				Data: step.id,
			}, logger.LoggerOptions{
				Key:  "panic",
				Data: fmt.Sprintf("%v", r),
			})
			result = entities.StepResult{
				Passed:  false,
				Details: "step failed due to an internal error",
			}
		}
	}()
	return step.run(ctx, in)
}

func (p *Pipeline) reportProgress(stepID string, percent int, message string) {
	if p.Progress == nil {
		return
	}
	p.Progress(stepID, percent, message)
}
