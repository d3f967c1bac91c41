package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/louskac/VHP/application/constants"
	"github.com/louskac/VHP/application/utils"
	"github.com/louskac/VHP/entities"
	dtypes "github.com/louskac/VHP/infrastructure/detection/types"
	"github.com/louskac/VHP/infrastructure/logger"
	"github.com/louskac/VHP/infrastructure/video"
)

// validateVideoBlob and validatePhotoBlob back the first step and are run
// again by the steps that consume each blob.
func validateVideoBlob(blob *entities.MediaBlob) error {
	if blob == nil || blob.Size() == 0 {
		return fmt.Errorf("no video file was provided")
	}
	if !blob.IsVideo() {
		return fmt.Errorf("unsupported video type %q", blob.MimeType)
	}
	if blob.Size() < constants.MinMediaSizeBytes {
		return fmt.Errorf("video file is too small to be a real recording")
	}
	if blob.Size() > constants.MaxVideoSizeBytes {
		return fmt.Errorf("video file exceeds the maximum allowed size")
	}
	return nil
}

func validatePhotoBlob(blob *entities.MediaBlob) error {
	if blob == nil || blob.Size() == 0 {
		return fmt.Errorf("no selfie photo was provided")
	}
	if !blob.IsImage() {
		return fmt.Errorf("unsupported photo type %q", blob.MimeType)
	}
	if blob.Size() < constants.MinMediaSizeBytes {
		return fmt.Errorf("photo file is too small to be a real image")
	}
	if blob.Size() > constants.MaxPhotoSizeBytes {
		return fmt.Errorf("photo file exceeds the maximum allowed size")
	}
	return nil
}

func (p *Pipeline) basicFileCheck(ctx context.Context, in *runInput) entities.StepResult {
	p.reportProgress(constants.StepBasicFileCheck, 10, "validating file types and sizes")
	if err := validateVideoBlob(in.video); err != nil {
		return failResult(err.Error())
	}
	if err := validatePhotoBlob(in.photo); err != nil {
		return failResult(err.Error())
	}
	return entities.StepResult{
		Passed:     true,
		Confidence: constants.ConfidenceScale,
		Details:    "both files are within the accepted formats and size limits",
	}
}

func (p *Pipeline) humanVideoCheck(ctx context.Context, in *runInput) entities.StepResult {
	p.reportProgress(constants.StepHumanVideoCheck, 10, "validating video file")
	if err := validateVideoBlob(in.video); err != nil {
		return failResult(err.Error())
	}

	p.reportProgress(constants.StepHumanVideoCheck, 30, "preparing video for scanning")
	src, err := p.OpenSource(in.video)
	if err != nil {
		logger.Error("failed to open video for human presence scan", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return failResult("the video could not be read")
	}
	defer src.Close()

	sampler := video.NewFrameSampler(video.DefaultSamplerConfig())
	result := video.ScanVideo(src, sampler, p.Classifier, video.ScanConfig{
		FrameInterval:        constants.VideoScanFrameInterval,
		MinConfidence:        constants.VideoScanMinConfidence,
		MaxFrames:            constants.VideoScanMaxFrames,
		ConsecutiveThreshold: constants.VideoScanConsecutiveThreshold,
	})
	p.reportProgress(constants.StepHumanVideoCheck, 85, "aggregating frame detections")

	details := fmt.Sprintf("no sustained human presence found across %d frames", result.FramesChecked)
	if result.HasHuman {
		details = fmt.Sprintf("human presence confirmed in %d consecutive frames", result.LongestStreak)
		if result.StoppedEarly {
			details += " (scan stopped early)"
		}
	}
	return entities.StepResult{
		Passed:        result.HasHuman,
		Confidence:    result.Confidence * constants.ConfidenceScale,
		Details:       details,
		FramesChecked: utils.GetIntPointer(result.FramesChecked),
	}
}

func (p *Pipeline) humanSelfieCheck(ctx context.Context, in *runInput) entities.StepResult {
	p.reportProgress(constants.StepHumanSelfieCheck, 10, "validating selfie file")
	if err := validatePhotoBlob(in.photo); err != nil {
		return failResult(err.Error())
	}

	p.reportProgress(constants.StepHumanSelfieCheck, 30, "decoding selfie")
	img, err := decodePhoto(in.photo.Data, constants.PhotoDecodeTimeout)
	if err != nil {
		return failResult(fmt.Sprintf("the selfie could not be decoded: %v", err))
	}
	bounds := img.Bounds()
	if bounds.Dx() < constants.MinPhotoDimension || bounds.Dy() < constants.MinPhotoDimension {
		return failResult(fmt.Sprintf("selfie is too small (%dx%d, minimum %dpx each side)",
			bounds.Dx(), bounds.Dy(), constants.MinPhotoDimension))
	}

	result := p.Classifier.Classify(img, dtypes.ClassifyOptions{
		Mode:             dtypes.FaceFirst,
		MinConfidence:    constants.SelfieMinConfidence,
		MaxResults:       constants.SelfieMaxFaces,
		MinFaceAreaRatio: constants.SelfieMinFaceAreaRatio,
	})
	p.reportProgress(constants.StepHumanSelfieCheck, 85, "analyzing face detections")

	step := entities.StepResult{
		Passed:  result.HasHuman,
		Details: result.Details,
	}
	if result.HasHuman {
		step.Confidence = result.Confidence * constants.ConfidenceScale
	}
	if best := largestBox(result.Boxes); best != nil {
		step.FaceAreaRatio = utils.GetFloat64Pointer(best.AreaRatio(bounds))
	}
	return step
}

// largestBox picks the detection covering the most pixels. Detections are
// ranked by confidence, so the first box is not necessarily the biggest face.
func largestBox(boxes []dtypes.BoundingBox) *dtypes.BoundingBox {
	var best *dtypes.BoundingBox
	for i := range boxes {
		if best == nil || boxes[i].Area() > best.Area() {
			best = &boxes[i]
		}
	}
	return best
}

func (p *Pipeline) aiChallengeCheck(ctx context.Context, in *runInput) entities.StepResult {
	if in.challenge == "" {
		return failResult("no challenge is associated with this submission")
	}
	p.reportProgress(constants.StepAIChallengeCheck, 10, "validating video file")
	if err := validateVideoBlob(in.video); err != nil {
		return failResult(err.Error())
	}

	p.reportProgress(constants.StepAIChallengeCheck, 30, "extracting challenge frames")
	src, err := p.OpenSource(in.video)
	if err != nil {
		logger.Error("failed to open video for challenge judgment", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return failResult("the video could not be read")
	}
	defer src.Close()

	sampler := video.NewFrameSampler(video.SamplerConfig{
		MaxDimension: constants.JudgeFrameMaxDimension,
		JPEGQuality:  constants.JudgeFrameJPEGQuality,
	})
	offsets := video.GenerateOffsets(src.Duration(), 1.0/constants.JudgeFrameTargetFPS, constants.JudgeFrameMaxCount)
	frames := video.FilterDark(sampler.Sample(src, offsets))
	if len(frames) == 0 {
		return failResult("no usable frames could be extracted from the video")
	}

	jpegs := make([][]byte, len(frames))
	for i, frame := range frames {
		jpegs[i] = frame.JPEG
	}

	p.reportProgress(constants.StepAIChallengeCheck, 85, "awaiting challenge judgment")
	verdict, err := p.Judge.Judge(jpegs, in.challenge)
	if err != nil {
		logger.Error("challenge judgment failed", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return failResult("the challenge could not be judged")
	}

	details := verdict.Explanation
	if details == "" {
		details = fmt.Sprintf("challenge scored %d/100", verdict.Score)
	}
	return entities.StepResult{
		Passed:             verdict.Passed,
		Confidence:         verdict.Confidence,
		Details:            details,
		JudgeScore:         utils.GetIntPointer(verdict.Score),
		ChallengeCompleted: utils.GetBooleanPointer(verdict.ChallengeCompleted),
	}
}

// decodePhoto decodes an image with a hard deadline so a malformed file
// cannot stall the whole run.
func decodePhoto(data []byte, timeout time.Duration) (image.Image, error) {
	type decoded struct {
		img image.Image
		err error
	}
	done := make(chan decoded, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- decoded{err: fmt.Errorf("decoder panicked: %v", r)}
			}
		}()
		img, _, err := image.Decode(bytes.NewReader(data))
		done <- decoded{img: img, err: err}
	}()
	select {
	case result := <-done:
		return result.img, result.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("decoding took longer than %s", timeout)
	}
}

func failResult(details string) entities.StepResult {
	return entities.StepResult{Passed: false, Details: details}
}
