package video

import (
	"fmt"
	"image"

	dtypes "github.com/louskac/VHP/infrastructure/detection/types"
	"github.com/louskac/VHP/infrastructure/logger"
)

// FrameClassifier is what the aggregator needs from the human presence
// classifier.
type FrameClassifier interface {
	Classify(img image.Image, opts dtypes.ClassifyOptions) dtypes.DetectionResult
}

// ScanConfig tunes a whole-video human presence scan.
type ScanConfig struct {
	FrameInterval        float64
	MinConfidence        float64
	MaxFrames            int
	ConsecutiveThreshold int
}

// aggregate confidence rewards sustained video evidence with a flat bonus
// over the best single frame, capped below certainty
const (
	streakConfidenceBonus  = 0.10
	maxAggregateConfidence = 0.95
)

// ScanVideo samples frames in ascending time order and classifies each in
// body-first mode, stopping early once enough consecutive frames show a
// human. Per-frame failures count as negative detections and reset the
// streak; they never abort the scan.
func ScanVideo(src Source, sampler *FrameSampler, classifier FrameClassifier, cfg ScanConfig) dtypes.VideoDetectionResult {
	offsets := GenerateOffsets(src.Duration(), cfg.FrameInterval, cfg.MaxFrames)

	result := dtypes.VideoDetectionResult{}
	streak := 0
	bestConfidence := 0.0

	for i, offset := range offsets {
		result.FramesChecked++

		detection, err := scanFrame(src, sampler, classifier, cfg, offset, i == 0)
		if err != nil {
			logger.Warning("frame scan failed, treating as negative detection", logger.LoggerOptions{
				Key:  "offset",
				Data: offset,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
			streak = 0
			continue
		}

		if detection.HasHuman {
			streak++
			result.DetectionCount += detection.Count
			if detection.Confidence > bestConfidence {
				bestConfidence = detection.Confidence
			}
			if streak > result.LongestStreak {
				result.LongestStreak = streak
			}
			if streak >= cfg.ConsecutiveThreshold {
				result.StoppedEarly = true
				break
			}
		} else {
			streak = 0
		}
	}

	if result.DetectionCount > 0 {
		result.HasHuman = true
		result.Confidence = bestConfidence + streakConfidenceBonus
		if result.Confidence > maxAggregateConfidence {
			result.Confidence = maxAggregateConfidence
		}
	}

	return result
}

func scanFrame(src Source, sampler *FrameSampler, classifier FrameClassifier, cfg ScanConfig, offset float64, first bool) (detection dtypes.DetectionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame processing panicked: %v", r)
		}
	}()

	sample, err := sampler.SampleOne(src, offset)
	if err != nil {
		return dtypes.DetectionResult{}, err
	}
	if first {
		if sample.Brightness < FirstFrameWarnThreshold {
			logger.Warning("first frame is very dark, classifying it anyway", logger.LoggerOptions{
				Key:  "brightness",
				Data: sample.Brightness,
			})
		}
	} else if sample.Brightness < DarkFrameThreshold {
		return dtypes.DetectionResult{}, fmt.Errorf("frame too dark to analyze (brightness %.1f)", sample.Brightness)
	}

	return classifier.Classify(sample.Image, dtypes.ClassifyOptions{
		Mode:          dtypes.BodyFirst,
		MinConfidence: cfg.MinConfidence,
	}), nil
}
