package detection

import (
	"fmt"
	"image"
	"sort"

	"github.com/louskac/VHP/infrastructure/detection/types"
	"github.com/louskac/VHP/infrastructure/logger"
)

const (
	// DefaultMinFaceAreaRatio is the generic face-size floor; the selfie
	// step applies its own stricter ratio on top of this.
	DefaultMinFaceAreaRatio = 0.01
	// persons must take up a meaningful part of the frame, but a frame
	// that is nearly all person is a camera pressed against a body
	MinPersonAreaRatio = 0.05
	MaxPersonAreaRatio = 0.90

	DefaultMaxResults = 5
)

// HumanPresenceClassifier decides whether a still image shows a human. It
// drives a face detector and a person detector in a mode-dependent
// primary/fallback order and never lets a detector error escape.
type HumanPresenceClassifier struct {
	Face   types.FaceDetector
	Person types.PersonDetector
}

type detectorKind string

const (
	kindFace   detectorKind = "face"
	kindPerson detectorKind = "person"
)

type attempt struct {
	kind detectorKind
	raw  []types.BoundingBox
	err  error
}

func (c *HumanPresenceClassifier) Classify(img image.Image, opts types.ClassifyOptions) types.DetectionResult {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.MinFaceAreaRatio <= 0 {
		opts.MinFaceAreaRatio = DefaultMinFaceAreaRatio
	}

	order := []detectorKind{kindFace, kindPerson}
	if opts.Mode == types.BodyFirst {
		order = []detectorKind{kindPerson, kindFace}
	}

	attempts := []attempt{}
	for _, kind := range order {
		att := c.detect(img, kind)
		attempts = append(attempts, att)
		if att.err != nil {
			logger.Warning("detector invocation failed, trying fallback", logger.LoggerOptions{
				Key:  "detector",
				Data: string(kind),
			}, logger.LoggerOptions{
				Key:  "error",
				Data: att.err,
			})
			continue
		}
		kept := filterCandidates(att.raw, att.kind, img.Bounds(), opts)
		if len(kept) > 0 {
			return keptResult(kept, att.kind, opts.MaxResults)
		}
		// primary produced nothing usable; only fall through when its
		// best raw candidate is below the confidence floor
		if bestRawConfidence(att.raw) >= opts.MinConfidence {
			break
		}
	}

	// no qualifying candidate from either detector; report the best raw
	// detection if one exists so the caller can explain the rejection
	bestRaw := 0.0
	rawSeen := 0
	allFailed := true
	for _, att := range attempts {
		if att.err != nil {
			continue
		}
		allFailed = false
		rawSeen += len(att.raw)
		if conf := bestRawConfidence(att.raw); conf > bestRaw {
			bestRaw = conf
		}
	}

	if allFailed {
		return types.DetectionResult{
			HasHuman:   false,
			Confidence: 0,
			Details:    "human detection unavailable: all detectors failed",
		}
	}
	if rawSeen > 0 {
		return types.DetectionResult{
			HasHuman:   false,
			Confidence: bestRaw,
			Details: fmt.Sprintf("detections found but none qualified (best confidence %.0f%%, threshold %.0f%%)",
				bestRaw*100, opts.MinConfidence*100),
		}
	}
	return types.DetectionResult{
		HasHuman:   false,
		Confidence: 0,
		Details:    "no human detected in image",
	}
}

func (c *HumanPresenceClassifier) detect(img image.Image, kind detectorKind) (att attempt) {
	att.kind = kind
	defer func() {
		if r := recover(); r != nil {
			att.err = fmt.Errorf("%s detector panicked: %v", kind, r)
		}
	}()
	switch kind {
	case kindFace:
		att.raw, att.err = c.Face.DetectFaces(img)
	default:
		att.raw, att.err = c.Person.DetectPersons(img)
	}
	return att
}

func filterCandidates(raw []types.BoundingBox, kind detectorKind, bounds image.Rectangle, opts types.ClassifyOptions) []types.BoundingBox {
	kept := []types.BoundingBox{}
	for _, box := range raw {
		if box.Confidence < opts.MinConfidence {
			continue
		}
		ratio := box.AreaRatio(bounds)
		if kind == kindFace {
			if ratio < opts.MinFaceAreaRatio {
				continue
			}
		} else {
			if ratio < MinPersonAreaRatio || ratio > MaxPersonAreaRatio {
				continue
			}
		}
		kept = append(kept, box)
	}
	return kept
}

func keptResult(kept []types.BoundingBox, kind detectorKind, maxResults int) types.DetectionResult {
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})
	if len(kept) > maxResults {
		kept = kept[:maxResults]
	}
	noun := "face"
	if kind == kindPerson {
		noun = "person"
	}
	plural := ""
	if len(kept) > 1 {
		plural = "s"
	}
	return types.DetectionResult{
		HasHuman:   true,
		Confidence: kept[0].Confidence,
		Count:      len(kept),
		Boxes:      kept,
		Details:    fmt.Sprintf("%d %s%s detected (best confidence %.0f%%)", len(kept), noun, plural, kept[0].Confidence*100),
	}
}

func bestRawConfidence(raw []types.BoundingBox) float64 {
	best := 0.0
	for _, box := range raw {
		if box.Confidence > best {
			best = box.Confidence
		}
	}
	return best
}
