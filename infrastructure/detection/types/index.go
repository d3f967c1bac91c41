package types

import "image"

// BoundingBox locates a single detection within an image, in pixel
// coordinates, with the detector's confidence for that candidate.
type BoundingBox struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

func (bb BoundingBox) Area() float64 {
	return bb.Width * bb.Height
}

// AreaRatio reports the box area as a fraction of the total image area.
func (bb BoundingBox) AreaRatio(bounds image.Rectangle) float64 {
	imageArea := float64(bounds.Dx() * bounds.Dy())
	if imageArea <= 0 {
		return 0
	}
	return bb.Area() / imageArea
}

// FaceDetector finds faces in a still image.
type FaceDetector interface {
	DetectFaces(img image.Image) ([]BoundingBox, error)
}

// PersonDetector finds whole persons in a still image.
type PersonDetector interface {
	DetectPersons(img image.Image) ([]BoundingBox, error)
}

type DetectionMode string

const (
	// FaceFirst tries the face detector and falls back to the person
	// detector; used for selfies.
	FaceFirst DetectionMode = "face_first"
	// BodyFirst is the mirror ordering; used for action-video frames.
	BodyFirst DetectionMode = "body_first"
)

// DetectionResult is the classifier verdict for one still image.
// Confidence is always within [0, 1].
type DetectionResult struct {
	HasHuman   bool          `json:"hasHuman"`
	Confidence float64       `json:"confidence"`
	Details    string        `json:"details"`
	Count      int           `json:"count"`
	Boxes      []BoundingBox `json:"boxes,omitempty"`
}

// VideoDetectionResult aggregates classifier verdicts across the frames of
// one video scan.
type VideoDetectionResult struct {
	HasHuman       bool    `json:"hasHuman"`
	Confidence     float64 `json:"confidence"`
	DetectionCount int     `json:"detectionCount"`
	FramesChecked  int     `json:"framesChecked"`
	LongestStreak  int     `json:"longestStreak"`
	StoppedEarly   bool    `json:"stoppedEarly"`
}

// ClassifyOptions tunes a single classification call.
type ClassifyOptions struct {
	Mode          DetectionMode
	MinConfidence float64
	MaxResults    int
	// MinFaceAreaRatio rejects faces smaller than this fraction of the
	// image; zero means the classifier default applies.
	MinFaceAreaRatio float64
}
