package constants

import "time"

// verification step identifiers, in execution order
const (
	StepBasicFileCheck   = "basic_file_check"
	StepHumanVideoCheck  = "human_video_check"
	StepHumanSelfieCheck = "human_selfie_check"
	StepAIChallengeCheck = "ai_challenge_check"
)

// media size bounds
const (
	MinMediaSizeBytes = 1 << 10   // 1KB, both media kinds
	MaxVideoSizeBytes = 100 << 20 // 100MB
	MaxPhotoSizeBytes = 10 << 20  // 10MB
)

// photo acceptance policy
const (
	MinPhotoDimension  = 100
	PhotoDecodeTimeout = 5 * time.Second
	// selfies must show a close face; stricter than the classifier default
	SelfieMinFaceAreaRatio = 0.02
	SelfieMinConfidence    = 0.6
	SelfieMaxFaces         = 3
)

// video scan policy
const (
	VideoScanFrameInterval        = 0.1
	VideoScanMinConfidence        = 0.5
	VideoScanMaxFrames            = 50
	VideoScanConsecutiveThreshold = 2
)

// challenge judgment frame extraction
const (
	JudgeFrameTargetFPS    = 3.0
	JudgeFrameMaxCount     = 16
	JudgeFrameJPEGQuality  = 60
	JudgeFrameMaxDimension = 512
)

// internal confidences are 0.0-1.0; StepResult reports 0-100
const ConfidenceScale = 100.0

var ChallengePool = []string{
	"wave at the camera with one hand",
	"show both of your hands to the camera",
	"touch your nose with your index finger",
	"give the camera a thumbs up",
	"cover one eye with your hand",
	"nod your head up and down",
	"make a peace sign with your fingers",
	"point at the ceiling",
}

const ChallengeTTL = 10 * time.Minute

const DefaultRewardAmount = 10
