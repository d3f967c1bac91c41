package types

// JudgeRequest is the wire payload sent to the vision judge service.
type JudgeRequest struct {
	ChallengeDescription string   `json:"challengeDescription"`
	Prompt               string   `json:"prompt"`
	Frames               []string `json:"frames"`
	FrameCount           int      `json:"frameCount"`
}

// JudgeResponse is the wire payload returned by the vision judge service.
type JudgeResponse struct {
	Success        bool               `json:"success"`
	Score          int                `json:"score"`
	Explanation    string             `json:"explanation"`
	Confidence     float64            `json:"confidence"`
	FramesAnalyzed int                `json:"framesAnalyzed"`
	SubScores      map[string]float64 `json:"subScores,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// JudgeVerdict is the adapter's decision after applying the fixed score
// bands. Confidence stays on the 0-100 scale and is clamped to agree with
// the pass/fail band.
type JudgeVerdict struct {
	Passed             bool               `json:"passed"`
	ChallengeCompleted bool               `json:"challengeCompleted"`
	Score              int                `json:"score"`
	Confidence         float64            `json:"confidence"`
	Explanation        string             `json:"explanation"`
	SubScores          map[string]float64 `json:"subScores,omitempty"`
	FramesAnalyzed     int                `json:"framesAnalyzed"`
	Simulated          bool               `json:"simulated,omitempty"`
}

// VisionJudge scores how well a frame sequence completes a challenge.
type VisionJudge interface {
	Judge(frames [][]byte, challengeDescription string) (*JudgeVerdict, error)
}
