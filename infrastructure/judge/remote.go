package judge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	judge_types "github.com/louskac/VHP/infrastructure/judge/types"
	"github.com/louskac/VHP/infrastructure/logger"
	"github.com/louskac/VHP/infrastructure/network"
)

const (
	// hard cap on frames accepted from a caller; larger sets are
	// downsampled to at most downsampleTarget, preserving order
	MaxInputFrames   = 25
	downsampleTarget = 20

	// frames smaller than this cannot be a plausible compressed image
	minFrameBytes = 100

	// fixed score bands
	passScore        = 60
	lenientPassScore = 40

	simulatedScore = 75
)

const scoringPrompt = `You are judging whether a person in a short video visibly performed this challenge: "%s".
Score 0-100 using these bands:
0-20: no attempt visible
20-40: unrelated activity
40-60: basic compliance with the challenge
60-80: good, creative compliance
80-100: excellent, unmistakable completion
Respond with the score, an explanation, and sub-scores for clarity, effort and completion.`

// RemoteJudge scores challenge completion via an opaque vision-capable
// judge service. AllowSimulatedResult substitutes a fixed passing verdict
// on transport failure; it must only ever be set in development wiring.
type RemoteJudge struct {
	Network              *network.NetworkController
	AllowSimulatedResult bool
}

func (rj *RemoteJudge) Judge(frames [][]byte, challengeDescription string) (*judge_types.JudgeVerdict, error) {
	frames = downsampleFrames(frames)

	valid := [][]byte{}
	for i, frame := range frames {
		if err := validateFrame(frame); err != nil {
			logger.Warning("dropping invalid frame before judgment", logger.LoggerOptions{
				Key:  "frame",
				Data: i,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
			continue
		}
		valid = append(valid, frame)
	}
	if len(valid) == 0 {
		return nil, errors.New("no valid frames available for judgment")
	}

	encoded := make([]string, len(valid))
	for i, frame := range valid {
		encoded[i] = base64.StdEncoding.EncodeToString(frame)
	}

	request := judge_types.JudgeRequest{
		ChallengeDescription: challengeDescription,
		Prompt:               fmt.Sprintf(scoringPrompt, challengeDescription),
		Frames:               encoded,
		FrameCount:           len(encoded),
	}

	response, statusCode, err := rj.Network.Post("/judge", &map[string]string{}, request)
	if err != nil {
		return rj.handleTransportFailure(err, len(valid))
	}
	if statusCode == nil || *statusCode != 200 {
		return rj.handleTransportFailure(fmt.Errorf("judge service returned status %v", formatStatus(statusCode)), len(valid))
	}

	var judgeResponse judge_types.JudgeResponse
	if err := json.Unmarshal(*response, &judgeResponse); err != nil {
		return rj.handleTransportFailure(fmt.Errorf("failed to parse judge response: %w", err), len(valid))
	}
	if !judgeResponse.Success {
		return nil, fmt.Errorf("judge rejected request: %s", judgeResponse.Error)
	}

	verdict := verdictFromScore(judgeResponse.Score)
	verdict.Explanation = judgeResponse.Explanation
	verdict.SubScores = judgeResponse.SubScores
	verdict.FramesAnalyzed = judgeResponse.FramesAnalyzed
	if verdict.FramesAnalyzed == 0 {
		verdict.FramesAnalyzed = len(valid)
	}
	return verdict, nil
}

func (rj *RemoteJudge) handleTransportFailure(err error, framesSent int) (*judge_types.JudgeVerdict, error) {
	if !rj.AllowSimulatedResult {
		return nil, err
	}
	logger.Warning("judge service unavailable, substituting simulated result", logger.LoggerOptions{
		Key:  "error",
		Data: err,
	})
	verdict := verdictFromScore(simulatedScore)
	verdict.Explanation = "simulated judgment (judge service unavailable in development mode)"
	verdict.FramesAnalyzed = framesSent
	verdict.Simulated = true
	return verdict, nil
}

// verdictFromScore applies the fixed score bands. Confidence is clamped to
// stay consistent with the decision: a pass never reports below 60, a fail
// never reports above 40.
func verdictFromScore(score int) *judge_types.JudgeVerdict {
	verdict := &judge_types.JudgeVerdict{Score: score}
	switch {
	case score >= passScore:
		verdict.Passed = true
		verdict.ChallengeCompleted = true
		verdict.Confidence = float64(max(passScore, score))
	case score >= lenientPassScore:
		// lenient band, still a pass
		verdict.Passed = true
		verdict.ChallengeCompleted = true
		verdict.Confidence = float64(max(passScore, score))
	default:
		verdict.Passed = false
		verdict.ChallengeCompleted = false
		verdict.Confidence = float64(min(lenientPassScore, score))
	}
	return verdict
}

// downsampleFrames enforces the input cap by taking every Nth frame,
// preserving temporal order.
func downsampleFrames(frames [][]byte) [][]byte {
	if len(frames) <= MaxInputFrames {
		return frames
	}
	step := len(frames) / downsampleTarget
	if step < 1 {
		step = 1
	}
	sampled := [][]byte{}
	for i := 0; i < len(frames) && len(sampled) < downsampleTarget; i += step {
		sampled = append(sampled, frames[i])
	}
	logger.Info("downsampled judge frames", logger.LoggerOptions{
		Key:  "original",
		Data: len(frames),
	}, logger.LoggerOptions{
		Key:  "sampled",
		Data: len(sampled),
	})
	return sampled
}

func validateFrame(frame []byte) error {
	if len(frame) < minFrameBytes {
		return fmt.Errorf("frame too small to be an image (%d bytes)", len(frame))
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(frame)); err != nil {
		return fmt.Errorf("frame is not a decodable image: %w", err)
	}
	return nil
}

func formatStatus(statusCode *int) string {
	if statusCode == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *statusCode)
}
