package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/louskac/VHP/application/constants"
	"github.com/louskac/VHP/entities"
	dtypes "github.com/louskac/VHP/infrastructure/detection/types"
	judge_types "github.com/louskac/VHP/infrastructure/judge/types"
	"github.com/louskac/VHP/infrastructure/video"
)

// fakeClassifier branches on detection mode: the video scan runs body-first
// and the selfie check face-first, so one fake covers both steps.
type fakeClassifier struct {
	videoResult  dtypes.DetectionResult
	selfieResult dtypes.DetectionResult
	panicOnVideo bool
}

func (fc *fakeClassifier) Classify(img image.Image, opts dtypes.ClassifyOptions) dtypes.DetectionResult {
	if opts.Mode == dtypes.BodyFirst {
		if fc.panicOnVideo {
			panic("detector crashed")
		}
		return fc.videoResult
	}
	return fc.selfieResult
}

type fakeJudge struct {
	verdict *judge_types.JudgeVerdict
	err     error
}

func (fj *fakeJudge) Judge(frames [][]byte, challengeDescription string) (*judge_types.JudgeVerdict, error) {
	return fj.verdict, fj.err
}

type stubSource struct {
	duration float64
	pos      float64
}

func (ss *stubSource) Duration() float64    { return ss.duration }
func (ss *stubSource) CurrentTime() float64 { return ss.pos }

func (ss *stubSource) Seek(offset float64, timeout time.Duration) error {
	ss.pos = offset
	return nil
}

func (ss *stubSource) Capture() (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	return img, nil
}

func (ss *stubSource) Close() error { return nil }

func humanDetection(confidence float64) dtypes.DetectionResult {
	return dtypes.DetectionResult{
		HasHuman:   true,
		Confidence: confidence,
		Count:      1,
		Boxes: []dtypes.BoundingBox{
			{X: 10, Y: 10, Width: 30, Height: 30, Confidence: confidence},
		},
		Details: "1 face detected",
	}
}

func noDetection() dtypes.DetectionResult {
	return dtypes.DetectionResult{HasHuman: false, Details: "no human detected in image"}
}

func passingVerdict() *judge_types.JudgeVerdict {
	return &judge_types.JudgeVerdict{
		Passed:             true,
		ChallengeCompleted: true,
		Score:              85,
		Confidence:         85,
		Explanation:        "challenge clearly performed",
	}
}

// noisePNG encodes an incompressible image so the blob clears the minimum
// media size.
func noisePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test photo: %v", err)
	}
	return buf.Bytes()
}

func videoBlob() *entities.MediaBlob {
	return &entities.MediaBlob{MimeType: "video/webm", Data: bytes.Repeat([]byte{0x1a}, 4096)}
}

func photoBlob(t *testing.T) *entities.MediaBlob {
	return &entities.MediaBlob{MimeType: "image/png", Data: noisePNG(t, 128, 128)}
}

func testPipeline() *Pipeline {
	return &Pipeline{
		Classifier: &fakeClassifier{
			videoResult:  humanDetection(0.8),
			selfieResult: humanDetection(0.8),
		},
		Judge: &fakeJudge{verdict: passingVerdict()},
		OpenSource: func(blob *entities.MediaBlob) (video.Source, error) {
			return &stubSource{duration: 2}, nil
		},
	}
}

func stepByID(t *testing.T, run *entities.PipelineRun, stepID string) entities.StepResult {
	t.Helper()
	for _, step := range run.Steps {
		if step.StepID == stepID {
			return step
		}
	}
	t.Fatalf("run has no step %q", stepID)
	return entities.StepResult{}
}

func TestRunAllStepsPass(t *testing.T) {
	run := testPipeline().Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave at the camera")

	if len(run.Steps) != 4 {
		t.Fatalf("run has %d steps, want 4", len(run.Steps))
	}
	if !run.OverallPass {
		t.Fatal("expected overall pass")
	}
	for _, step := range run.Steps {
		if step.Status != entities.StepStatusCompleted {
			t.Errorf("step %s status = %s, want completed", step.StepID, step.Status)
		}
		if !step.Passed {
			t.Errorf("step %s did not pass: %s", step.StepID, step.Details)
		}
	}

	// file check 100, video scan 90, selfie 80, challenge 85
	if math.Abs(run.OverallConfidence-88.75) > 0.01 {
		t.Errorf("OverallConfidence = %v, want 88.75", run.OverallConfidence)
	}
	if run.CompletedAt.IsZero() {
		t.Error("CompletedAt not set")
	}
	if run.ChallengeID != "ch_1" {
		t.Errorf("ChallengeID = %q", run.ChallengeID)
	}
}

func TestRunStepOrderAndNames(t *testing.T) {
	run := testPipeline().Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

	wantOrder := []string{
		constants.StepBasicFileCheck,
		constants.StepHumanVideoCheck,
		constants.StepHumanSelfieCheck,
		constants.StepAIChallengeCheck,
	}
	for i, want := range wantOrder {
		if run.Steps[i].StepID != want {
			t.Errorf("Steps[%d].StepID = %q, want %q", i, run.Steps[i].StepID, want)
		}
		if run.Steps[i].Name == "" {
			t.Errorf("Steps[%d] has no name", i)
		}
	}
}

func TestRunBasicFileCheckFailures(t *testing.T) {
	tests := []struct {
		name  string
		video *entities.MediaBlob
		photo func(t *testing.T) *entities.MediaBlob
	}{
		{"nil video", nil, photoBlob},
		{"empty video", &entities.MediaBlob{MimeType: "video/webm"}, photoBlob},
		{"wrong video mime", &entities.MediaBlob{MimeType: "text/plain", Data: bytes.Repeat([]byte{1}, 4096)}, photoBlob},
		{"undersized video", &entities.MediaBlob{MimeType: "video/webm", Data: []byte{1, 2, 3}}, photoBlob},
		{"oversized video", &entities.MediaBlob{MimeType: "video/webm", Data: make([]byte, constants.MaxVideoSizeBytes+1)}, photoBlob},
		{"wrong photo mime", videoBlob(), func(t *testing.T) *entities.MediaBlob {
			return &entities.MediaBlob{MimeType: "application/pdf", Data: noisePNG(t, 128, 128)}
		}},
		{"nil photo", videoBlob(), func(t *testing.T) *entities.MediaBlob { return nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := testPipeline().Run(context.Background(), tt.video, tt.photo(t), "ch_1", "wave")

			if run.OverallPass {
				t.Fatal("expected overall failure")
			}
			first := stepByID(t, run, constants.StepBasicFileCheck)
			if first.Status != entities.StepStatusFailed {
				t.Errorf("file check status = %s, want failed", first.Status)
			}
			for _, stepID := range []string{constants.StepHumanVideoCheck, constants.StepHumanSelfieCheck, constants.StepAIChallengeCheck} {
				if step := stepByID(t, run, stepID); step.Status != entities.StepStatusPending {
					t.Errorf("step %s status = %s, want pending after earlier failure", stepID, step.Status)
				}
			}
		})
	}
}

func TestRunVideoCheckFailureLeavesLaterStepsPending(t *testing.T) {
	p := testPipeline()
	p.Classifier = &fakeClassifier{videoResult: noDetection(), selfieResult: humanDetection(0.8)}

	run := p.Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

	if run.OverallPass {
		t.Fatal("expected overall failure")
	}
	if step := stepByID(t, run, constants.StepBasicFileCheck); step.Status != entities.StepStatusCompleted {
		t.Errorf("file check status = %s, want completed", step.Status)
	}
	videoStep := stepByID(t, run, constants.StepHumanVideoCheck)
	if videoStep.Status != entities.StepStatusFailed {
		t.Errorf("video check status = %s, want failed", videoStep.Status)
	}
	if videoStep.FramesChecked == nil || *videoStep.FramesChecked == 0 {
		t.Error("video check should report how many frames were scanned")
	}
	for _, stepID := range []string{constants.StepHumanSelfieCheck, constants.StepAIChallengeCheck} {
		if step := stepByID(t, run, stepID); step.Status != entities.StepStatusPending {
			t.Errorf("step %s status = %s, want pending", stepID, step.Status)
		}
	}
}

func TestRunVideoCheckReportsConfidenceOnExternalScale(t *testing.T) {
	run := testPipeline().Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

	videoStep := stepByID(t, run, constants.StepHumanVideoCheck)
	if math.Abs(videoStep.Confidence-90) > 0.01 {
		t.Errorf("video check confidence = %v, want 90 (0.8 best frame plus streak bonus, scaled)", videoStep.Confidence)
	}
}

func TestRunUnreadableVideo(t *testing.T) {
	p := testPipeline()
	p.OpenSource = func(blob *entities.MediaBlob) (video.Source, error) {
		return nil, errors.New("corrupt container")
	}

	run := p.Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

	videoStep := stepByID(t, run, constants.StepHumanVideoCheck)
	if videoStep.Status != entities.StepStatusFailed {
		t.Errorf("video check status = %s, want failed", videoStep.Status)
	}
	if videoStep.Details == "" {
		t.Error("failed step should explain itself")
	}
}

func TestRunSelfieCheckFailures(t *testing.T) {
	t.Run("no face found", func(t *testing.T) {
		p := testPipeline()
		p.Classifier = &fakeClassifier{videoResult: humanDetection(0.8), selfieResult: noDetection()}

		run := p.Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

		selfieStep := stepByID(t, run, constants.StepHumanSelfieCheck)
		if selfieStep.Status != entities.StepStatusFailed {
			t.Errorf("selfie check status = %s, want failed", selfieStep.Status)
		}
		if step := stepByID(t, run, constants.StepAIChallengeCheck); step.Status != entities.StepStatusPending {
			t.Errorf("challenge check status = %s, want pending", step.Status)
		}
	})

	t.Run("photo too small", func(t *testing.T) {
		photo := &entities.MediaBlob{MimeType: "image/png", Data: noisePNG(t, 50, 50)}

		run := testPipeline().Run(context.Background(), videoBlob(), photo, "ch_1", "wave")

		selfieStep := stepByID(t, run, constants.StepHumanSelfieCheck)
		if selfieStep.Status != entities.StepStatusFailed {
			t.Errorf("selfie check status = %s, want failed", selfieStep.Status)
		}
	})

	t.Run("undecodable photo", func(t *testing.T) {
		photo := &entities.MediaBlob{MimeType: "image/png", Data: bytes.Repeat([]byte{0x42}, 4096)}

		run := testPipeline().Run(context.Background(), videoBlob(), photo, "ch_1", "wave")

		selfieStep := stepByID(t, run, constants.StepHumanSelfieCheck)
		if selfieStep.Status != entities.StepStatusFailed {
			t.Errorf("selfie check status = %s, want failed", selfieStep.Status)
		}
	})

	t.Run("failed detection reports zero confidence", func(t *testing.T) {
		p := testPipeline()
		p.Classifier = &fakeClassifier{
			videoResult: humanDetection(0.8),
			selfieResult: dtypes.DetectionResult{
				HasHuman:   false,
				Confidence: 0.55,
				Details:    "detections found but none qualified",
			},
		}

		run := p.Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

		selfieStep := stepByID(t, run, constants.StepHumanSelfieCheck)
		if selfieStep.Status != entities.StepStatusFailed {
			t.Errorf("selfie check status = %s, want failed", selfieStep.Status)
		}
		if selfieStep.Confidence != 0 {
			t.Errorf("failed selfie check confidence = %v, want 0", selfieStep.Confidence)
		}
		if selfieStep.Details == "" {
			t.Error("failed step should explain itself")
		}
	})
}

func TestRunSelfieCheckReportsFaceArea(t *testing.T) {
	run := testPipeline().Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

	selfieStep := stepByID(t, run, constants.StepHumanSelfieCheck)
	if selfieStep.FaceAreaRatio == nil {
		t.Fatal("selfie check should report the face area ratio")
	}
	// 30x30 box on a 128x128 photo
	want := float64(30*30) / float64(128*128)
	if math.Abs(*selfieStep.FaceAreaRatio-want) > 1e-9 {
		t.Errorf("FaceAreaRatio = %v, want %v", *selfieStep.FaceAreaRatio, want)
	}
}

func TestRunSelfieCheckReportsLargestFaceArea(t *testing.T) {
	p := testPipeline()
	p.Classifier = &fakeClassifier{
		videoResult: humanDetection(0.8),
		selfieResult: dtypes.DetectionResult{
			HasHuman:   true,
			Confidence: 0.9,
			Count:      2,
			Boxes: []dtypes.BoundingBox{
				{X: 10, Y: 10, Width: 20, Height: 20, Confidence: 0.9},
				{X: 60, Y: 60, Width: 40, Height: 40, Confidence: 0.7},
			},
			Details: "2 faces detected",
		},
	}

	run := p.Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

	selfieStep := stepByID(t, run, constants.StepHumanSelfieCheck)
	if selfieStep.FaceAreaRatio == nil {
		t.Fatal("selfie check should report the face area ratio")
	}
	// the biggest face wins, not the most confident one
	want := float64(40*40) / float64(128*128)
	if math.Abs(*selfieStep.FaceAreaRatio-want) > 1e-9 {
		t.Errorf("FaceAreaRatio = %v, want %v", *selfieStep.FaceAreaRatio, want)
	}
}

func TestRunChallengeCheckOutcomes(t *testing.T) {
	t.Run("judge failure verdict", func(t *testing.T) {
		p := testPipeline()
		p.Judge = &fakeJudge{verdict: &judge_types.JudgeVerdict{
			Passed:      false,
			Score:       20,
			Confidence:  20,
			Explanation: "unrelated activity",
		}}

		run := p.Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

		challengeStep := stepByID(t, run, constants.StepAIChallengeCheck)
		if challengeStep.Status != entities.StepStatusFailed {
			t.Errorf("challenge check status = %s, want failed", challengeStep.Status)
		}
		if challengeStep.JudgeScore == nil || *challengeStep.JudgeScore != 20 {
			t.Error("challenge check should carry the judge score")
		}
		if run.OverallPass {
			t.Error("expected overall failure")
		}
	})

	t.Run("judge unreachable", func(t *testing.T) {
		p := testPipeline()
		p.Judge = &fakeJudge{err: errors.New("connection refused")}

		run := p.Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

		challengeStep := stepByID(t, run, constants.StepAIChallengeCheck)
		if challengeStep.Status != entities.StepStatusFailed {
			t.Errorf("challenge check status = %s, want failed", challengeStep.Status)
		}
	})

	t.Run("missing challenge description", func(t *testing.T) {
		run := testPipeline().Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "")

		challengeStep := stepByID(t, run, constants.StepAIChallengeCheck)
		if challengeStep.Status != entities.StepStatusFailed {
			t.Errorf("challenge check status = %s, want failed", challengeStep.Status)
		}
	})

	t.Run("passing verdict carries metadata", func(t *testing.T) {
		run := testPipeline().Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

		challengeStep := stepByID(t, run, constants.StepAIChallengeCheck)
		if challengeStep.JudgeScore == nil || *challengeStep.JudgeScore != 85 {
			t.Error("challenge check should carry the judge score")
		}
		if challengeStep.ChallengeCompleted == nil || !*challengeStep.ChallengeCompleted {
			t.Error("challenge check should flag completion")
		}
		if challengeStep.Confidence != 85 {
			t.Errorf("challenge check confidence = %v, want 85", challengeStep.Confidence)
		}
	})
}

func TestRunRecoversFromPanickingStep(t *testing.T) {
	p := testPipeline()
	p.Classifier = &fakeClassifier{panicOnVideo: true, selfieResult: humanDetection(0.8)}

	run := p.Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

	videoStep := stepByID(t, run, constants.StepHumanVideoCheck)
	if videoStep.Status != entities.StepStatusFailed {
		t.Errorf("video check status = %s, want failed after panic", videoStep.Status)
	}
	if run.OverallPass {
		t.Error("expected overall failure")
	}
}

func TestRunExpiredContextFailsRemainingSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := testPipeline().Run(ctx, videoBlob(), photoBlob(t), "ch_1", "wave")

	first := stepByID(t, run, constants.StepBasicFileCheck)
	if first.Status != entities.StepStatusFailed {
		t.Errorf("first step status = %s, want failed on expired context", first.Status)
	}
	for _, stepID := range []string{constants.StepHumanVideoCheck, constants.StepHumanSelfieCheck, constants.StepAIChallengeCheck} {
		if step := stepByID(t, run, stepID); step.Status != entities.StepStatusPending {
			t.Errorf("step %s status = %s, want pending", stepID, step.Status)
		}
	}
	if run.OverallPass {
		t.Error("expected overall failure")
	}
}

func TestRunIsDeterministicForSameInput(t *testing.T) {
	videoData := videoBlob()
	photoData := photoBlob(t)

	first := testPipeline().Run(context.Background(), videoData, photoData, "ch_1", "wave")
	second := testPipeline().Run(context.Background(), videoData, photoData, "ch_1", "wave")

	if first.OverallPass != second.OverallPass {
		t.Error("identical submissions disagreed on the overall outcome")
	}
	if math.Abs(first.OverallConfidence-second.OverallConfidence) > 1e-9 {
		t.Errorf("identical submissions disagreed on confidence: %v vs %v", first.OverallConfidence, second.OverallConfidence)
	}
	if first.ID == second.ID {
		t.Error("each run must get its own ID")
	}
}

func TestRunReportsProgressPerStep(t *testing.T) {
	type event struct {
		stepID  string
		percent int
	}
	events := []event{}

	p := testPipeline()
	p.Progress = func(stepID string, percent int, message string) {
		events = append(events, event{stepID, percent})
	}

	p.Run(context.Background(), videoBlob(), photoBlob(t), "ch_1", "wave")

	wantOrder := []string{
		constants.StepBasicFileCheck,
		constants.StepHumanVideoCheck,
		constants.StepHumanSelfieCheck,
		constants.StepAIChallengeCheck,
	}

	byStep := map[string][]int{}
	seenOrder := []string{}
	for _, ev := range events {
		if len(seenOrder) == 0 || seenOrder[len(seenOrder)-1] != ev.stepID {
			seenOrder = append(seenOrder, ev.stepID)
		}
		byStep[ev.stepID] = append(byStep[ev.stepID], ev.percent)
	}

	if len(seenOrder) != len(wantOrder) {
		t.Fatalf("progress covered steps %v, want %v", seenOrder, wantOrder)
	}
	for i, want := range wantOrder {
		if seenOrder[i] != want {
			t.Errorf("progress step order[%d] = %q, want %q", i, seenOrder[i], want)
		}
	}

	for stepID, percents := range byStep {
		if percents[0] != 0 {
			t.Errorf("step %s progress starts at %d, want 0", stepID, percents[0])
		}
		if percents[len(percents)-1] != 100 {
			t.Errorf("step %s progress ends at %d, want 100", stepID, percents[len(percents)-1])
		}
		if len(percents) < 3 {
			t.Errorf("step %s emitted no intermediate checkpoints: %v", stepID, percents)
		}
		for i := 1; i < len(percents); i++ {
			if percents[i] < percents[i-1] {
				t.Errorf("step %s progress went backwards: %v", stepID, percents)
			}
		}
	}
}

func TestHumanSelfieCheckRevalidatesPhoto(t *testing.T) {
	tests := []struct {
		name  string
		photo *entities.MediaBlob
	}{
		{"nil photo", nil},
		{"wrong mime", &entities.MediaBlob{MimeType: "application/pdf", Data: bytes.Repeat([]byte{1}, 4096)}},
		{"oversized", &entities.MediaBlob{MimeType: "image/png", Data: make([]byte, constants.MaxPhotoSizeBytes+1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPipeline()

			result := p.humanSelfieCheck(context.Background(), &runInput{photo: tt.photo})

			if result.Passed {
				t.Fatal("selfie check accepted an invalid photo blob")
			}
			if result.Details == "" {
				t.Error("failed step should explain itself")
			}
		})
	}
}

func TestAIChallengeCheckRevalidatesVideo(t *testing.T) {
	tests := []struct {
		name  string
		video *entities.MediaBlob
	}{
		{"nil video", nil},
		{"wrong mime", &entities.MediaBlob{MimeType: "text/plain", Data: bytes.Repeat([]byte{1}, 4096)}},
		{"oversized", &entities.MediaBlob{MimeType: "video/webm", Data: make([]byte, constants.MaxVideoSizeBytes+1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPipeline()

			result := p.aiChallengeCheck(context.Background(), &runInput{video: tt.video, challenge: "wave"})

			if result.Passed {
				t.Fatal("challenge check accepted an invalid video blob")
			}
			if result.Details == "" {
				t.Error("failed step should explain itself")
			}
		})
	}
}
