package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/louskac/VHP/infrastructure/detection/types"
	"github.com/louskac/VHP/infrastructure/logger"
	"gocv.io/x/gocv"
)

// YuNetFaceDetector provides face detection using the YuNet model.
type YuNetFaceDetector struct {
	detector            gocv.FaceDetectorYN
	inputSize           image.Point
	confidenceThreshold float32
	nmsThreshold        float32
	topK                int
	modelLoaded         bool
	mutex               sync.Mutex
}

// YuNetConfig holds configuration for the YuNet detector
type YuNetConfig struct {
	ModelPath           string
	InputSize           image.Point
	ConfidenceThreshold float32
	NMSThreshold        float32
	TopK                int
}

// NewYuNetFaceDetector creates a new YuNet face detector
func NewYuNetFaceDetector(config YuNetConfig) *YuNetFaceDetector {
	service := &YuNetFaceDetector{
		inputSize:           config.InputSize,
		confidenceThreshold: config.ConfidenceThreshold,
		nmsThreshold:        config.NMSThreshold,
		topK:                config.TopK,
	}

	if err := service.loadModel(config); err != nil {
		logger.Error("Failed to load YuNet model", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return service
	}

	service.modelLoaded = true
	logger.Info("YuNet face detector initialized successfully")
	return service
}

func (yfd *YuNetFaceDetector) loadModel(config YuNetConfig) error {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", config.ModelPath)
	}

	detector := gocv.NewFaceDetectorYN(
		config.ModelPath,
		"",
		image.Pt(config.InputSize.X, config.InputSize.Y),
	)

	detector.SetScoreThreshold(config.ConfidenceThreshold)
	detector.SetNMSThreshold(config.NMSThreshold)
	detector.SetTopK(config.TopK)

	yfd.detector = detector

	logger.Info("YuNet model loaded successfully", logger.LoggerOptions{
		Key: "model_info",
		Data: map[string]interface{}{
			"model_path":           config.ModelPath,
			"input_size":           fmt.Sprintf("%dx%d", config.InputSize.X, config.InputSize.Y),
			"confidence_threshold": config.ConfidenceThreshold,
			"nms_threshold":        config.NMSThreshold,
			"top_k":                config.TopK,
		},
	})

	return nil
}

// DetectFaces performs face detection using YuNet
func (yfd *YuNetFaceDetector) DetectFaces(img image.Image) ([]types.BoundingBox, error) {
	if !yfd.modelLoaded {
		return nil, fmt.Errorf("YuNet model not loaded")
	}

	mat, err := convertImageToMat(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to Mat: %v", err)
	}
	defer mat.Close()

	yfd.mutex.Lock()
	defer yfd.mutex.Unlock()

	imgSize := image.Pt(mat.Cols(), mat.Rows())
	yfd.detector.SetInputSize(imgSize)

	facesMat := gocv.NewMat()
	defer facesMat.Close()

	yfd.detector.Detect(mat, &facesMat)

	return yfd.parseDetections(facesMat, mat), nil
}

// parseDetections parses the detection results from YuNet.
// YuNet output rows are [x, y, w, h, 5 landmark x/y pairs, score].
func (yfd *YuNetFaceDetector) parseDetections(facesMat gocv.Mat, img gocv.Mat) []types.BoundingBox {
	var boxes []types.BoundingBox

	if facesMat.Empty() || facesMat.Rows() == 0 {
		return boxes
	}

	for i := 0; i < facesMat.Rows(); i++ {
		x := float64(facesMat.GetFloatAt(i, 0))
		y := float64(facesMat.GetFloatAt(i, 1))
		w := float64(facesMat.GetFloatAt(i, 2))
		h := float64(facesMat.GetFloatAt(i, 3))
		confidence := float64(facesMat.GetFloatAt(i, 14))

		if x >= 0 && y >= 0 && x+w <= float64(img.Cols()) && y+h <= float64(img.Rows()) && w > 0 && h > 0 {
			boxes = append(boxes, types.BoundingBox{
				X:          x,
				Y:          y,
				Width:      w,
				Height:     h,
				Confidence: confidence,
			})
		}
	}

	return boxes
}

// IsHealthy checks if the detector is usable
func (yfd *YuNetFaceDetector) IsHealthy() bool {
	return yfd.modelLoaded
}

// Close releases resources
func (yfd *YuNetFaceDetector) Close() {
	if yfd.modelLoaded {
		yfd.detector.Close()
		yfd.modelLoaded = false
	}
}

// GetDefaultYuNetConfig returns default YuNet configuration
func GetDefaultYuNetConfig() YuNetConfig {
	return YuNetConfig{
		ModelPath:           "./models/yunet/face_detection_yunet_2023mar.onnx",
		InputSize:           image.Pt(320, 320),
		ConfidenceThreshold: 0.6,
		NMSThreshold:        0.3,
		TopK:                5000,
	}
}
