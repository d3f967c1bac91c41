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

// ssdPersonClassID is the "person" class in the VOC label set the
// MobileNet-SSD model is trained on.
const ssdPersonClassID = 15

// MobileNetPersonDetector provides whole-person detection using
// MobileNet-SSD, filtered to the person class.
type MobileNetPersonDetector struct {
	net                 gocv.Net
	inputSize           image.Point
	confidenceThreshold float32
	nmsThreshold        float32
	modelLoaded         bool
	mutex               sync.Mutex
}

// MobileNetConfig holds configuration for the MobileNet detector
type MobileNetConfig struct {
	ModelPath           string
	ConfigPath          string
	InputSize           image.Point
	ConfidenceThreshold float32
	NMSThreshold        float32
	Backend             gocv.NetBackendType
	Target              gocv.NetTargetType
}

// NewMobileNetPersonDetector creates a new MobileNet person detector
func NewMobileNetPersonDetector(config MobileNetConfig) *MobileNetPersonDetector {
	service := &MobileNetPersonDetector{
		inputSize:           config.InputSize,
		confidenceThreshold: config.ConfidenceThreshold,
		nmsThreshold:        config.NMSThreshold,
	}

	if err := service.loadModel(config); err != nil {
		logger.Error("Failed to load MobileNet model", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return service
	}

	service.modelLoaded = true
	logger.Info("MobileNet person detector initialized successfully")
	return service
}

func (mpd *MobileNetPersonDetector) loadModel(config MobileNetConfig) error {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", config.ModelPath)
	}
	if _, err := os.Stat(config.ConfigPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", config.ConfigPath)
	}

	mpd.net = gocv.ReadNet(config.ModelPath, config.ConfigPath)
	if mpd.net.Empty() {
		return fmt.Errorf("failed to load MobileNet model from %s and %s", config.ModelPath, config.ConfigPath)
	}

	mpd.net.SetPreferableBackend(config.Backend)
	mpd.net.SetPreferableTarget(config.Target)

	logger.Info("MobileNet model loaded successfully", logger.LoggerOptions{
		Key: "model_info",
		Data: map[string]interface{}{
			"model_path":  config.ModelPath,
			"config_path": config.ConfigPath,
			"input_size":  fmt.Sprintf("%dx%d", config.InputSize.X, config.InputSize.Y),
		},
	})

	return nil
}

// DetectPersons performs person detection using MobileNet-SSD
func (mpd *MobileNetPersonDetector) DetectPersons(img image.Image) ([]types.BoundingBox, error) {
	if !mpd.modelLoaded {
		return nil, fmt.Errorf("MobileNet model not loaded")
	}

	mat, err := convertImageToMat(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to Mat: %v", err)
	}
	defer mat.Close()

	mpd.mutex.Lock()
	defer mpd.mutex.Unlock()

	if mpd.net.Empty() {
		return nil, fmt.Errorf("MobileNet network is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/127.5, mpd.inputSize, gocv.NewScalar(127.5, 127.5, 127.5, 0), false, false)
	defer blob.Close()

	mpd.net.SetInput(blob, "")

	detections := mpd.net.Forward("")
	defer detections.Close()

	rects, confidences := mpd.parseDetections(detections, mat)

	// Non-Maximum Suppression to drop overlapping candidates
	indices := gocv.NMSBoxes(rects, confidences, mpd.confidenceThreshold, mpd.nmsThreshold)

	var boxes []types.BoundingBox
	for _, idx := range indices {
		boxes = append(boxes, types.BoundingBox{
			X:          float64(rects[idx].Min.X),
			Y:          float64(rects[idx].Min.Y),
			Width:      float64(rects[idx].Dx()),
			Height:     float64(rects[idx].Dy()),
			Confidence: float64(confidences[idx]),
		})
	}

	return boxes, nil
}

// parseDetections extracts person-class rows from the SSD output.
// Each row is [imageID, classID, confidence, x1, y1, x2, y2] normalized.
func (mpd *MobileNetPersonDetector) parseDetections(detections gocv.Mat, img gocv.Mat) ([]image.Rectangle, []float32) {
	var rects []image.Rectangle
	var confidences []float32

	for i := 0; i < detections.Rows(); i++ {
		classID := int(detections.GetFloatAt(i, 1))
		confidence := detections.GetFloatAt(i, 2)

		if classID != ssdPersonClassID || confidence <= mpd.confidenceThreshold {
			continue
		}

		x1 := int(detections.GetFloatAt(i, 3) * float32(img.Cols()))
		y1 := int(detections.GetFloatAt(i, 4) * float32(img.Rows()))
		x2 := int(detections.GetFloatAt(i, 5) * float32(img.Cols()))
		y2 := int(detections.GetFloatAt(i, 6) * float32(img.Rows()))

		if x1 >= 0 && y1 >= 0 && x2 <= img.Cols() && y2 <= img.Rows() && x2 > x1 && y2 > y1 {
			rects = append(rects, image.Rect(x1, y1, x2, y2))
			confidences = append(confidences, confidence)
		}
	}

	return rects, confidences
}

// IsHealthy checks if the detector is usable
func (mpd *MobileNetPersonDetector) IsHealthy() bool {
	return mpd.modelLoaded && !mpd.net.Empty()
}

// Close releases resources
func (mpd *MobileNetPersonDetector) Close() {
	if !mpd.net.Empty() {
		mpd.net.Close()
	}
	mpd.modelLoaded = false
}

// GetDefaultMobileNetConfig returns default MobileNet configuration
func GetDefaultMobileNetConfig() MobileNetConfig {
	return MobileNetConfig{
		ModelPath:           "./models/mobilenet/MobileNetSSD_deploy.caffemodel",
		ConfigPath:          "./models/mobilenet/MobileNetSSD_deploy.prototxt",
		InputSize:           image.Pt(300, 300),
		ConfidenceThreshold: 0.4,
		NMSThreshold:        0.4,
		Backend:             gocv.NetBackendOpenCV,
		Target:              gocv.NetTargetCPU,
	}
}
