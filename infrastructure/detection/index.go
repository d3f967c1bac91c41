package detection

import (
	"sync"

	"github.com/louskac/VHP/infrastructure/logger"
)

var (
	service     *HumanPresenceClassifier
	faceService *YuNetFaceDetector
	bodyService *MobileNetPersonDetector
	loadOnce    sync.Once
)

// InitialiseDetectionService loads the detection models. Loading is
// guarded so concurrent verification runs share a single model handle;
// repeat calls are no-ops.
func InitialiseDetectionService() {
	loadOnce.Do(func() {
		faceService = NewYuNetFaceDetector(GetDefaultYuNetConfig())
		bodyService = NewMobileNetPersonDetector(GetDefaultMobileNetConfig())
		service = &HumanPresenceClassifier{
			Face:   faceService,
			Person: bodyService,
		}
		logger.Info("human presence detection service initialised")
	})
}

// Service returns the shared classifier, loading models on first use.
func Service() *HumanPresenceClassifier {
	InitialiseDetectionService()
	return service
}

// Dispose releases the loaded models.
func Dispose() {
	if faceService != nil {
		faceService.Close()
	}
	if bodyService != nil {
		bodyService.Close()
	}
}
