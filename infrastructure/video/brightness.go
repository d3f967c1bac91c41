package video

import (
	"image"

	"github.com/louskac/VHP/infrastructure/logger"
)

const (
	// frames darker than this are unusable for detection
	DarkFrameThreshold = 10.0
	// the first frame of a sequence is kept regardless, with a warning
	// below this near-threshold, so a fully dark video still yields output
	FirstFrameWarnThreshold = 15.0

	brightnessStride = 4
)

// Brightness computes perceptual luma (0-255) over every 4th pixel in
// row-major order. Sparse sampling keeps this cheap on large frames.
func Brightness(img image.Image) float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	if width == 0 || bounds.Dy() == 0 {
		return 0
	}

	var totalLuma float64
	var count int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			idx := (y-bounds.Min.Y)*width + (x - bounds.Min.X)
			if idx%brightnessStride != 0 {
				continue
			}
			r, g, b, _ := img.At(x, y).RGBA()
			totalLuma += 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return totalLuma / float64(count)
}

// FilterDark drops frames too dark to analyze. The first frame is always
// retained so a completely dark sequence still produces one sample.
func FilterDark(frames []FrameSample) []FrameSample {
	kept := []FrameSample{}
	for i, frame := range frames {
		if i == 0 {
			if frame.Brightness < FirstFrameWarnThreshold {
				logger.Warning("first frame is very dark, keeping it anyway", logger.LoggerOptions{
					Key:  "brightness",
					Data: frame.Brightness,
				})
			}
			kept = append(kept, frame)
			continue
		}
		if frame.Brightness < DarkFrameThreshold {
			logger.Info("skipping dark frame", logger.LoggerOptions{
				Key:  "offset",
				Data: frame.Offset,
			}, logger.LoggerOptions{
				Key:  "brightness",
				Data: frame.Brightness,
			})
			continue
		}
		kept = append(kept, frame)
	}
	return kept
}
