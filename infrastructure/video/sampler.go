package video

import (
	"bytes"
	"image"
	"image/jpeg"
	"math"
	"time"

	"github.com/louskac/VHP/infrastructure/logger"
)

// FallbackOffsets covers roughly the first 15 seconds and is used whenever
// a video reports a non-finite or non-positive duration.
var FallbackOffsets = []float64{0.5, 2, 4, 6, 8, 10, 12.5, 15}

// endMargin keeps generated offsets away from the very end of the video,
// where a seek can land past the last frame.
const endMargin = 0.1

// SamplerConfig tunes frame extraction.
type SamplerConfig struct {
	MaxDimension  int
	JPEGQuality   int
	SeekTimeout   time.Duration
	SettleDelay   time.Duration
	SeekTolerance float64
}

func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		MaxDimension:  640,
		JPEGQuality:   80,
		SeekTimeout:   2 * time.Second,
		SettleDelay:   30 * time.Millisecond,
		SeekTolerance: 0.1,
	}
}

// FrameSampler extracts still images from a Source at requested offsets.
type FrameSampler struct {
	Config SamplerConfig
}

func NewFrameSampler(config SamplerConfig) *FrameSampler {
	if config.MaxDimension <= 0 {
		config.MaxDimension = DefaultSamplerConfig().MaxDimension
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = DefaultSamplerConfig().JPEGQuality
	}
	if config.SeekTimeout <= 0 {
		config.SeekTimeout = DefaultSamplerConfig().SeekTimeout
	}
	if config.SeekTolerance <= 0 {
		config.SeekTolerance = DefaultSamplerConfig().SeekTolerance
	}
	return &FrameSampler{Config: config}
}

// Sample extracts a frame at each offset, in input order. A frame that
// cannot be captured is logged and skipped; it does not abort the rest.
func (fs *FrameSampler) Sample(src Source, offsets []float64) []FrameSample {
	samples := []FrameSample{}
	for _, offset := range offsets {
		sample, err := fs.SampleOne(src, offset)
		if err != nil {
			logger.Warning("failed to capture frame, skipping offset", logger.LoggerOptions{
				Key:  "offset",
				Data: offset,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
			continue
		}
		samples = append(samples, *sample)
	}
	return samples
}

// SampleOne seeks to one offset and captures a single frame.
func (fs *FrameSampler) SampleOne(src Source, offset float64) (*FrameSample, error) {
	if math.Abs(src.CurrentTime()-offset) > fs.Config.SeekTolerance {
		if err := src.Seek(offset, fs.Config.SeekTimeout); err != nil {
			// a slow seek is not fatal; capture whatever the source
			// is showing now
			logger.Warning("seek did not complete in time, proceeding", logger.LoggerOptions{
				Key:  "offset",
				Data: offset,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
		}
	}

	if fs.Config.SettleDelay > 0 {
		time.Sleep(fs.Config.SettleDelay)
	}

	img, err := src.Capture()
	if err != nil {
		return nil, err
	}

	img = downscale(img, fs.Config.MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: fs.Config.JPEGQuality}); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &FrameSample{
		Offset:     offset,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		JPEG:       buf.Bytes(),
		Brightness: Brightness(img),
		Image:      img,
	}, nil
}

// GenerateOffsets produces ascending sample offsets spaced by interval,
// capped at maxFrames and bounded by the duration minus a small margin.
// An unreliable duration selects the fixed fallback list instead.
func GenerateOffsets(duration, interval float64, maxFrames int) []float64 {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		out := make([]float64, len(FallbackOffsets))
		copy(out, FallbackOffsets)
		return out
	}

	limit := duration - endMargin
	if limit < 0 {
		limit = 0
	}

	offsets := []float64{}
	for t := 0.0; t <= limit && len(offsets) < maxFrames; t += interval {
		offsets = append(offsets, t)
	}
	if len(offsets) == 0 {
		offsets = append(offsets, 0)
	}
	return offsets
}

// downscale shrinks an image so its longest side is at most maxDim,
// preserving aspect ratio. Images already small enough pass through.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxDim && height <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(width)
	if height > width {
		scale = float64(maxDim) / float64(height)
	}
	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	for y := 0; y < newHeight; y++ {
		srcY := bounds.Min.Y + y*height/newHeight
		for x := 0; x < newWidth; x++ {
			srcX := bounds.Min.X + x*width/newWidth
			out.Set(x, y, img.At(srcX, srcY))
		}
	}
	return out
}
