package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/louskac/VHP/entities"
	"github.com/louskac/VHP/infrastructure/logger"
)

// FFmpegSource is a Source backed by ffmpeg/ffprobe. The blob is staged to
// a temp file once; each seek extracts the frame at the requested offset.
type FFmpegSource struct {
	path        string
	duration    float64
	position    float64
	frame       image.Image
	ffmpegPath  string
	ffprobePath string
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// NewFFmpegSource stages a video blob and probes its duration. A failed
// probe is not fatal; the source reports NaN and callers use the fallback
// offset list.
func NewFFmpegSource(blob *entities.MediaBlob) (*FFmpegSource, error) {
	file, err := os.CreateTemp("", "vhp-video-*"+extensionForMime(blob.MimeType))
	if err != nil {
		return nil, fmt.Errorf("failed to stage video: %w", err)
	}
	if _, err := file.Write(blob.Data); err != nil {
		file.Close()
		os.Remove(file.Name())
		return nil, fmt.Errorf("failed to stage video: %w", err)
	}
	file.Close()

	src := &FFmpegSource{
		path:        file.Name(),
		duration:    math.NaN(),
		position:    -1,
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
	}
	src.probeDuration()
	return src, nil
}

func (src *FFmpegSource) probeDuration() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, src.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		src.path,
	)
	output, err := cmd.Output()
	if err != nil {
		logger.Warning("ffprobe failed, duration unknown", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal(output, &probeData); err != nil {
		return
	}
	if probeData.Format.Duration == "" {
		return
	}
	if duration, err := strconv.ParseFloat(probeData.Format.Duration, 64); err == nil {
		src.duration = duration
	}
}

func (src *FFmpegSource) Duration() float64 {
	return src.duration
}

func (src *FFmpegSource) CurrentTime() float64 {
	return src.position
}

// Seek extracts the frame at the requested offset. A timeout leaves the
// previously captured frame in place.
func (src *FFmpegSource) Seek(offset float64, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, src.ffmpegPath,
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", src.path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("seek to %.2fs timed out", offset)
		}
		return fmt.Errorf("frame extraction failed at %.2fs: %w", offset, err)
	}

	img, _, err := image.Decode(bytes.NewReader(output))
	if err != nil {
		return fmt.Errorf("failed to decode extracted frame at %.2fs: %w", offset, err)
	}

	src.frame = img
	src.position = offset
	return nil
}

func (src *FFmpegSource) Capture() (image.Image, error) {
	if src.frame == nil {
		return nil, fmt.Errorf("no frame available at position %.2fs", src.position)
	}
	return src.frame, nil
}

func (src *FFmpegSource) Close() error {
	return os.Remove(src.path)
}

func extensionForMime(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "quicktime"):
		return ".mov"
	default:
		return ".mp4"
	}
}
