package video

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func uniformImage(gray uint8, width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{gray, gray, gray, 255})
		}
	}
	return img
}

func TestBrightness(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		want float64
	}{
		{"black image", uniformImage(0, 32, 32), 0},
		{"mid gray", uniformImage(128, 32, 32), 128},
		{"near white", uniformImage(250, 32, 32), 250},
		{"empty image", image.NewRGBA(image.Rect(0, 0, 0, 0)), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Brightness(tt.img)
			if math.Abs(got-tt.want) > 1.0 {
				t.Errorf("Brightness() = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}

func TestFilterDark(t *testing.T) {
	frame := func(offset, brightness float64) FrameSample {
		return FrameSample{Offset: offset, Brightness: brightness}
	}

	tests := []struct {
		name        string
		frames      []FrameSample
		wantOffsets []float64
	}{
		{
			name:        "all bright frames kept",
			frames:      []FrameSample{frame(0, 120), frame(1, 130), frame(2, 140)},
			wantOffsets: []float64{0, 1, 2},
		},
		{
			name:        "dark middle frame dropped",
			frames:      []FrameSample{frame(0, 120), frame(1, 5), frame(2, 140)},
			wantOffsets: []float64{0, 2},
		},
		{
			name:        "dark first frame always kept",
			frames:      []FrameSample{frame(0, 2), frame(1, 3), frame(2, 140)},
			wantOffsets: []float64{0, 2},
		},
		{
			name:        "fully dark sequence keeps one frame",
			frames:      []FrameSample{frame(0, 1), frame(1, 1), frame(2, 1)},
			wantOffsets: []float64{0},
		},
		{
			name:        "no frames",
			frames:      []FrameSample{},
			wantOffsets: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept := FilterDark(tt.frames)
			if len(kept) != len(tt.wantOffsets) {
				t.Fatalf("FilterDark() kept %d frames, want %d", len(kept), len(tt.wantOffsets))
			}
			for i, want := range tt.wantOffsets {
				if kept[i].Offset != want {
					t.Errorf("kept[%d].Offset = %v, want %v", i, kept[i].Offset, want)
				}
			}
		})
	}
}
