package audio_test

import (
	"math"
	"testing"

	"mavoice/internal/audio"
)

func TestComputeLevels_EmptyIsZero(t *testing.T) {
	t.Parallel()
	if got := audio.ComputeLevels(nil, audio.CaptureBoost); got != (audio.Levels{}) {
		t.Errorf("ComputeLevels(nil) = %v; want zeros", got)
	}
}

func TestComputeLevels_Range(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		window []float32
		boost  float32
	}{
		{"silence", make([]float32, 1024), audio.CaptureBoost},
		{"full scale", constant(1024, 1), audio.CaptureBoost},
		{"negative full scale", constant(1024, -1), audio.PlaybackBoost},
		{"tiny window", []float32{0.5, -0.5, 0.25}, audio.PlaybackBoost},
		{"quiet sine", sine(1024, 0.01), audio.CaptureBoost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for i, v := range audio.ComputeLevels(tt.window, tt.boost) {
				if v < 0 || v > 1 || math.IsNaN(float64(v)) {
					t.Errorf("band %d = %v; want within [0,1]", i, v)
				}
			}
		})
	}
}

func TestComputeLevels_Values(t *testing.T) {
	t.Parallel()

	// Loud only in the last quarter: band 3 saturates, the quiet bands carry
	// just the overall boost.
	window := make([]float32, 1024)
	for i := 768; i < 1024; i++ {
		window[i] = 0.02
	}
	lv := audio.ComputeLevels(window, audio.CaptureBoost)

	overall := 0.02 * math.Sqrt(0.25)
	wantQuiet := float32(overall * audio.CaptureBoost)
	for i := range 3 {
		if math.Abs(float64(lv[i]-wantQuiet)) > 1e-5 {
			t.Errorf("band %d = %v; want %v", i, lv[i], wantQuiet)
		}
	}
	wantLoud := float32(0.02*10 + overall*audio.CaptureBoost)
	if math.Abs(float64(lv[3]-wantLoud)) > 1e-5 {
		t.Errorf("band 3 = %v; want %v", lv[3], wantLoud)
	}
}

func constant(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func sine(n int, amp float64) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(amp * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return s
}
