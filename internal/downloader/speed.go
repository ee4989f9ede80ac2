package downloader

import "math"

// SpeedWindow is a fixed-size sliding window of throughput samples.
// It reports 0 until the window is full.
type SpeedWindow struct {
	size    int
	samples []float64
}

// NewSpeedWindow creates a window holding the last size samples.
func NewSpeedWindow(size int) *SpeedWindow {
	if size < 1 {
		size = 1
	}
	return &SpeedWindow{size: size, samples: make([]float64, 0, size)}
}

// Add appends a sample in bytes per second, evicting the oldest when full.
func (w *SpeedWindow) Add(sample float64) {
	if len(w.samples) == w.size {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.size-1]
	}
	w.samples = append(w.samples, sample)
}

// Speed returns the mean of the window, or 0 while it is not yet full.
func (w *SpeedWindow) Speed() float64 {
	if len(w.samples) < w.size {
		return 0
	}
	var sum float64
	for _, s := range w.samples {
		sum += s
	}
	return sum / float64(len(w.samples))
}

// EstimateSeconds returns the time left for remaining bytes at speed,
// or +Inf when speed is not positive.
func EstimateSeconds(remaining int64, speed float64) float64 {
	if speed <= 0 {
		return math.Inf(1)
	}
	if remaining < 0 {
		remaining = 0
	}
	return float64(remaining) / speed
}
