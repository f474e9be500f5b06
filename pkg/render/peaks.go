// ABOUTME: Peak extraction from a waveform chunk into one value per output column
// ABOUTME: Bucket maxima, global normalization and the visual boost applied to heights
package render

import "math"

// Boost exaggerates quiet material so it stays visible after normalization
const Boost = 1.6

// BucketPeaks folds samples into width buckets and returns the largest
// magnitude in each. Bucket x covers [floor(x*b), floor((x+1)*b)) with
// b = len(samples)/width. An empty bucket takes |samples[start]|.
func BucketPeaks(samples []float64, width int) []float64 {
	if width <= 0 || len(samples) == 0 {
		return nil
	}

	n := len(samples)
	bucket := float64(n) / float64(width)
	peaks := make([]float64, width)

	for x := 0; x < width; x++ {
		start := int(math.Floor(float64(x) * bucket))
		end := int(math.Floor(float64(x+1) * bucket))
		if end > n {
			end = n
		}

		if end <= start {
			if start < n {
				peaks[x] = math.Abs(samples[start])
			}
			continue
		}

		peak := 0.0
		for _, v := range samples[start:end] {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
		peaks[x] = peak
	}

	return peaks
}

// MaxMagnitude returns the largest |v| in samples, or 1 when every sample is zero
func MaxMagnitude(samples []float64) float64 {
	maxVal := 0.0
	for _, v := range samples {
		if a := math.Abs(v); a > maxVal {
			maxVal = a
		}
	}
	if maxVal == 0 || math.IsNaN(maxVal) {
		return 1
	}
	return maxVal
}

// Normalize scales peaks by maxVal, applies Boost and clamps to 1
func Normalize(peaks []float64, maxVal float64) []float64 {
	if maxVal <= 0 {
		maxVal = 1
	}
	out := make([]float64, len(peaks))
	for i, p := range peaks {
		out[i] = math.Min(1, p/maxVal*Boost)
	}
	return out
}

// NormalizedHeights returns one height in [0, 1] per column
func NormalizedHeights(samples []float64, width int) []float64 {
	return Normalize(BucketPeaks(samples, width), MaxMagnitude(samples))
}
