// Package metrics contains pure typing-speed calculations.
package metrics

import (
	"math"

	"keyduel/internal/model"
)

// WPM computes words per minute from correctly typed characters, one
// word being five characters. Returns 0 when no time has elapsed.
func WPM(correctChars int, elapsedSeconds float64) int {
	return grossWPM(correctChars, elapsedSeconds)
}

// RawWPM computes gross throughput including mistakes.
func RawWPM(totalChars int, elapsedSeconds float64) int {
	return grossWPM(totalChars, elapsedSeconds)
}

func grossWPM(chars int, elapsedSeconds float64) int {
	if elapsedSeconds <= 0 {
		return 0
	}
	minutes := elapsedSeconds / 60.0
	wpm := int(math.Round(float64(chars) / 5.0 / minutes))
	if wpm < 0 {
		return 0
	}
	return wpm
}

// Accuracy returns the percentage of correct keystrokes in [0,100].
// An attempt with no keystrokes counts as fully accurate.
func Accuracy(correct, incorrect int) int {
	total := correct + incorrect
	if total == 0 {
		return 100
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// Consistency scores pacing steadiness in [0,100] from per-second WPM
// samples: 100 minus the population standard deviation relative to the
// mean. Fewer than two samples, or a zero mean, score 0.
func Consistency(samples []model.WpmSample) int {
	if len(samples) < 2 {
		return 0
	}
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = float64(s.WPM)
	}
	mean := meanOf(values)
	if mean <= 0 {
		return 0
	}
	sd := populationStdDev(values, mean)
	score := int(math.Round(100 - 100*sd/mean))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStdDev(values []float64, mean float64) float64 {
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
