// Package classifier maps raw graph output to a severity label.
package classifier

import (
	"math"

	"paddyguard/internal/models"
)

// UnknownLabel is returned for any index outside Labels
const UnknownLabel = "unknown"

// Labels is the fixed output vocabulary, in graph output order
var Labels = [...]string{
	"severity_0",
	"severity_1",
	"severity_3",
	"severity_5",
	"severity_7",
	"severity_9",
	UnknownLabel,
}

// Label resolves an output index, falling back to UnknownLabel when out of range
func Label(idx int) string {
	if idx < 0 || idx >= len(Labels) {
		return UnknownLabel
	}
	return Labels[idx]
}

// Argmax returns the index of the first maximum, or -1 when output has no
// comparable value. The comparison is strict so earlier indices win ties.
func Argmax(output []float32) int {
	maxIdx := -1
	maxVal := float32(math.Inf(-1))
	for i, v := range output {
		if v > maxVal {
			maxVal = v
			maxIdx = i
		}
	}
	return maxIdx
}

// Decode picks the winning label. Confidence is the raw maximum output value
// as produced by the graph; it is deliberately not passed through softmax.
func Decode(output []float32) models.ClassificationResult {
	idx := Argmax(output)
	if idx < 0 {
		// empty or all-NaN output; keep the result JSON-encodable
		return models.ClassificationResult{Label: UnknownLabel}
	}
	return models.ClassificationResult{
		Label:      Label(idx),
		Confidence: output[idx],
	}
}
