package classifier

import (
	"math"
	"testing"
)

func TestDecode(t *testing.T) {
	nan := float32(math.NaN())

	tests := []struct {
		name           string
		output         []float32
		wantLabel      string
		wantConfidence float32
	}{
		{
			name:           "first maximum wins ties",
			output:         []float32{0.5, 0.9, 0.9, 0.1},
			wantLabel:      "severity_1",
			wantConfidence: 0.9,
		},
		{
			name:           "seven class output",
			output:         []float32{0.01, 0.02, 0.03, 0.04, 0.8, 0.05, 0.05},
			wantLabel:      "severity_7",
			wantConfidence: 0.8,
		},
		{
			name:           "raw logits are reported verbatim",
			output:         []float32{-3.2, 4.75, 1.1, 0, 0, 0, 0},
			wantLabel:      "severity_1",
			wantConfidence: 4.75,
		},
		{
			name:           "all negative",
			output:         []float32{-5, -2, -7},
			wantLabel:      "severity_1",
			wantConfidence: -2,
		},
		{
			name:           "index past vocabulary is unknown",
			output:         []float32{0, 0, 0, 0, 0, 0, 0, 0.3, 0.9},
			wantLabel:      "unknown",
			wantConfidence: 0.9,
		},
		{
			name:           "last vocabulary slot",
			output:         []float32{0, 0, 0, 0, 0, 0, 1},
			wantLabel:      "unknown",
			wantConfidence: 1,
		},
		{
			name:           "single element",
			output:         []float32{0.42},
			wantLabel:      "severity_0",
			wantConfidence: 0.42,
		},
		{
			name:           "NaN never wins",
			output:         []float32{nan, 0.2, nan},
			wantLabel:      "severity_1",
			wantConfidence: 0.2,
		},
		{
			name:      "empty output",
			output:    nil,
			wantLabel: "unknown",
		},
		{
			name:      "all NaN",
			output:    []float32{nan, nan},
			wantLabel: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.output)
			if got.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", got.Label, tt.wantLabel)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestArgmax_TieBreak(t *testing.T) {
	if got := Argmax([]float32{0.5, 0.9, 0.9, 0.1}); got != 1 {
		t.Errorf("Argmax = %d, want 1", got)
	}
	if got := Argmax([]float32{3, 3, 3}); got != 0 {
		t.Errorf("Argmax = %d, want 0", got)
	}
}

func TestLabel_Bounds(t *testing.T) {
	for i := 7; i < 12; i++ {
		if got := Label(i); got != UnknownLabel {
			t.Errorf("Label(%d) = %q, want unknown", i, got)
		}
	}
	if got := Label(-1); got != UnknownLabel {
		t.Errorf("Label(-1) = %q, want unknown", got)
	}
	if got := Label(3); got != "severity_5" {
		t.Errorf("Label(3) = %q, want severity_5", got)
	}
}

func TestTreatmentFor(t *testing.T) {
	for _, label := range Labels {
		if TreatmentFor(label).Title == "" {
			t.Errorf("no treatment for %q", label)
		}
	}
	if got := TreatmentFor("severity_42"); got.Title != "Unknown Condition" {
		t.Errorf("fallback title = %q, want Unknown Condition", got.Title)
	}
}
