package classifier

import "paddyguard/internal/models"

var treatments = map[string]models.Treatment{
	"severity_0": {
		Title:       "Healthy Plant",
		Description: "No signs of disease detected. The plant appears vigorous.",
		Treatment: []string{
			"Continue regular monitoring.",
			"Maintain optimal water levels.",
			"Ensure proper nutrient balance.",
		},
	},
	"severity_1": {
		Title:       "Very Low Infection",
		Description: "Minor spots or discoloration detected (Severity 1).",
		Treatment: []string{
			"Monitor the spreading of spots closely.",
			"Check for nutrient deficiencies (Nitrogen/Potassium).",
			"Keep the field weed-free.",
		},
	},
	"severity_3": {
		Title:       "Low Infection",
		Description: "Visible lesions appearing on some leaves (Severity 3).",
		Treatment: []string{
			"Avoid excessive Nitrogen application.",
			"Improve air circulation if possible.",
			"Consider mild preventive fungicides if weather favors disease.",
		},
	},
	"severity_5": {
		Title:       "Moderate Infection",
		Description: "Significant lesions affecting photosynthesis (Severity 5).",
		Treatment: []string{
			"Remove and destroy heavily infected leaves.",
			"Ensure field drainage is adequate.",
			"Apply recommended fungicides (e.g., Copper-based) if spreading.",
		},
	},
	"severity_7": {
		Title:       "High Infection",
		Description: "Large areas of leaves are damaged (Severity 7). Yield loss risk.",
		Treatment: []string{
			"Immediate chemical control is likely needed.",
			"Consult local agricultural officer.",
			"Drain field water for 2-3 days to reduce humidity.",
		},
	},
	"severity_9": {
		Title:       "Severe Infection",
		Description: "Critical damage to the crop (Severity 9). High risk of major yield loss.",
		Treatment: []string{
			"Harvest immediately if crop is mature.",
			"Burn/bury infected stubble after harvest.",
			"Do not use seeds from this field for next season.",
		},
	},
	UnknownLabel: {
		Title:       "Unknown Condition",
		Description: "The image analysis was inconclusive.",
		Treatment: []string{
			"Try scanning again with better lighting.",
			"Ensure the image is focused on the leaf.",
		},
	},
}

// TreatmentFor returns the advice for label, or the unknown-condition advice
func TreatmentFor(label string) models.Treatment {
	if t, ok := treatments[label]; ok {
		return t
	}
	return treatments[UnknownLabel]
}
