package models

// ProfileType distinguishes diseases from insect pests
type ProfileType string

const (
	TypeDisease ProfileType = "disease"
	TypePest    ProfileType = "pest"
)

// DiseaseProfile is the static threshold definition for one disease or pest.
// The temperature band is always evaluated; every other threshold is optional
// and a nil pointer means the condition is not part of the profile.
type DiseaseProfile struct {
	Code            string      `json:"code"`
	Name            string      `json:"name"`
	Type            ProfileType `json:"type"`
	TempMin         float64     `json:"temp_min"`
	TempMax         float64     `json:"temp_max"`
	RHMin           *float64    `json:"rh_min,omitempty"`
	RainMin         *float64    `json:"rain_min,omitempty"`
	DewpointMin     *float64    `json:"dewpoint_min,omitempty"`
	DewpointMax     *float64    `json:"dewpoint_max,omitempty"`
	LeafWetnessMin  *float64    `json:"leaf_wetness_min,omitempty"`
	ConsecutiveDays int         `json:"consecutive_days"`
}

// Threshold returns a pointer to v, for building profiles with optional conditions
func Threshold(v float64) *float64 {
	return &v
}
