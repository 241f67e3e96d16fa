package models

// RiskLevel is the discrete outcome of scoring one day against one profile
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
)

// Weight orders risk levels for display priority: HIGH=3, MODERATE=2, LOW=1
func (r RiskLevel) Weight() int {
	switch r {
	case RiskHigh:
		return 3
	case RiskModerate:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// RiskResult is the scoring outcome for one (day, disease) pair
type RiskResult struct {
	Code            string    `json:"code"`
	Risk            RiskLevel `json:"risk"`
	MatchCount      int       `json:"matchCount"`
	TotalConditions int       `json:"totalConditions"`
	MatchRate       float64   `json:"matchRate"`
}

// DayRisk groups the ranked results for one forecast day
type DayRisk struct {
	Date    string       `json:"date"`
	Weather WeatherDay   `json:"weather"`
	Results []RiskResult `json:"results"`
}
