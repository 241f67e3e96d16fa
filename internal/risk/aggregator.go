package risk

import (
	"sort"

	"paddyguard/internal/models"
)

// Assess scores day for every code and orders the results HIGH first.
// The sort is stable: equal risk levels keep the order of codes.
func Assess(day models.WeatherDay, codes []string) []models.RiskResult {
	results := make([]models.RiskResult, 0, len(codes))
	for _, code := range codes {
		results = append(results, ScoreCode(day, code))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Risk.Weight() > results[j].Risk.Weight()
	})
	return results
}

// AssessDays runs Assess for each forecast day
func AssessDays(days []models.WeatherDay, codes []string) []models.DayRisk {
	out := make([]models.DayRisk, 0, len(days))
	for _, day := range days {
		out = append(out, models.DayRisk{
			Date:    day.Date,
			Weather: day,
			Results: Assess(day, codes),
		})
	}
	return out
}
