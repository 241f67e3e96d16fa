// Package risk scores forecast days against disease and pest threshold
// profiles. Everything here is pure and safe for concurrent use.
package risk

import "paddyguard/internal/models"

// Score evaluates day against profile. Temperature is always one condition;
// each optional threshold adds one condition only when the profile sets it.
func Score(day models.WeatherDay, profile models.DiseaseProfile) models.RiskResult {
	matches, total := 0, 0

	check := func(ok bool) {
		total++
		if ok {
			matches++
		}
	}

	check(day.TempMin >= profile.TempMin && day.TempMax <= profile.TempMax)

	if profile.RHMin != nil {
		check(day.RHAvg >= *profile.RHMin)
	}
	if profile.RainMin != nil {
		check(day.RainSum >= *profile.RainMin)
	}
	if profile.DewpointMin != nil && profile.DewpointMax != nil {
		check(day.DewpointAvg >= *profile.DewpointMin && day.DewpointAvg <= *profile.DewpointMax)
	}
	if profile.LeafWetnessMin != nil {
		check(day.LeafWetnessHours >= *profile.LeafWetnessMin)
	}

	return models.RiskResult{
		Code:            profile.Code,
		Risk:            classify(matches, total),
		MatchCount:      matches,
		TotalConditions: total,
		MatchRate:       float64(matches) / float64(total),
	}
}

// classify applies rate >= 0.8 -> HIGH, rate >= 0.5 -> MODERATE in integer
// arithmetic so the boundaries are exact.
func classify(matches, total int) models.RiskLevel {
	switch {
	case matches*5 >= total*4:
		return models.RiskHigh
	case matches*2 >= total:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

// ScoreCode scores day against the catalog profile for code. An unknown code
// is no evidence, not an error: it yields LOW with zero matches.
func ScoreCode(day models.WeatherDay, code string) models.RiskResult {
	profile, ok := Lookup(code)
	if !ok {
		return models.RiskResult{Code: code, Risk: models.RiskLow}
	}
	return Score(day, profile)
}
