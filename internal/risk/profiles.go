package risk

import "paddyguard/internal/models"

var th = models.Threshold

// catalog lists every monitored disease and pest in display order
var catalog = []models.DiseaseProfile{
	{
		Code: "RB", Name: "Rice Blast", Type: models.TypeDisease,
		TempMin: 22, TempMax: 30, RHMin: th(85), RainMin: th(2),
		DewpointMin: th(19), DewpointMax: th(24), LeafWetnessMin: th(8), ConsecutiveDays: 1,
	},
	{
		Code: "BLB", Name: "Bacterial Leaf Blight", Type: models.TypeDisease,
		TempMin: 25, TempMax: 34, RHMin: th(80), RainMin: th(2),
		DewpointMin: th(22), DewpointMax: th(24), LeafWetnessMin: th(6), ConsecutiveDays: 3,
	},
	{
		Code: "SB", Name: "Sheath Blight", Type: models.TypeDisease,
		TempMin: 26, TempMax: 34, RHMin: th(90), RainMin: th(2),
		DewpointMin: th(21), DewpointMax: th(27), LeafWetnessMin: th(8), ConsecutiveDays: 2,
	},
	{
		Code: "GM", Name: "Gall Midge", Type: models.TypePest,
		TempMin: 20, TempMax: 30, RHMin: th(85), RainMin: th(0),
		DewpointMin: th(20), DewpointMax: th(26), LeafWetnessMin: th(0), ConsecutiveDays: 1,
	},
	{
		Code: "BS", Name: "Brown Spot", Type: models.TypeDisease,
		TempMin: 24, TempMax: 30, RHMin: th(80), RainMin: th(2),
		DewpointMin: th(20), DewpointMax: th(25), LeafWetnessMin: th(8), ConsecutiveDays: 3,
	},
	{
		Code: "YSB", Name: "Yellow Stem Borer", Type: models.TypePest,
		TempMin: 22, TempMax: 34, RHMin: th(80), RainMin: th(0),
		DewpointMin: th(20), DewpointMax: th(26), LeafWetnessMin: th(0), ConsecutiveDays: 1,
	},
	{
		Code: "LF", Name: "Leaf Folder", Type: models.TypePest,
		TempMin: 25, TempMax: 32, RHMin: th(70), RainMin: th(0),
		DewpointMin: th(20), DewpointMax: th(27), LeafWetnessMin: th(0), ConsecutiveDays: 1,
	},
	{
		Code: "BPH", Name: "Brown Plant Hopper", Type: models.TypePest,
		TempMin: 25, TempMax: 32, RHMin: th(70), RainMin: th(0),
		DewpointMin: th(20), DewpointMax: th(27), LeafWetnessMin: th(0), ConsecutiveDays: 1,
	},
}

var byCode = func() map[string]models.DiseaseProfile {
	m := make(map[string]models.DiseaseProfile, len(catalog))
	for _, p := range catalog {
		m[p.Code] = p
	}
	return m
}()

// Profiles returns the catalog in display order. Threshold pointers are
// shared with the catalog and must not be written through.
func Profiles() []models.DiseaseProfile {
	out := make([]models.DiseaseProfile, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds the profile for a disease or pest code
func Lookup(code string) (models.DiseaseProfile, bool) {
	p, ok := byCode[code]
	return p, ok
}
