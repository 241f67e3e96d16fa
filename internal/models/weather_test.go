package models

import (
	"errors"
	"math"
	"testing"
)

func f64(v float64) *float64 { return &v }

// TestWeatherDayInput_ToWeatherDay tests the strict boundary conversion
func TestWeatherDayInput_ToWeatherDay(t *testing.T) {
	complete := func() WeatherDayInput {
		return WeatherDayInput{
			Date:             "2024-07-01",
			TempMax:          f64(28),
			TempMin:          f64(23),
			RHAvg:            f64(90),
			RainSum:          f64(0),
			DewpointAvg:      f64(21),
			LeafWetnessHours: f64(9),
		}
	}

	tests := []struct {
		name        string
		input       func() WeatherDayInput
		wantErr     bool
		wantField   string
		checkValues func(*testing.T, WeatherDay)
	}{
		{
			name:    "all fields present",
			input:   complete,
			wantErr: false,
			checkValues: func(t *testing.T, day WeatherDay) {
				if day.TempMin != 23 || day.TempMax != 28 {
					t.Errorf("temps = %v/%v, want 23/28", day.TempMin, day.TempMax)
				}
				if day.RainSum != 0 {
					t.Errorf("RainSum = %v, want explicit zero", day.RainSum)
				}
				if day.LeafWetnessHours != 9 {
					t.Errorf("LeafWetnessHours = %v, want 9", day.LeafWetnessHours)
				}
			},
		},
		{
			name: "missing rh_avg",
			input: func() WeatherDayInput {
				in := complete()
				in.RHAvg = nil
				return in
			},
			wantErr:   true,
			wantField: "rh_avg",
		},
		{
			name: "missing leaf wetness",
			input: func() WeatherDayInput {
				in := complete()
				in.LeafWetnessHours = nil
				return in
			},
			wantErr:   true,
			wantField: "leaf_wetness_hours",
		},
		{
			name: "invalid date format",
			input: func() WeatherDayInput {
				in := complete()
				in.Date = "01/07/2024"
				return in
			},
			wantErr:   true,
			wantField: "date",
		},
		{
			name: "empty date is allowed",
			input: func() WeatherDayInput {
				in := complete()
				in.Date = ""
				return in
			},
			wantErr: false,
		},
		{
			name: "non-finite reading",
			input: func() WeatherDayInput {
				in := complete()
				in.DewpointAvg = f64(math.Inf(1))
				return in
			},
			wantErr:   true,
			wantField: "dewpoint_avg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input()
			day, err := in.ToWeatherDay()

			if (err != nil) != tt.wantErr {
				t.Fatalf("ToWeatherDay() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("error type = %T, want *ValidationError", err)
				}
				if verr.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
				}
				return
			}

			if tt.checkValues != nil {
				tt.checkValues(t, day)
			}
		})
	}
}

func TestField_Validate(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		wantErr bool
	}{
		{"minimal", Field{Name: "North plot"}, false},
		{"blank name", Field{Name: "  "}, true},
		{"bad sowing date", Field{Name: "A", SowingDate: "2024/06/01"}, true},
		{"good sowing date", Field{Name: "A", SowingDate: "2024-06-01"}, false},
		{"latitude out of range", Field{Name: "A", Location: &FieldLocation{Latitude: 91}}, true},
		{"longitude out of range", Field{Name: "A", Location: &FieldLocation{Longitude: -181}}, true},
		{"unknown disease code accepted", Field{Name: "A", MonitoredDiseases: []string{"XYZ"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRiskLevel_Weight(t *testing.T) {
	if RiskHigh.Weight() != 3 || RiskModerate.Weight() != 2 || RiskLow.Weight() != 1 {
		t.Errorf("weights = %d/%d/%d, want 3/2/1", RiskHigh.Weight(), RiskModerate.Weight(), RiskLow.Weight())
	}
	if RiskLevel("BOGUS").Weight() != 0 {
		t.Error("unknown level should weigh 0")
	}
}

// TestValidationError tests error handling
func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "date",
		Value:   "invalid",
		Message: "invalid date format",
	}

	if err.Error() != "invalid date format" {
		t.Errorf("Error() = %v, want %v", err.Error(), "invalid date format")
	}

	if err.IsTransient() {
		t.Error("ValidationError should not be transient")
	}
}
