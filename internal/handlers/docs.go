package handlers

import (
	"encoding/json"
	"net/http"
)

func jsonContent(schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{"schema": schema},
	}
}

func ref(name string) map[string]string {
	return map[string]string{"$ref": "#/components/schemas/" + name}
}

func arrayOf(name string) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": ref(name)}
}

func okResponse(description string, schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content":     jsonContent(schema),
	}
}

func errorResponse(description string) map[string]interface{} {
	return okResponse(description, ref("Error"))
}

var fieldIDParam = map[string]interface{}{
	"name":        "id",
	"in":          "path",
	"required":    true,
	"description": "Field ID",
	"schema":      map[string]string{"type": "string", "format": "uuid"},
}

// OpenAPISpec returns the OpenAPI 3.0 document for the PaddyGuard API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	number := map[string]string{"type": "number"}
	str := map[string]string{"type": "string"}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "PaddyGuard API",
			"description": "Rice leaf severity classification and weather-driven disease and pest risk for monitored paddy fields",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/diagnose": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Classify a leaf photo",
					"description": "Decodes a JPEG or PNG, centre-crops and resizes it to 224x224 and returns the severity label with treatment advice. The scan is recorded in history.",
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"multipart/form-data": map[string]interface{}{
								"schema": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"image": map[string]string{"type": "string", "format": "binary"},
									},
									"required": []string{"image"},
								},
							},
							"image/jpeg": map[string]interface{}{
								"schema": map[string]string{"type": "string", "format": "binary"},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": okResponse("Classification result", ref("Diagnosis")),
						"400": errorResponse("Image missing or undecodable"),
						"413": errorResponse("Image too large"),
						"500": errorResponse("Inference failed"),
						"503": errorResponse("Model could not be loaded"),
					},
				},
			},
			"/api/history": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "List recent scans, newest first",
					"parameters": []map[string]interface{}{
						{
							"name":        "limit",
							"in":          "query",
							"required":    false,
							"description": "Maximum records (default and cap: 50)",
							"schema":      map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 50},
						},
					},
					"responses": map[string]interface{}{
						"200": okResponse("Scan records", arrayOf("ScanRecord")),
					},
				},
				"delete": map[string]interface{}{
					"summary": "Clear scan history",
					"responses": map[string]interface{}{
						"200": okResponse("Number of deleted scans", map[string]interface{}{
							"type":       "object",
							"properties": map[string]interface{}{"deleted": map[string]string{"type": "integer"}},
						}),
					},
				},
			},
			"/api/diseases": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "List the disease and pest threshold catalog",
					"responses": map[string]interface{}{
						"200": okResponse("Catalog in display order", arrayOf("DiseaseProfile")),
					},
				},
			},
			"/api/risk": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Rank risk for one day of conditions",
					"description": "Scores each code against the day and returns results ordered HIGH, MODERATE, LOW. Ties keep the request order. Unknown codes score LOW. Omitting codes scores the full catalog.",
					"requestBody": map[string]interface{}{
						"required": true,
						"content":  jsonContent(ref("RiskRequest")),
					},
					"responses": map[string]interface{}{
						"200": okResponse("Ranked results", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"date":    str,
								"results": arrayOf("RiskResult"),
							},
						}),
						"400": errorResponse("Missing or non-finite weather values"),
					},
				},
			},
			"/api/weather/outlook": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Short-range display forecast",
					"parameters": []map[string]interface{}{
						{"name": "lat", "in": "query", "required": false, "schema": number},
						{"name": "lon", "in": "query", "required": false, "schema": number},
					},
					"responses": map[string]interface{}{
						"200": okResponse("Outlook; stale is true when served from cache", ref("Outlook")),
						"400": errorResponse("Invalid coordinates"),
						"502": errorResponse("Forecast provider unavailable and nothing cached"),
					},
				},
			},
			"/api/fields": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "List fields",
					"responses": map[string]interface{}{
						"200": okResponse("Fields, oldest first", arrayOf("Field")),
					},
				},
				"post": map[string]interface{}{
					"summary":     "Create or update a field",
					"description": "Without id a field is created; the first field becomes active.",
					"requestBody": map[string]interface{}{
						"required": true,
						"content":  jsonContent(ref("Field")),
					},
					"responses": map[string]interface{}{
						"200": okResponse("Updated field", ref("Field")),
						"201": okResponse("Created field", ref("Field")),
						"400": errorResponse("Invalid field"),
					},
				},
			},
			"/api/fields/active": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Get the active field",
					"responses": map[string]interface{}{
						"200": okResponse("Active field", ref("Field")),
						"404": errorResponse("No field is active"),
					},
				},
			},
			"/api/fields/{id}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Get a field",
					"parameters": []map[string]interface{}{fieldIDParam},
					"responses": map[string]interface{}{
						"200": okResponse("Field", ref("Field")),
						"404": errorResponse("Field not found"),
					},
				},
				"delete": map[string]interface{}{
					"summary":     "Delete a field",
					"description": "Deleting the active field activates the oldest remaining one.",
					"parameters":  []map[string]interface{}{fieldIDParam},
					"responses": map[string]interface{}{
						"204": map[string]string{"description": "Deleted"},
						"404": errorResponse("Field not found"),
					},
				},
			},
			"/api/fields/{id}/activate": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":    "Make a field the active one",
					"parameters": []map[string]interface{}{fieldIDParam},
					"responses": map[string]interface{}{
						"200": okResponse("Activated field", ref("Field")),
						"404": errorResponse("Field not found"),
					},
				},
			},
			"/api/fields/{id}/risk": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Ranked risk forecast for a field",
					"description": "Fetches the agro forecast for the field location and ranks its monitored codes for each day.",
					"parameters":  []map[string]interface{}{fieldIDParam},
					"responses": map[string]interface{}{
						"200": okResponse("Per-day ranked results", ref("FieldRisk")),
						"400": errorResponse("Field has no location"),
						"404": errorResponse("Field not found"),
						"502": errorResponse("Forecast provider unavailable and nothing cached"),
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Reports service status, model state (unloaded, loading, ready) and database reachability",
					"responses": map[string]interface{}{
						"200": okResponse("Healthy", map[string]interface{}{"type": "object"}),
						"503": okResponse("Degraded", map[string]interface{}{"type": "object"}),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": str,
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   str,
						"message": str,
						"code":    map[string]string{"type": "integer"},
					},
				},
				"Diagnosis": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"scan_id":    map[string]string{"type": "string", "format": "uuid"},
						"label":      map[string]interface{}{"type": "string", "enum": []string{"severity_0", "severity_1", "severity_3", "severity_5", "severity_7", "severity_9", "unknown"}},
						"confidence": number,
						"treatment": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"title":       str,
								"description": str,
								"treatment":   map[string]interface{}{"type": "array", "items": str},
							},
						},
						"created_at": map[string]string{"type": "string", "format": "date-time"},
					},
				},
				"ScanRecord": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":         map[string]string{"type": "string", "format": "uuid"},
						"created_at": map[string]string{"type": "string", "format": "date-time"},
						"image_ref":  str,
						"label":      str,
						"confidence": number,
					},
				},
				"DiseaseProfile": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"code":             str,
						"name":             str,
						"type":             map[string]interface{}{"type": "string", "enum": []string{"disease", "pest"}},
						"temp_min":         number,
						"temp_max":         number,
						"rh_min":           number,
						"rain_min":         number,
						"dewpoint_min":     number,
						"dewpoint_max":     number,
						"leaf_wetness_min": number,
						"consecutive_days": map[string]string{"type": "integer"},
					},
				},
				"WeatherDay": map[string]interface{}{
					"type":     "object",
					"required": []string{"temp_max", "temp_min", "rh_avg", "rain_sum", "dewpoint_avg", "leaf_wetness_hours"},
					"properties": map[string]interface{}{
						"date":               map[string]string{"type": "string", "format": "date"},
						"temp_max":           number,
						"temp_min":           number,
						"rh_avg":             number,
						"rain_sum":           number,
						"dewpoint_avg":       number,
						"leaf_wetness_hours": number,
					},
				},
				"RiskRequest": map[string]interface{}{
					"type":     "object",
					"required": []string{"day"},
					"properties": map[string]interface{}{
						"day":   ref("WeatherDay"),
						"codes": map[string]interface{}{"type": "array", "items": str},
					},
				},
				"RiskResult": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"code":            str,
						"risk":            map[string]interface{}{"type": "string", "enum": []string{"LOW", "MODERATE", "HIGH"}},
						"matchCount":      map[string]string{"type": "integer"},
						"totalConditions": map[string]string{"type": "integer"},
						"matchRate":       number,
					},
				},
				"FieldRisk": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"field_id":   map[string]string{"type": "string", "format": "uuid"},
						"field_name": str,
						"stale":      map[string]string{"type": "boolean"},
						"days": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"date":    str,
									"weather": ref("WeatherDay"),
									"results": arrayOf("RiskResult"),
								},
							},
						},
					},
				},
				"Field": map[string]interface{}{
					"type":     "object",
					"required": []string{"field_name"},
					"properties": map[string]interface{}{
						"id":          map[string]string{"type": "string", "format": "uuid"},
						"field_name":  str,
						"field_area":  str,
						"sowing_date": map[string]string{"type": "string", "format": "date"},
						"location": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"latitude":  number,
								"longitude": number,
								"address":   str,
							},
						},
						"monitored_diseases": map[string]interface{}{"type": "array", "items": str},
						"active":             map[string]string{"type": "boolean"},
					},
				},
				"Outlook": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"current_temp":         number,
						"current_weather_code": map[string]string{"type": "integer"},
						"current_description":  str,
						"current_icon":         str,
						"stale":                map[string]string{"type": "boolean"},
						"days": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"date":                          map[string]string{"type": "string", "format": "date"},
									"weather_code":                  map[string]string{"type": "integer"},
									"description":                   str,
									"icon":                          str,
									"rain_sum":                      number,
									"precipitation_probability_max": number,
									"temp_max":                      number,
									"temp_min":                      number,
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
