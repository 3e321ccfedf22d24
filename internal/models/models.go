package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultCapacityKWp is substituted when a source's nominal capacity cannot be parsed.
const DefaultCapacityKWp = 5.0

type EnergySource struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Location        string `json:"location"`
	NominalCapacity string `json:"nominal_capacity_kwp"` // kWp, kept as entered
	Brand           string `json:"brand"`
	Model           string `json:"model"`
	InstallDate     string `json:"install_date"`
}

// CapacityKWp parses the nominal capacity. The second value is false when
// the stored value was unusable and DefaultCapacityKWp was returned instead.
// Zero is a valid capacity; negative and non-finite values are not.
func (s EnergySource) CapacityKWp() (float64, bool) {
	raw := strings.TrimSpace(s.NominalCapacity)
	if !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultCapacityKWp, false
	}
	return v, true
}

type ProductionSample struct {
	Timestamp     time.Time `json:"timestamp"`
	PowerKW       float64   `json:"power_kw"`
	EnergyKWh     float64   `json:"energy_kwh"`
	InverterTempC *float64  `json:"inverter_temp_c,omitempty"`
	SourceID      int64     `json:"source_id"`
}

type WeatherDay struct {
	Date          string  `json:"date"` // YYYY-MM-DD
	TempMax       float64 `json:"temp_max"`
	TempMin       float64 `json:"temp_min"`
	Clouds        float64 `json:"clouds"` // percent
	Rain          float64 `json:"rain"`   // mm
	UVI           float64 `json:"uvi"`
	Pop           float64 `json:"pop"` // percent
	DaylightHours float64 `json:"daylight_hours"`
	Humidity      int     `json:"humidity"`
	WeatherID     int     `json:"weather_id"`
	WeatherMain   string  `json:"weather_main"`
	Description   string  `json:"weather_description"`
	Icon          string  `json:"weather_icon"`
}

type Origin string

const (
	OriginReal      Origin = "real"
	OriginSimulated Origin = "simulated"
)

type ForecastDay struct {
	WeatherDay
	ClimaticFactor    float64 `json:"climatic_factor"`
	EnergyEstimateKWh float64 `json:"energy_estimate_kwh"`
	Advisory          string  `json:"advisory_message"`
	Origin            Origin  `json:"origin"`
}

type ForecastDocument struct {
	SourceID     int64         `json:"source_id"`
	GeneratedAt  time.Time     `json:"generated_at"`
	ForecastDays []ForecastDay `json:"forecast_days"`
	IsSimulated  bool          `json:"is_simulated"`
	Path         string        `json:"path"`
	Narrative    string        `json:"narrative,omitempty"`
}
