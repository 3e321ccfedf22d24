// Package forecast turns weather forecasts into solar generation estimates.
package forecast

import (
	"math"

	"github.com/lox/solarforecast/internal/models"
)

// Factor weights. They must sum to 1.0; a new weather signal takes its
// weight from the others.
const (
	WeightUVI      = 0.45
	WeightClouds   = 0.25
	WeightRain     = 0.15
	WeightPop      = 0.05
	WeightDaylight = 0.10
)

// Ideal-condition references the signals are normalised against.
const (
	idealUVI      = 10.0
	idealDaylight = 12.0
	rainCutoffMM  = 25.0
)

// FullSunHours is the regional average of equivalent full-sun hours per day.
const FullSunHours = 4.2

// Factor scores how favourable a forecast day is for generation, from 0
// (no generation) to 1 (ideal). It is the only way weather reaches an
// estimate.
func Factor(d models.WeatherDay) float64 {
	uvi := math.Min(d.UVI/idealUVI, 1)
	clouds := 1 - d.Clouds/100
	rain := 1.0
	if d.Rain != 0 {
		rain = math.Max(0, 1-d.Rain/rainCutoffMM)
	}
	pop := 1 - d.Pop/100
	daylight := math.Min(d.DaylightHours/idealDaylight, 1)

	// Conversions keep each product rounded so no platform fuses them.
	f := float64(WeightUVI*uvi) +
		float64(WeightClouds*clouds) +
		float64(WeightRain*rain) +
		float64(WeightPop*pop) +
		float64(WeightDaylight*daylight)
	return clamp01(f)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// CapacityEstimate is what the installation could deliver at the given
// factor according to its nominal capacity.
func CapacityEstimate(capacityKWp, factor float64) float64 {
	return capacityKWp * FullSunHours * factor
}

// BlendedEstimate scales the historical daily mean by the factor, capped by
// CapacityEstimate so noisy or short history never exceeds the theoretical
// output.
func BlendedEstimate(meanDailyKWh, capacityKWp, factor float64) float64 {
	return math.Min(round2(meanDailyKWh*factor), CapacityEstimate(capacityKWp, factor))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
