package forecast

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/lox/solarforecast/internal/models"
)

type condition struct {
	id          int
	main        string
	description string
	icon        string
}

// conditions are ordered from most to least favourable; the draw is biased
// toward the front.
var conditions = []condition{
	{800, "Clear", "clear sky", "01d"},
	{801, "Clouds", "few clouds", "02d"},
	{802, "Clouds", "scattered clouds", "03d"},
	{803, "Clouds", "broken clouds", "04d"},
	{500, "Rain", "light rain", "10d"},
}

// simulateWeather draws plausible weather for days consecutive dates
// starting at start.
func simulateWeather(rng *rand.Rand, start time.Time, days int) []models.WeatherDay {
	out := make([]models.WeatherDay, 0, days)
	for i := range days {
		c := conditions[min(int(rng.ExpFloat64()), len(conditions)-1)]

		d := models.WeatherDay{
			Date:          start.AddDate(0, 0, i).Format("2006-01-02"),
			TempMax:       round1(26 + uniform(rng, -4, 6)),
			DaylightHours: round1(12 + uniform(rng, -1, 1)),
			Humidity:      40 + rng.IntN(40),
			WeatherID:     c.id,
			WeatherMain:   c.main,
			Description:   c.description,
			Icon:          c.icon,
		}
		d.TempMin = round1(d.TempMax - uniform(rng, 3, 8))

		switch c.main {
		case "Clear":
			d.UVI = 9
		case "Clouds":
			d.Clouds = float64(25 + rng.IntN(35))
			d.Pop = 20
			d.UVI = 6
		default:
			d.Clouds = float64(60 + rng.IntN(30))
			d.Pop = 70
			d.UVI = 3
			d.Rain = round1(uniform(rng, 0.5, 5))
		}
		out = append(out, d)
	}
	return out
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
