package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/lox/solarforecast/internal/models"
)

// MaxForecastDays is the most daily entries the free One Call tier returns.
const MaxForecastDays = 7

type oneCallResponse struct {
	Daily []dailyEntry `json:"daily"`
}

type dailyEntry struct {
	Dt       int64              `json:"dt"`
	Sunrise  int64              `json:"sunrise"`
	Sunset   int64              `json:"sunset"`
	Temp     dailyTemp          `json:"temp"`
	Clouds   float64            `json:"clouds"`
	Weather  []weatherCondition `json:"weather"`
	Rain     float64            `json:"rain"`
	UVI      float64            `json:"uvi"`
	Pop      float64            `json:"pop"` // 0..1
	Humidity int                `json:"humidity"`
}

type dailyTemp struct {
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

type weatherCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Forecast fetches up to days daily forecasts for the coordinates.
func (c *Client) Forecast(ctx context.Context, lat, lon float64, days int) ([]models.WeatherDay, error) {
	days = min(days, MaxForecastDays)

	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	params.Set("exclude", "minutely,hourly,alerts,current")
	params.Set("units", "metric")
	body, err := c.get(ctx, "onecall", c.baseURL+"/onecall", params)
	if err != nil {
		return nil, err
	}

	out, err := parseOneCall(body, days, c.loc)
	if err != nil {
		return nil, err
	}
	c.archive(ctx, "onecall", formatCoord(lat)+","+formatCoord(lon), body)
	return out, nil
}

func parseOneCall(body []byte, days int, loc *time.Location) ([]models.WeatherDay, error) {
	var data oneCallResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode onecall response: %w", err)
	}
	if len(data.Daily) == 0 {
		return nil, errors.New("onecall response has no daily entries")
	}
	if days > 0 && len(data.Daily) > days {
		data.Daily = data.Daily[:days]
	}

	out := make([]models.WeatherDay, 0, len(data.Daily))
	for _, d := range data.Daily {
		day := models.WeatherDay{
			Date:          time.Unix(d.Dt, 0).In(loc).Format("2006-01-02"),
			TempMax:       round1(d.Temp.Max),
			TempMin:       round1(d.Temp.Min),
			Clouds:        d.Clouds,
			Rain:          d.Rain,
			UVI:           d.UVI,
			Pop:           d.Pop * 100,
			DaylightHours: round1(float64(d.Sunset-d.Sunrise) / 3600),
			Humidity:      d.Humidity,
		}
		if len(d.Weather) > 0 {
			w := d.Weather[0]
			day.WeatherID = w.ID
			day.WeatherMain = w.Main
			day.Description = w.Description
			day.Icon = w.Icon
		}
		out = append(out, day)
	}
	return out, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
