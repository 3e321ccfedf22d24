package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lox/solarforecast/internal/models"
)

const dateLayout = "2006-01-02"

var ErrInvalidDay = errors.New("invalid day, want YYYY-MM-DD")

type DailyEnergy struct {
	Date      string  `json:"date"`
	EnergyKWh float64 `json:"energy_kwh"`
}

type HourlyPower struct {
	Hour    int     `json:"hour"`
	PowerKW float64 `json:"power_kw"`
}

type Summary struct {
	TotalEnergyKWh     float64    `json:"total_energy_kwh"`
	PeakPowerKW        float64    `json:"peak_power_kw"`
	MeanDailyEnergyKWh float64    `json:"mean_daily_energy_kwh"`
	DaysMonitored      int        `json:"days_monitored"`
	LastUpdate         *time.Time `json:"last_update"`
	Synthetic          bool       `json:"synthetic"`
}

type DailyReport struct {
	Days      []DailyEnergy `json:"days"`
	Synthetic bool          `json:"synthetic"`
}

type HourlyReport struct {
	Date      string        `json:"date"`
	Hours     []HourlyPower `json:"hours"`
	Synthetic bool          `json:"synthetic"`
}

// Daily sums energy per calendar date in loc, sorted by date.
func Daily(samples []models.ProductionSample, loc *time.Location) []DailyEnergy {
	totals := make(map[string]float64)
	for _, s := range samples {
		totals[s.Timestamp.In(loc).Format(dateLayout)] += s.EnergyKWh
	}

	days := make([]DailyEnergy, 0, len(totals))
	for date, energy := range totals {
		days = append(days, DailyEnergy{Date: date, EnergyKWh: round2(energy)})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// Hourly averages power per hour of the given day, always returning all 24
// hours with 0 where there is no data. An empty day selects the last date
// that has samples.
func Hourly(samples []models.ProductionSample, loc *time.Location, day string) (string, []HourlyPower, error) {
	if day == "" {
		if len(samples) > 0 {
			day = samples[len(samples)-1].Timestamp.In(loc).Format(dateLayout)
		}
	} else if _, err := time.ParseInLocation(dateLayout, day, loc); err != nil {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidDay, day)
	}

	var sum [24]float64
	var count [24]int
	for _, s := range samples {
		local := s.Timestamp.In(loc)
		if local.Format(dateLayout) != day {
			continue
		}
		sum[local.Hour()] += s.PowerKW
		count[local.Hour()]++
	}

	hours := make([]HourlyPower, 24)
	for h := range hours {
		hours[h].Hour = h
		if count[h] > 0 {
			hours[h].PowerKW = round2(sum[h] / float64(count[h]))
		}
	}
	return day, hours, nil
}

// Summarize computes the headline metrics of a series. Samples must be
// sorted, as Merge returns them.
func Summarize(samples []models.ProductionSample, loc *time.Location) Summary {
	var sum Summary
	if len(samples) == 0 {
		return sum
	}

	var total, peak float64
	for _, s := range samples {
		total += s.EnergyKWh
		peak = math.Max(peak, s.PowerKW)
	}

	daily := Daily(samples, loc)
	var dailyTotal float64
	for _, d := range daily {
		dailyTotal += d.EnergyKWh
	}

	last := samples[len(samples)-1].Timestamp
	sum.TotalEnergyKWh = round2(total)
	sum.PeakPowerKW = round2(peak)
	sum.MeanDailyEnergyKWh = round2(dailyTotal / float64(len(daily)))
	sum.DaysMonitored = len(daily)
	sum.LastUpdate = &last
	return sum
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
