package series

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/lox/solarforecast/internal/ingest"
	"github.com/lox/solarforecast/internal/models"
)

func sample(ts time.Time, power, energy float64) models.ProductionSample {
	return models.ProductionSample{Timestamp: ts, PowerKW: power, EnergyKWh: energy}
}

func testSamples() []models.ProductionSample {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	return []models.ProductionSample{
		sample(d1.Add(10*time.Hour), 2.0, 1.0),
		sample(d1.Add(10*time.Hour+30*time.Minute), 4.0, 2.0),
		sample(d1.Add(12*time.Hour), 5.0, 3.0),
		sample(d2.Add(11*time.Hour), 3.0, 6.0),
	}
}

func TestDaily(t *testing.T) {
	got := Daily(testSamples(), time.UTC)
	want := []DailyEnergy{{"2024-01-01", 6.0}, {"2024-01-02", 6.0}}
	if len(got) != len(want) {
		t.Fatalf("Daily = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Daily[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDaily_UsesLocation(t *testing.T) {
	// 01:00 UTC is still the previous day three hours west.
	loc := time.FixedZone("BRT", -3*3600)
	got := Daily([]models.ProductionSample{sample(time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC), 1, 1)}, loc)
	if len(got) != 1 || got[0].Date != "2024-01-01" {
		t.Errorf("Daily = %+v, want date 2024-01-01", got)
	}
}

func TestHourly(t *testing.T) {
	day, hours, err := Hourly(testSamples(), time.UTC, "2024-01-01")
	if err != nil {
		t.Fatalf("Hourly: %v", err)
	}
	if day != "2024-01-01" {
		t.Errorf("day = %s", day)
	}
	if len(hours) != 24 {
		t.Fatalf("len(hours) = %d, want 24", len(hours))
	}
	if hours[10].PowerKW != 3.0 {
		t.Errorf("hour 10 = %v, want mean 3.0", hours[10].PowerKW)
	}
	if hours[12].PowerKW != 5.0 {
		t.Errorf("hour 12 = %v, want 5.0", hours[12].PowerKW)
	}
	if hours[0].PowerKW != 0 || hours[11].PowerKW != 0 {
		t.Error("hours without data should be 0")
	}
	for h, hp := range hours {
		if hp.Hour != h {
			t.Errorf("hours[%d].Hour = %d", h, hp.Hour)
		}
	}
}

func TestHourly_DefaultsToLastDay(t *testing.T) {
	day, hours, err := Hourly(testSamples(), time.UTC, "")
	if err != nil {
		t.Fatal(err)
	}
	if day != "2024-01-02" {
		t.Errorf("day = %s, want 2024-01-02", day)
	}
	if hours[11].PowerKW != 3.0 {
		t.Errorf("hour 11 = %v, want 3.0", hours[11].PowerKW)
	}
}

func TestHourly_InvalidDay(t *testing.T) {
	_, _, err := Hourly(testSamples(), time.UTC, "01/02/2024")
	if !errors.Is(err, ErrInvalidDay) {
		t.Errorf("err = %v, want ErrInvalidDay", err)
	}
}

func TestSummarize(t *testing.T) {
	sum := Summarize(testSamples(), time.UTC)
	if sum.TotalEnergyKWh != 12.0 {
		t.Errorf("TotalEnergyKWh = %v, want 12", sum.TotalEnergyKWh)
	}
	if sum.PeakPowerKW != 5.0 {
		t.Errorf("PeakPowerKW = %v, want 5", sum.PeakPowerKW)
	}
	if sum.MeanDailyEnergyKWh != 6.0 {
		t.Errorf("MeanDailyEnergyKWh = %v, want 6", sum.MeanDailyEnergyKWh)
	}
	if sum.DaysMonitored != 2 {
		t.Errorf("DaysMonitored = %d, want 2", sum.DaysMonitored)
	}
	want := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)
	if sum.LastUpdate == nil || !sum.LastUpdate.Equal(want) {
		t.Errorf("LastUpdate = %v, want %v", sum.LastUpdate, want)
	}
	if sum.Synthetic {
		t.Error("real summary flagged synthetic")
	}
}

func TestReporter_PlaceholderForMissingData(t *testing.T) {
	sim := ingest.NewSimulator(rand.New(rand.NewPCG(1, 1)), time.UTC)
	ph := NewPlaceholder(sim, time.UTC)
	ph.now = func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) }
	rep := NewReporter(ph)

	for _, status := range []Status{Absent, Empty} {
		s := Series{SourceID: 3, Status: status}

		sum := rep.Summary(s)
		if !sum.Synthetic {
			t.Errorf("%s: summary not flagged synthetic", status)
		}
		if sum.TotalEnergyKWh <= 0 || sum.PeakPowerKW <= 0 {
			t.Errorf("%s: placeholder summary is empty: %+v", status, sum)
		}
		if sum.PeakPowerKW > models.DefaultCapacityKWp*1.2 {
			t.Errorf("%s: placeholder peak %v out of bounds", status, sum.PeakPowerKW)
		}

		daily := rep.Daily(s)
		if !daily.Synthetic || len(daily.Days) == 0 {
			t.Errorf("%s: daily = %+v", status, daily)
		}

		hourly, err := rep.Hourly(s, "2020-01-01")
		if err != nil {
			t.Fatalf("%s: Hourly: %v", status, err)
		}
		if !hourly.Synthetic || len(hourly.Hours) != 24 {
			t.Errorf("%s: hourly = %+v", status, hourly)
		}
		if hourly.Hours[2].PowerKW != 0 {
			t.Errorf("%s: night hour should be 0, got %v", status, hourly.Hours[2].PowerKW)
		}
	}
}

func TestReporter_RealSeries(t *testing.T) {
	rep := NewReporter(NewPlaceholder(ingest.NewSimulator(nil, time.UTC), time.UTC))
	s := Series{SourceID: 1, Status: Present, Samples: testSamples()}

	if sum := rep.Summary(s); sum.Synthetic || sum.TotalEnergyKWh != 12.0 {
		t.Errorf("Summary = %+v", sum)
	}
	if _, err := rep.Hourly(s, "bad"); !errors.Is(err, ErrInvalidDay) {
		t.Errorf("err = %v, want ErrInvalidDay", err)
	}
}
