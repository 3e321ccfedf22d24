package narrative

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lox/solarforecast/internal/models"
)

func testDays() []models.ForecastDay {
	return []models.ForecastDay{
		{
			WeatherDay:        models.WeatherDay{Date: "2024-01-01", Clouds: 10, Pop: 0, UVI: 10, Description: "clear sky"},
			EnergyEstimateKWh: 20.5,
		},
		{
			WeatherDay:        models.WeatherDay{Date: "2024-01-02", Clouds: 85, Pop: 70, UVI: 3, WeatherMain: "Rain"},
			EnergyEstimateKWh: 6.12,
		},
	}
}

func TestBuildPrompt(t *testing.T) {
	src := &models.EnergySource{ID: 1, Name: "Roof", Location: "Cachoeiro de Itapemirim", NominalCapacity: "5,5"}
	prompt := BuildPrompt(src, testDays())

	for _, want := range []string{
		"Roof in Cachoeiro de Itapemirim, 5.5 kWp",
		"- 2024-01-01: clear sky, clouds 10, rain 0, UV 10.0, 20.50 kWh",
		"- 2024-01-02: Rain, clouds 85, rain 70, UV 3.0, 6.12 kWh",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestNewWriter_RequiresKey(t *testing.T) {
	if _, err := NewWriter("", ""); err == nil {
		t.Error("expected error without an api key")
	}
	w, err := NewWriter("sk-test", "")
	if err != nil {
		t.Fatal(err)
	}
	if w.model != DefaultModel {
		t.Errorf("model = %q, want %q", w.model, DefaultModel)
	}
}

func TestOutlook_Live(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	w, err := NewWriter(key, "")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text, err := w.Outlook(ctx, &models.EnergySource{ID: 1, Name: "Roof", NominalCapacity: "5"}, testDays())
	if err != nil {
		t.Fatalf("Outlook failed: %v", err)
	}
	t.Logf("outlook: %s", text)
}
