package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

const oneCallBody = `{
  "lat": -20.8477,
  "lon": -41.115,
  "daily": [
    {"dt": 1704117600, "sunrise": 1704097800, "sunset": 1704145500,
     "temp": {"max": 31.26, "min": 22.04}, "clouds": 20, "humidity": 65,
     "weather": [{"id": 801, "main": "Clouds", "description": "few clouds", "icon": "02d"}],
     "uvi": 11.2, "pop": 0.35},
    {"dt": 1704204000, "sunrise": 1704184230, "sunset": 1704231930,
     "temp": {"max": 27.5, "min": 21.9}, "clouds": 90, "humidity": 88, "rain": 7.4,
     "weather": [{"id": 501, "main": "Rain", "description": "moderate rain", "icon": "10d"}],
     "uvi": 4.1, "pop": 1},
    {"dt": 1704290400, "sunrise": 1704270660, "sunset": 1704318360,
     "temp": {"max": 29, "min": 20}, "clouds": 5, "humidity": 60,
     "weather": [{"id": 800, "main": "Clear", "description": "clear sky", "icon": "01d"}],
     "uvi": 12, "pop": 0}
  ]
}`

type fakeRecorder struct {
	endpoints []string
	sources   []int64
}

func (f *fakeRecorder) StoreRawPayload(provider, endpoint string, sourceID int64, location string, payload []byte) (int64, error) {
	f.endpoints = append(f.endpoints, endpoint)
	f.sources = append(f.sources, sourceID)
	return int64(len(f.endpoints)), nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", time.Second, time.FixedZone("BRT", -3*3600))
	c.baseURL = srv.URL + "/data/2.5"
	c.geoURL = srv.URL + "/geo/1.0"
	return c
}

func TestForecast(t *testing.T) {
	rec := &fakeRecorder{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/onecall" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("appid") != "test-key" || q.Get("units") != "metric" || q.Get("exclude") != "minutely,hourly,alerts,current" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("lat") != "-20.8477" || q.Get("lon") != "-41.1150" {
			t.Errorf("coordinates = %s,%s", q.Get("lat"), q.Get("lon"))
		}
		w.Write([]byte(oneCallBody))
	})
	c.SetPayloadRecorder(rec)

	days, err := c.Forecast(WithSource(context.Background(), 42), -20.8477, -41.1150, 2)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("len = %d, want 2", len(days))
	}

	d := days[0]
	if d.Date != "2024-01-01" {
		t.Errorf("Date = %s, want 2024-01-01", d.Date)
	}
	if d.TempMax != 31.3 || d.TempMin != 22.0 {
		t.Errorf("temps = %v/%v", d.TempMax, d.TempMin)
	}
	if d.Pop != 35 {
		t.Errorf("Pop = %v, want 35", d.Pop)
	}
	if d.DaylightHours != 13.3 {
		t.Errorf("DaylightHours = %v, want 13.3", d.DaylightHours)
	}
	if d.Rain != 0 {
		t.Errorf("Rain = %v, want 0 when absent", d.Rain)
	}
	if d.WeatherID != 801 || d.WeatherMain != "Clouds" || d.Icon != "02d" {
		t.Errorf("condition = %d %s %s", d.WeatherID, d.WeatherMain, d.Icon)
	}
	if days[1].Rain != 7.4 || days[1].Pop != 100 {
		t.Errorf("day 2 rain/pop = %v/%v", days[1].Rain, days[1].Pop)
	}

	if len(rec.endpoints) != 1 || rec.endpoints[0] != "onecall" {
		t.Errorf("archived = %v, want [onecall]", rec.endpoints)
	}
	if len(rec.sources) != 1 || rec.sources[0] != 42 {
		t.Errorf("archived source ids = %v, want [42]", rec.sources)
	}
}

func TestForecast_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key"}`},
		{"malformed", http.StatusOK, `{"daily": [`},
		{"no daily", http.StatusOK, `{"lat": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			if _, err := c.Forecast(context.Background(), 0, 0, 5); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestForecast_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	c.client.Timeout = 50 * time.Millisecond

	if _, err := c.Forecast(context.Background(), 0, 0, 5); err == nil {
		t.Error("expected timeout error")
	}
}

func TestNoAPIKey(t *testing.T) {
	c := NewClient("", 0, nil)
	if _, err := c.Forecast(context.Background(), 0, 0, 5); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Forecast err = %v, want ErrNoAPIKey", err)
	}
	if err := c.CheckKey(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("CheckKey err = %v, want ErrNoAPIKey", err)
	}
	// Known locations resolve without a key.
	if lat, _, err := c.Geocode(context.Background(), "Rua A, Cachoeiro de Itapemirim - ES"); err != nil || lat != -20.8477 {
		t.Errorf("Geocode = %v, %v", lat, err)
	}
}

func TestGeocode(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/geo/1.0/direct" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("q") {
		case "Vitória":
			w.Write([]byte(`[{"name":"Vitória","lat":-20.3155,"lon":-40.3128,"country":"BR"}]`))
		case "broken cachoeiro de itapemirim":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(`[]`))
		}
	})

	lat, lon, err := c.Geocode(context.Background(), "Vitória")
	if err != nil || lat != -20.3155 || lon != -40.3128 {
		t.Errorf("Geocode(Vitória) = %v, %v, %v", lat, lon, err)
	}

	if _, _, err := c.Geocode(context.Background(), "Atlantis"); !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("Geocode(Atlantis) err = %v, want ErrLocationNotFound", err)
	}

	before := calls
	if lat, _, err := c.Geocode(context.Background(), "São Paulo, SP"); err != nil || lat != -23.5505 {
		t.Errorf("Geocode(São Paulo) = %v, %v", lat, err)
	}
	if calls != before {
		t.Error("known location should not call the API")
	}

	// Lower-case names only match after the API fails.
	lat, _, err = c.Geocode(context.Background(), "broken cachoeiro de itapemirim")
	if err != nil || lat != -20.8477 {
		t.Errorf("Geocode fallback = %v, %v", lat, err)
	}
	if calls != before+1 {
		t.Errorf("expected one API call for the fallback, got %d", calls-before)
	}
}

func TestCheckKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("appid") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"name":"São Paulo"}`))
	})
	if err := c.CheckKey(context.Background()); err != nil {
		t.Errorf("CheckKey: %v", err)
	}

	c.apiKey = "wrong"
	if err := c.CheckKey(context.Background()); err == nil {
		t.Error("expected CheckKey to fail with a rejected key")
	}
}

func TestLiveForecast(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	key := os.Getenv("WEATHER_API_KEY")
	if key == "" {
		t.Skip("WEATHER_API_KEY not set")
	}

	c := NewClient(key, 0, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	days, err := c.Forecast(ctx, -23.5505, -46.6333, 5)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	for _, d := range days {
		t.Logf("  %s: %s uvi=%.1f clouds=%.0f%% pop=%.0f%%", d.Date, d.WeatherMain, d.UVI, d.Clouds, d.Pop)
	}
}
