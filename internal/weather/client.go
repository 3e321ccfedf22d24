// Package weather fetches daily forecasts and geocodes locations with the
// OpenWeather APIs.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lox/solarforecast/internal/httputil"
	"github.com/lox/solarforecast/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
	DefaultGeoURL  = "http://api.openweathermap.org/geo/1.0"
	DefaultTimeout = 10 * time.Second

	// Provider names archived payloads from this client.
	Provider = "openweather"
)

var (
	ErrNoAPIKey         = errors.New("weather api key not configured")
	ErrLocationNotFound = errors.New("location not found")
)

type sourceKey struct{}

// WithSource tags ctx with the energy source a request is made for, so
// archived payloads can be traced back to it.
func WithSource(ctx context.Context, sourceID int64) context.Context {
	return context.WithValue(ctx, sourceKey{}, sourceID)
}

// SourceFrom returns the source id set by WithSource, or 0.
func SourceFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(sourceKey{}).(int64)
	return id
}

// PayloadRecorder archives raw provider responses. *store.Store implements it.
type PayloadRecorder interface {
	StoreRawPayload(provider, endpoint string, sourceID int64, location string, payload []byte) (int64, error)
}

// Client talks to the OpenWeather geocoding and One Call APIs. Failed calls
// are not retried.
type Client struct {
	apiKey   string
	baseURL  string
	geoURL   string
	client   *http.Client
	loc      *time.Location
	payloads PayloadRecorder
}

// NewClient creates a client. Forecast dates are expressed in loc.
func NewClient(apiKey string, timeout time.Duration, loc *time.Location) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		geoURL:  DefaultGeoURL,
		client:  httputil.NewClient(timeout),
		loc:     loc,
	}
}

// SetPayloadRecorder archives every successful response through r.
func (c *Client) SetPayloadRecorder(r PayloadRecorder) {
	c.payloads = r
}

// get performs one GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, endpoint, rawURL string, params url.Values) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	params.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "SolarForecast/1.0")

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.WeatherAPILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	metrics.WeatherAPICallsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", endpoint, resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func (c *Client) archive(ctx context.Context, endpoint, location string, body []byte) {
	if c.payloads == nil {
		return
	}
	if _, err := c.payloads.StoreRawPayload(Provider, endpoint, SourceFrom(ctx), location, body); err != nil {
		log.Printf("weather: store raw payload: %v", err)
	}
}

// CheckKey verifies the API key with a current-weather request.
func (c *Client) CheckKey(ctx context.Context) error {
	lat, lon := defaultCoordinates[0].lat, defaultCoordinates[0].lon
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	params.Set("units", "metric")
	_, err := c.get(ctx, "weather", c.baseURL+"/weather", params)
	return err
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
