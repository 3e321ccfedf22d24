package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
)

type coordinates struct {
	name     string
	lat, lon float64
}

// defaultCoordinates resolve known locations without calling the API.
var defaultCoordinates = []coordinates{
	{"São Paulo", -23.5505, -46.6333},
	{"Cachoeiro de Itapemirim", -20.8477, -41.1150},
	{"Cachoeiro de Itapemirim - ES", -20.8477, -41.1150},
	{"Aeroporto, Cachoeiro de Itapemirim - ES", -20.8477, -41.1150},
}

// knownLocation returns default coordinates for a location containing one
// of the known names.
func knownLocation(location string, foldCase bool) (float64, float64, bool) {
	for _, c := range defaultCoordinates {
		name, loc := c.name, location
		if foldCase {
			name, loc = strings.ToLower(name), strings.ToLower(loc)
		}
		if strings.Contains(loc, name) {
			return c.lat, c.lon, true
		}
	}
	return 0, 0, false
}

type geoResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
}

// Geocode resolves a free-form location to coordinates. Known locations are
// answered locally; when the API fails they are matched again ignoring case.
func (c *Client) Geocode(ctx context.Context, location string) (float64, float64, error) {
	if lat, lon, ok := knownLocation(location, false); ok {
		return lat, lon, nil
	}

	lat, lon, err := c.geocode(ctx, location)
	if err == nil {
		return lat, lon, nil
	}
	if lat, lon, ok := knownLocation(location, true); ok {
		log.Printf("weather: geocode %q: %v; using default coordinates", location, err)
		return lat, lon, nil
	}
	return 0, 0, err
}

func (c *Client) geocode(ctx context.Context, location string) (float64, float64, error) {
	if strings.TrimSpace(location) == "" {
		return 0, 0, fmt.Errorf("geocode: %w: empty location", ErrLocationNotFound)
	}

	params := url.Values{}
	params.Set("q", location)
	params.Set("limit", "1")
	body, err := c.get(ctx, "geo/direct", c.geoURL+"/direct", params)
	if err != nil {
		return 0, 0, err
	}

	var results []geoResult
	if err := json.Unmarshal(body, &results); err != nil {
		return 0, 0, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("geocode %q: %w", location, ErrLocationNotFound)
	}
	c.archive(ctx, "geo/direct", location, body)
	return results[0].Lat, results[0].Lon, nil
}
