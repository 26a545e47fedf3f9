// Package weather turns an hourly forecast into a sky visibility chance and
// provides forecast providers and caching.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the public open-meteo forecast endpoint.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Forecast fetch errors.
var (
	ErrUpstreamStatus = errors.New("unexpected forecast response status")
	ErrMissingSeries  = errors.New("forecast response is missing hourly series")
)

const maxResponseBytes = 4 << 20

// OpenMeteoClient fetches hourly forecasts from open-meteo.
type OpenMeteoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOpenMeteoClient creates a client. An empty baseURL selects the public
// endpoint; a nil httpClient gets a traced default transport.
func NewOpenMeteoClient(baseURL string, httpClient *http.Client) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &OpenMeteoClient{baseURL: baseURL, httpClient: httpClient}
}

type openMeteoResponse struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Hourly           struct {
		Time          []string   `json:"time"`
		CloudCover    []float64  `json:"cloudcover"`
		Precipitation []float64  `json:"precipitation"`
		WindSpeed     []*float64 `json:"windspeed_10m"`
	} `json:"hourly"`
}

// Forecast fetches the hourly forecast and trims it to start at the hour
// containing t.
func (c *OpenMeteoClient) Forecast(ctx context.Context, lat, lon float64, t time.Time) (*Forecast, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("hourly", "cloudcover,precipitation,windspeed_10m")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var body openMeteoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode forecast: %w", err)
	}
	if len(body.Hourly.CloudCover) == 0 || len(body.Hourly.Precipitation) == 0 {
		return nil, ErrMissingSeries
	}

	start := startIndex(body.Hourly.Time, body.UTCOffsetSeconds, t)

	f := &Forecast{
		CloudCover:    tail(body.Hourly.CloudCover, start),
		Precipitation: tail(body.Hourly.Precipitation, start),
	}
	if len(body.Hourly.WindSpeed) > start {
		f.WindSpeed = make([]float64, 0, len(body.Hourly.WindSpeed)-start)
		for _, w := range body.Hourly.WindSpeed[start:] {
			if w == nil {
				f.WindSpeed = append(f.WindSpeed, 0)
				continue
			}
			f.WindSpeed = append(f.WindSpeed, *w)
		}
	}
	return f, nil
}

// startIndex finds the first hourly slot at or after the hour containing t.
// Timestamps are local to the forecast location. Unparseable or missing
// timestamps start at the first slot.
func startIndex(times []string, offsetSeconds int, t time.Time) int {
	if len(times) == 0 || t.IsZero() {
		return 0
	}
	loc := time.FixedZone("forecast", offsetSeconds)
	target := t.Truncate(time.Hour)
	for i, s := range times {
		ts, err := time.ParseInLocation("2006-01-02T15:04", s, loc)
		if err != nil {
			return 0
		}
		if !ts.Before(target) {
			return i
		}
	}
	return 0
}

func tail(s []float64, start int) []float64 {
	if start >= len(s) {
		return nil
	}
	out := make([]float64, len(s)-start)
	copy(out, s[start:])
	return out
}
