package transit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"maroonline/internal/modules/matching"
)

const (
	DefaultCTABaseURL = "https://lapi.transitchicago.com/api/1.0"
	ctaTimeLayout     = "2006-01-02T15:04:05"
)

// CTAClient estimates ride time from the Train Tracker arrivals feed. It
// reads predictions at both stations and pairs them by run number.
type CTAClient struct {
	key     string
	baseURL string
	route   string
	loc     *time.Location
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

type CTAConfig struct {
	Key               string
	BaseURL           string
	Route             string // e.g. "Red"; empty accepts every line
	Location          *time.Location
	RequestsPerSecond float64
	Timeout           time.Duration
}

func NewCTAClient(cfg CTAConfig, logger *slog.Logger) *CTAClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCTABaseURL
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CTAClient{
		key:     cfg.Key,
		baseURL: cfg.BaseURL,
		route:   cfg.Route,
		loc:     cfg.Location,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logger,
	}
}

type ctaResponse struct {
	CTATT struct {
		ErrCd string   `json:"errCd"`
		ErrNm *string  `json:"errNm"`
		ETA   []ctaETA `json:"eta"`
	} `json:"ctatt"`
}

type ctaETA struct {
	StationID string `json:"staId"`
	Run       string `json:"rn"`
	Route     string `json:"rt"`
	Direction string `json:"trDr"`
	Predicted string `json:"prdt"`
	Arrival   string `json:"arrT"`
}

// Fastest returns the shortest origin→destination ride among runs that reach
// the origin at or after after.
func (c *CTAClient) Fastest(ctx context.Context, origin, destination matching.Station, after time.Time) (Estimate, error) {
	from, err := c.arrivals(ctx, origin.ID)
	if err != nil {
		return Estimate{}, err
	}
	to, err := c.arrivals(ctx, destination.ID)
	if err != nil {
		return Estimate{}, err
	}

	best := Estimate{Source: "cta"}
	for run, dep := range from {
		if dep.Before(after) {
			continue
		}
		arr, ok := to[run]
		if !ok {
			continue
		}
		secs := int(arr.Sub(dep).Seconds())
		if secs <= 0 {
			// Same run heading the other way.
			continue
		}
		if best.Seconds == 0 || secs < best.Seconds || (secs == best.Seconds && dep.Before(best.Depart)) {
			best.Seconds = secs
			best.Depart = dep
		}
	}
	if best.Seconds == 0 {
		return Estimate{}, fmt.Errorf("%w: %s to %s", ErrNoService, origin.Name, destination.Name)
	}
	return best, nil
}

// arrivals returns the predicted arrival of each run at a station.
func (c *CTAClient) arrivals(ctx context.Context, mapID string) (map[string]time.Time, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("key", c.key)
	q.Set("mapid", mapID)
	q.Set("outputType", "JSON")
	if c.route != "" {
		q.Set("rt", c.route)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ttarrivals.aspx?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cta arrivals: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cta arrivals: unexpected status %s", resp.Status)
	}

	var body ctaResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("cta arrivals: decode: %w", err)
	}
	if body.CTATT.ErrCd != "" && body.CTATT.ErrCd != "0" {
		msg := ""
		if body.CTATT.ErrNm != nil {
			msg = *body.CTATT.ErrNm
		}
		return nil, fmt.Errorf("cta arrivals: error %s: %s", body.CTATT.ErrCd, msg)
	}

	out := make(map[string]time.Time, len(body.CTATT.ETA))
	for _, e := range body.CTATT.ETA {
		if e.StationID != "" && e.StationID != mapID {
			continue
		}
		t, err := time.ParseInLocation(ctaTimeLayout, e.Arrival, c.loc)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping unparsable cta prediction", "run", e.Run, "arrT", e.Arrival)
			continue
		}
		if prev, ok := out[e.Run]; !ok || t.Before(prev) {
			out[e.Run] = t
		}
	}
	return out, nil
}
