// README: Fastest travel time between two stations.
package transit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maroonline/internal/config"
	"maroonline/internal/modules/matching"
)

var ErrNoService = errors.New("no upcoming train")

// Estimate is the quickest ride found between two stations.
type Estimate struct {
	Seconds int       `json:"seconds"`
	Depart  time.Time `json:"depart,omitempty"`
	Source  string    `json:"source"`
}

type Estimator interface {
	Fastest(ctx context.Context, origin, destination matching.Station, after time.Time) (Estimate, error)
}

// Chain asks each estimator in turn and returns the first success.
type Chain struct {
	estimators []Estimator
	logger     *slog.Logger
}

func NewChain(logger *slog.Logger, estimators ...Estimator) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{estimators: estimators, logger: logger}
}

func (c *Chain) Fastest(ctx context.Context, origin, destination matching.Station, after time.Time) (Estimate, error) {
	var errs []error
	for _, e := range c.estimators {
		est, err := e.Fastest(ctx, origin, destination, after)
		if err == nil && est.Seconds > 0 {
			return est, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: non-positive estimate", ErrNoService)
		}
		c.logger.DebugContext(ctx, "estimator failed", "origin", origin.Name, "destination", destination.Name, "error", err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return Estimate{}, ErrNoService
	}
	return Estimate{}, fmt.Errorf("%w: %w", ErrNoService, errors.Join(errs...))
}

type WindowMode string

const (
	DepartBy WindowMode = "depart_by"
	ArriveBy WindowMode = "arrive_by"
)

// PlanWindow turns a rider's target time into a travel window of the given
// width: depart-by opens at t, arrive-by closes at t.
func PlanWindow(mode WindowMode, t time.Time, width time.Duration) (matching.TimeWindow, error) {
	if width <= 0 {
		return matching.TimeWindow{}, fmt.Errorf("%w: width must be positive", matching.ErrInvalidWindow)
	}
	switch mode {
	case DepartBy, "":
		return matching.TimeWindow{Earliest: t, Latest: t.Add(width)}, nil
	case ArriveBy:
		return matching.TimeWindow{Earliest: t.Add(-width), Latest: t}, nil
	default:
		return matching.TimeWindow{}, fmt.Errorf("%w: unknown mode %q", matching.ErrInvalidWindow, mode)
	}
}

// NewConfiguredChain chains the CTA feed ahead of Google Directions. Either is
// skipped when its key is unset; an empty chain always reports ErrNoService.
func NewConfiguredChain(cfg config.TransitConfig, loc *time.Location, logger *slog.Logger) (*Chain, error) {
	var estimators []Estimator
	if cfg.CTAKey != "" {
		estimators = append(estimators, NewCTAClient(CTAConfig{
			Key:               cfg.CTAKey,
			BaseURL:           cfg.CTABaseURL,
			Route:             cfg.CTARoute,
			Location:          loc,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, logger))
	}
	if cfg.MapsKey != "" {
		m, err := NewMapsEstimator(cfg.MapsKey, cfg.MapsSuffix)
		if err != nil {
			return nil, err
		}
		estimators = append(estimators, m)
	}
	return NewChain(logger, estimators...), nil
}
