package maps

import (
	"context"
	"errors"
)

var ErrNoRoute = errors.New("maps: no route between the given places")

// RouteEstimator resolves free-text places into a driving distance and time.
type RouteEstimator interface {
	Estimate(ctx context.Context, from, to string) (*RouteEstimate, error)
}

type RouteEstimate struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
	Summary     string  `json:"summary,omitempty"`
}
