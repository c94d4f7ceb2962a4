package metrics

import (
	"context"
	"errors"
	"strings"
	"time"
	"untangle/internal/core/ports"
)

// ExposureCalculator counts a module's externally reachable endpoints:
// units carrying an endpoint marker plus operations from OpenAPI documents.
type ExposureCalculator struct {
	Markers MarkerSet
	Timeout time.Duration
}

func NewExposureCalculator(markers []string, timeout time.Duration) ExposureCalculator {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	return ExposureCalculator{Markers: NewMarkerSet(markers), Timeout: timeout}
}

func (c ExposureCalculator) Kind() Kind { return KindExposure }

func (c ExposureCalculator) Calculate(ctx context.Context, in Input) Result {
	res := Result{Kind: KindExposure, Module: in.Node.Name}
	if in.Source == nil {
		res.Fallback = true
		res.Reason = "no source provider"
		return res
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	// A module with no parseable code can still be exposed through an
	// OpenAPI document, so only a failure of both sources falls back.
	var failures []string
	units, err := in.Source.Units(ctx, in.Node)
	switch {
	case errors.Is(err, ports.ErrNoSourceFiles):
	case err != nil:
		failures = append(failures, err.Error())
	}
	for _, u := range units {
		if c.Markers.HasMarker(u) {
			res.MarkerEndpoints++
		}
	}

	if endpoints, ok := in.Source.(ports.EndpointSource); ok {
		n, err := endpoints.OpenAPIOperations(ctx, in.Node)
		if err != nil {
			failures = append(failures, "openapi: "+err.Error())
		}
		res.OpenAPIEndpoints = n
	} else {
		failures = append(failures, "openapi: not supported by source provider")
	}

	if len(failures) == 2 {
		res.Fallback = true
		res.Reason = strings.Join(failures, "; ")
		return res
	}

	res.Endpoints = res.MarkerEndpoints + res.OpenAPIEndpoints
	res.Score = ExposureScore(res.Endpoints)
	return res
}

// ExposureScore steps endpoint counts: none is 0, 1-5 is 33, 6-15 is 66
// and more is 100.
func ExposureScore(endpoints int) float64 {
	switch {
	case endpoints <= 0:
		return 0
	case endpoints <= 5:
		return 33
	case endpoints <= 15:
		return 66
	default:
		return 100
	}
}
