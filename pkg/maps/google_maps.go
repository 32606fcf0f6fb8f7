package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

type GoogleMapsProvider struct {
	client *maps.Client
	region string
}

func NewGoogleMapsProvider(apiKey, region string) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{
		client: client,
		region: region,
	}, nil
}

// Estimate asks the distance matrix for a single origin/destination pair.
func (g *GoogleMapsProvider) Estimate(ctx context.Context, from, to string) (*RouteEstimate, error) {
	req := &maps.DistanceMatrixRequest{
		Origins:      []string{from},
		Destinations: []string{to},
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsMetric,
		Language:     "en",
	}

	resp, err := g.client.DistanceMatrix(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("distance matrix request failed: %w", err)
	}

	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return nil, ErrNoRoute
	}
	element := resp.Rows[0].Elements[0]
	if element.Status != "OK" {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, element.Status)
	}

	summary := from + " to " + to
	if len(resp.OriginAddresses) > 0 && len(resp.DestinationAddresses) > 0 {
		summary = resp.OriginAddresses[0] + " to " + resp.DestinationAddresses[0]
	}

	return &RouteEstimate{
		DistanceKm:  float64(element.Distance.Meters) / 1000,
		DurationMin: element.Duration.Minutes(),
		Summary:     summary,
	}, nil
}

// Geocode checks that a free-text place resolves within the configured region.
func (g *GoogleMapsProvider) Geocode(ctx context.Context, address string) (string, error) {
	resp, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  g.region,
	})
	if err != nil {
		return "", fmt.Errorf("geocoding failed: %w", err)
	}
	if len(resp) == 0 {
		return "", ErrNoRoute
	}
	return resp[0].FormattedAddress, nil
}
