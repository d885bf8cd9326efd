package geo

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"
)

// GoogleGeocoder resolves cities through the Google Maps geocoding API.
type GoogleGeocoder struct {
	client *maps.Client
}

func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}
	return &GoogleGeocoder{client: client}, nil
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, city string) (Point, error) {
	resp, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: city})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return Point{}, ErrCityNotFound
		}
		return Point{}, fmt.Errorf("geocoding failed: %w", err)
	}
	if len(resp) == 0 {
		return Point{}, ErrCityNotFound
	}
	loc := resp[0].Geometry.Location
	return Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
