// Package geo resolves city names to coordinates and turns the great-circle
// distance between two cities into price and duration estimates.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// EarthRadiusKM is the mean Earth radius used by Haversine.
const EarthRadiusKM = 6371.0

// ErrCityNotFound is returned when no geocoder knows the city.
var ErrCityNotFound = errors.New("city not found")

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder resolves a free-form city name.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (Point, error)
}

// CityError names the city that could not be resolved.
type CityError struct{ City string }

func (e *CityError) Error() string { return "city not found: " + e.City }

func (e *CityError) Unwrap() error { return ErrCityNotFound }

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// normalize folds a city name into a lookup key.
func normalize(city string) string {
	return strings.Join(strings.Fields(strings.ToLower(city)), " ")
}

// Chain tries each geocoder in order and returns the first hit.  Only
// ErrCityNotFound moves on to the next one; any other error stops the chain.
type Chain []Geocoder

func (c Chain) Geocode(ctx context.Context, city string) (Point, error) {
	for _, g := range c {
		p, err := g.Geocode(ctx, city)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrCityNotFound) {
			return Point{}, fmt.Errorf("geocode %q: %w", city, err)
		}
	}
	return Point{}, &CityError{City: city}
}
