package geo

import (
	"context"
	"math"
)

// Estimator turns a city pair into a suggested price and a travel time.
type Estimator struct {
	geo       Geocoder
	baseFare  float64
	perKM     float64
	speedKMH  float64
	bufferMin int
}

// NewEstimator applies the stock model (2.00 + 0.10/km, 80 km/h, 15 min)
// wherever a parameter is not positive.
func NewEstimator(g Geocoder, baseFare, perKM, speedKMH float64, bufferMin int) *Estimator {
	if baseFare < 0 {
		baseFare = 2.0
	}
	if perKM <= 0 {
		perKM = 0.10
	}
	if speedKMH <= 0 {
		speedKMH = 80
	}
	if bufferMin < 0 {
		bufferMin = 15
	}
	return &Estimator{geo: g, baseFare: baseFare, perKM: perKM, speedKMH: speedKMH, bufferMin: bufferMin}
}

type PriceEstimate struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	DistanceKM float64 `json:"distance_km"`
	Price      float64 `json:"price"`
}

type TimeEstimate struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	DistanceKM float64 `json:"distance_km"`
	Minutes    int     `json:"minutes"`
}

// Distance geocodes both cities and returns the great-circle distance in km.
func (e *Estimator) Distance(ctx context.Context, from, to string) (float64, error) {
	a, err := e.geo.Geocode(ctx, from)
	if err != nil {
		return 0, err
	}
	b, err := e.geo.Geocode(ctx, to)
	if err != nil {
		return 0, err
	}
	return Haversine(a, b), nil
}

func (e *Estimator) Price(ctx context.Context, from, to string) (PriceEstimate, error) {
	km, err := e.Distance(ctx, from, to)
	if err != nil {
		return PriceEstimate{}, err
	}
	return PriceEstimate{From: from, To: to, DistanceKM: round2(km), Price: round2(e.baseFare + e.perKM*km)}, nil
}

func (e *Estimator) Time(ctx context.Context, from, to string) (TimeEstimate, error) {
	km, err := e.Distance(ctx, from, to)
	if err != nil {
		return TimeEstimate{}, err
	}
	minutes := int(math.Round(km/e.speedKMH*60)) + e.bufferMin
	return TimeEstimate{From: from, To: to, DistanceKM: round2(km), Minutes: minutes}, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
