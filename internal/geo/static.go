package geo

import "context"

// StaticGeocoder answers from a fixed city table.
type StaticGeocoder map[string]Point

// DefaultCities covers the cities the service is usually run with; the table
// is consulted before any remote lookup.
var DefaultCities = StaticGeocoder{
	"tehran":     {35.6892, 51.3890},
	"isfahan":    {32.6546, 51.6680},
	"shiraz":     {29.5918, 52.5837},
	"tabriz":     {38.0800, 46.2919},
	"mashhad":    {36.2605, 59.6168},
	"karaj":      {35.8400, 50.9391},
	"qom":        {34.6399, 50.8759},
	"rasht":      {37.2808, 49.5832},
	"paris":      {48.8566, 2.3522},
	"lyon":       {45.7640, 4.8357},
	"marseille":  {43.2965, 5.3698},
	"berlin":     {52.5200, 13.4050},
	"munich":     {48.1351, 11.5820},
	"hamburg":    {53.5511, 9.9937},
	"london":     {51.5074, -0.1278},
	"manchester": {53.4808, -2.2426},
	"madrid":     {40.4168, -3.7038},
	"barcelona":  {41.3874, 2.1686},
	"rome":       {41.9028, 12.4964},
	"milan":      {45.4642, 9.1900},
	"amsterdam":  {52.3676, 4.9041},
	"brussels":   {50.8503, 4.3517},
	"vienna":     {48.2082, 16.3738},
	"istanbul":   {41.0082, 28.9784},
	"ankara":     {39.9334, 32.8597},
	"new york":   {40.7128, -74.0060},
	"boston":     {42.3601, -71.0589},
	"chicago":    {41.8781, -87.6298},
	"toronto":    {43.6532, -79.3832},
	"montreal":   {45.5019, -73.5674},
}

func (s StaticGeocoder) Geocode(_ context.Context, city string) (Point, error) {
	if p, ok := s[normalize(city)]; ok {
		return p, nil
	}
	return Point{}, ErrCityNotFound
}
