// Package delivery computes great-circle distances and the distance based delivery fee.
package delivery

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinates is returned for non-numeric or out of range input.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Coordinates is a point in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate reports whether c is a finite point on the globe.
func (c Coordinates) Validate() error {
	if !finite(c.Latitude) || !finite(c.Longitude) {
		return fmt.Errorf("%w: non-numeric value (%v, %v)", ErrInvalidCoordinates, c.Latitude, c.Longitude)
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: (%v, %v) out of range", ErrInvalidCoordinates, c.Latitude, c.Longitude)
	}
	return nil
}

// Distance returns the haversine distance between a and b in kilometers.
func Distance(a, b Coordinates) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Latitude))*math.Cos(radians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c, nil
}

// FeeSchedule is a flat fee up to BaseDistanceKm plus PerKmFee for every started
// kilometer beyond it.
type FeeSchedule struct {
	BaseFee        decimal.Decimal
	BaseDistanceKm float64
	PerKmFee       decimal.Decimal
}

// DefaultSchedule is ₱30 up to 5 km, then ₱5 per additional started km.
var DefaultSchedule = FeeSchedule{
	BaseFee:        decimal.NewFromInt(30),
	BaseDistanceKm: 5,
	PerKmFee:       decimal.NewFromInt(5),
}

// Fee returns the delivery fee for a distance in kilometers, rounded to 2 decimals.
func (s FeeSchedule) Fee(distanceKm float64) (decimal.Decimal, error) {
	if !finite(distanceKm) || distanceKm < 0 {
		return decimal.Zero, fmt.Errorf("%w: distance %v", ErrInvalidCoordinates, distanceKm)
	}
	if distanceKm <= s.BaseDistanceKm {
		return s.BaseFee.Round(2), nil
	}

	extraKm := math.Ceil(distanceKm - s.BaseDistanceKm)
	return s.BaseFee.Add(s.PerKmFee.Mul(decimal.NewFromFloat(extraKm))).Round(2), nil
}

// Quote bundles the distance and fee for one route.
type Quote struct {
	DistanceKm float64
	Fee        decimal.Decimal
}

// QuoteRoute measures from pickup to dropoff and prices the trip.
func (s FeeSchedule) QuoteRoute(pickup, dropoff Coordinates) (Quote, error) {
	d, err := Distance(pickup, dropoff)
	if err != nil {
		return Quote{}, err
	}
	fee, err := s.Fee(d)
	if err != nil {
		return Quote{}, err
	}
	return Quote{DistanceKm: d, Fee: fee}, nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
