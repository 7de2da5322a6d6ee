// Package location provides position sampling and destination distance
// computation for the travel phase of a mission.
package location

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/zeroeau/washpro-technician/internal/client/models"
)

const earthRadiusKm = 6371

// Distance returns the great-circle (haversine) distance in kilometers
// between two coordinates.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// FormatDistance renders a distance in kilometers the way the app displays
// it: meters below one kilometer, kilometers with one decimal otherwise.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%.0f m", km*1000)
	}
	return fmt.Sprintf("%.1f km", km)
}

// Sampler delivers live position samples. Watch returns a channel that emits
// until ctx is cancelled, then closes; nothing is delivered after teardown.
// A denied location permission surfaces as common.ErrPermissionDenied.
type Sampler interface {
	Watch(ctx context.Context) (<-chan models.Location, error)
}

// StaticSampler emits a fixed position at a fixed interval. It stands in for
// a GPS on platforms without one and keeps the travel loop exercisable.
type StaticSampler struct {
	Position models.Location
	Interval time.Duration
}

func (s *StaticSampler) Watch(ctx context.Context) (<-chan models.Location, error) {
	interval := s.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	out := make(chan models.Location)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case out <- s.Position:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
