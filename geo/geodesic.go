package geo

import (
	"fmt"
	"github.com/paulmach/orb"
	"github.com/tidwall/geodesic"
	"math"
)

// GeometryError is returned when a point can't be used in a geodesic computation. The road this point belongs to
// should be skipped by the caller.
type GeometryError struct {
	Point  orb.Point
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("invalid coordinate (lat=%v, lon=%v): %s", e.Point.Lat(), e.Point.Lon(), e.Reason)
}

func validate(p orb.Point) error {
	lat, lon := p.Lat(), p.Lon()
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return &GeometryError{Point: p, Reason: "coordinate is not a finite number"}
	}
	if lat < -90 || lat > 90 {
		return &GeometryError{Point: p, Reason: "latitude out of range [-90, 90]"}
	}
	return nil
}

// inverse solves the inverse geodesic problem on the WGS84 ellipsoid and returns the distance in meters and the
// initial azimuth at p1 in degrees within (-180, 180].
func inverse(p1 orb.Point, p2 orb.Point) (float64, float64, error) {
	if err := validate(p1); err != nil {
		return 0, 0, err
	}
	if err := validate(p2); err != nil {
		return 0, 0, err
	}

	var distance, azimuth float64
	geodesic.WGS84.Inverse(p1.Lat(), p1.Lon(), p2.Lat(), p2.Lon(), &distance, &azimuth, nil)
	return distance, azimuth, nil
}

// Bearing returns the initial compass bearing from p1 towards p2 in degrees within [0, 360).
func Bearing(p1 orb.Point, p2 orb.Point) (float64, error) {
	_, azimuth, err := inverse(p1, p2)
	if err != nil {
		return 0, err
	}
	return NormalizeHeading(azimuth), nil
}

// Distance returns the length of the shortest path between p1 and p2 on the WGS84 ellipsoid in meters.
func Distance(p1 orb.Point, p2 orb.Point) (float64, error) {
	distance, _, err := inverse(p1, p2)
	return distance, err
}

// NormalizeHeading maps any angle in degrees onto [0, 360).
func NormalizeHeading(degrees float64) float64 {
	heading := math.Mod(degrees, 360)
	if heading < 0 {
		heading += 360
	}
	// Tiny negative inputs like -1e-15 end up as 360 after the addition above.
	if heading >= 360 {
		heading = 0
	}
	return heading
}
