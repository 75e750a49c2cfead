package network

import "math"

const (
	earthRadiusMeters = 6370986.884258304
	pi180             = math.Pi / 180.0
)

// GreatCircleDistance returns the haversine distance in meters between two
// lon/lat positions.
func GreatCircleDistance(p, q Node) float64 {
	lat1 := p.Y * pi180
	lat2 := q.Y * pi180
	diffLat := lat2 - lat1
	diffLon := (q.X - p.X) * pi180
	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(diffLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// projector maps lon/lat to local planar meters around a reference latitude.
type projector struct {
	cosLat float64
}

func newProjector(refLat float64) projector {
	return projector{cosLat: math.Cos(refLat * pi180)}
}

func (p projector) project(n Node) (float64, float64) {
	return earthRadiusMeters * n.X * pi180 * p.cosLat, earthRadiusMeters * n.Y * pi180
}
