package matcher

import (
	"math"

	"studybuddy-matcher/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// regionCentroids maps every region to the fixed point used for distance estimation.
var regionCentroids = map[models.Region]Coordinate{
	models.RegionGreaterAccra: {Lat: 5.6037, Lon: -0.1870},
	models.RegionAshanti:      {Lat: 6.6667, Lon: -1.6167},
	models.RegionWestern:      {Lat: 5.5000, Lon: -2.0000},
	models.RegionCentral:      {Lat: 5.1000, Lon: -1.2000},
	models.RegionEastern:      {Lat: 6.2000, Lon: -0.2000},
	models.RegionVolta:        {Lat: 6.6000, Lon: 0.4500},
	models.RegionNorthern:     {Lat: 9.4000, Lon: -0.8500},
}

// Centroid resolves a region to its centroid, falling back to the default region.
func Centroid(region models.Region) Coordinate {
	if c, ok := regionCentroids[region]; ok {
		return c
	}
	return regionCentroids[models.DefaultRegion]
}

// RegionDistance returns the great-circle distance in km between two region centroids.
func RegionDistance(a, b models.Region) float64 {
	return Haversine(Centroid(a), Centroid(b))
}

// Haversine returns the great-circle distance in km between two coordinates.
func Haversine(p1, p2 Coordinate) float64 {
	dLat := toRadians(p2.Lat - p1.Lat)
	dLon := toRadians(p2.Lon - p1.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(p1.Lat))*math.Cos(toRadians(p2.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
