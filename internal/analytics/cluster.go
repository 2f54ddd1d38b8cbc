package analytics

import "math"

// Point is one district in the employment x payment-speed plane.
type Point struct {
	DistrictID   string
	Employment   float64
	PaymentSpeed float64
}

// Centroid is a fixed cluster reference point.
type Centroid struct {
	Name         string
	Employment   float64
	PaymentSpeed float64
}

// DefaultCentroids are hand-set reference points for high, medium and low
// performing districts. They are placeholder guesses, not fitted statistics;
// whoever owns the real analytical requirements should replace them.
func DefaultCentroids() []Centroid {
	return []Centroid{
		{Name: "high", Employment: 150000, PaymentSpeed: 90},
		{Name: "medium", Employment: 60000, PaymentSpeed: 70},
		{Name: "low", Employment: 15000, PaymentSpeed: 40},
	}
}

// AssignClusters partitions points among the centroids by Euclidean
// distance. Ties go to the earlier centroid. The result maps centroid index
// to the district ids assigned to it; every centroid index is present even
// when its partition is empty.
func AssignClusters(points []Point, centroids []Centroid) map[int][]string {
	clusters := make(map[int][]string, len(centroids))
	for i := range centroids {
		clusters[i] = nil
	}
	if len(centroids) == 0 {
		return clusters
	}

	for _, p := range points {
		best := 0
		bestDist := distance(p, centroids[0])
		for i := 1; i < len(centroids); i++ {
			if d := distance(p, centroids[i]); d < bestDist {
				best = i
				bestDist = d
			}
		}
		clusters[best] = append(clusters[best], p.DistrictID)
	}
	return clusters
}

func distance(p Point, c Centroid) float64 {
	de := p.Employment - c.Employment
	ds := p.PaymentSpeed - c.PaymentSpeed
	return math.Sqrt(de*de + ds*ds)
}
