// Package geo provides an in-process geometry collaborator for region-based
// conditions.
//
// Regions are named polygons registered at startup (typically from the
// config file). Containment uses even-odd ray casting over lat/lon treated
// as planar coordinates, which is adequate for the city- and state-scale
// operating areas fleet policies describe. Polygons crossing the antimeridian
// are not supported.
package geo

import (
	"fmt"
)

// Point is one polygon vertex.
type Point struct {
	Lat float64
	Lon float64
}

// RegionIndex holds named polygons and answers containment queries.
// Populate before evaluation starts; lookups are read-only afterwards.
type RegionIndex struct {
	regions map[string][]Point
}

// NewRegionIndex creates an empty index.
func NewRegionIndex() *RegionIndex {
	return &RegionIndex{regions: make(map[string][]Point)}
}

// AddPolygon registers a region. A polygon needs at least three vertices;
// the closing edge back to the first vertex is implicit.
func (r *RegionIndex) AddPolygon(name string, vertices []Point) error {
	if name == "" {
		return fmt.Errorf("region name required")
	}
	if len(vertices) < 3 {
		return fmt.Errorf("region %q: polygon requires at least 3 vertices, got %d", name, len(vertices))
	}
	r.regions[name] = vertices
	return nil
}

// Contains reports whether the point lies inside the named region.
// Unknown regions are an error, not a non-match: a rule referencing a region
// that was never registered is a configuration problem.
func (r *RegionIndex) Contains(region string, lat, lon float64) (bool, error) {
	polygon, ok := r.regions[region]
	if !ok {
		return false, fmt.Errorf("unknown region %q", region)
	}
	return pointInPolygon(lat, lon, polygon), nil
}

// pointInPolygon implements even-odd ray casting.
// A point on an edge may land on either side; fleet regions are drawn with
// margins, so boundary behavior is not load-bearing.
func pointInPolygon(lat, lon float64, polygon []Point) bool {
	inside := false
	n := len(polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := polygon[i], polygon[j]
		if (pi.Lat > lat) != (pj.Lat > lat) &&
			lon < (pj.Lon-pi.Lon)*(lat-pi.Lat)/(pj.Lat-pi.Lat)+pi.Lon {
			inside = !inside
		}
	}
	return inside
}
