package geo

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadRegionsFile builds a RegionIndex from a JSON file mapping region names
// to [lat, lon] vertex lists:
//
//	{"bay_area": [[37.0, -123.0], [38.5, -123.0], [38.5, -121.5], [37.0, -121.5]]}
func LoadRegionsFile(path string) (*RegionIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions file: %w", err)
	}

	var doc map[string][][2]float64
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse regions file: %w", err)
	}

	index := NewRegionIndex()
	for name, vertices := range doc {
		points := make([]Point, 0, len(vertices))
		for _, v := range vertices {
			points = append(points, Point{Lat: v[0], Lon: v[1]})
		}
		if err := index.AddPolygon(name, points); err != nil {
			return nil, err
		}
	}
	return index, nil
}
