// Package geo holds the small slice of vector-GIS that least-cost path
// routing needs: GeoJSON points, polygons, and lines, plus point-in-polygon
// region assignment.
package geo

import (
	"encoding/json"
	"fmt"
	"os"
)

// Point is a position in the dataset's CRS; X is easting/longitude, Y is
// northing/latitude.
type Point struct {
	X float64
	Y float64
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return err
	}
	if len(coords) < 2 {
		return fmt.Errorf("geo: position needs at least 2 coordinates, got %d", len(coords))
	}
	p.X, p.Y = coords[0], coords[1]
	return nil
}

// Polygon is a list of rings; the first ring is the exterior, the rest are
// holes.
type Polygon [][]Point

// LineString is an ordered run of positions.
type LineString []Point

// Geometry is one GeoJSON geometry.  Exactly one of the pointers is set,
// according to Type.
type Geometry struct {
	Type       string
	Point      *Point
	LineString LineString
	Polygon    Polygon
	// MultiPolygon is decoded as its member polygons.
	Polygons []Polygon
}

func (g Geometry) MarshalJSON() ([]byte, error) {
	var coords interface{}
	switch g.Type {
	case "Point":
		coords = g.Point
	case "LineString":
		coords = g.LineString
	case "Polygon":
		coords = g.Polygon
	case "MultiPolygon":
		coords = g.Polygons
	default:
		return nil, fmt.Errorf("geo: unsupported geometry type %q", g.Type)
	}
	return json.Marshal(map[string]interface{}{
		"type":        g.Type,
		"coordinates": coords,
	})
}

func (g *Geometry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Type = raw.Type
	switch raw.Type {
	case "Point":
		g.Point = new(Point)
		return json.Unmarshal(raw.Coordinates, g.Point)
	case "LineString":
		return json.Unmarshal(raw.Coordinates, &g.LineString)
	case "Polygon":
		return json.Unmarshal(raw.Coordinates, &g.Polygon)
	case "MultiPolygon":
		return json.Unmarshal(raw.Coordinates, &g.Polygons)
	default:
		return fmt.Errorf("geo: unsupported geometry type %q", raw.Type)
	}
}

// A Feature pairs a geometry with its properties.
type Feature struct {
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

func (f Feature) MarshalJSON() ([]byte, error) {
	props := f.Properties
	if props == nil {
		props = map[string]interface{}{}
	}
	return json.Marshal(map[string]interface{}{
		"type":       "Feature",
		"geometry":   f.Geometry,
		"properties": props,
	})
}

type FeatureCollection struct {
	Features []Feature `json:"features"`
}

func (fc FeatureCollection) MarshalJSON() ([]byte, error) {
	features := fc.Features
	if features == nil {
		features = []Feature{}
	}
	return json.Marshal(map[string]interface{}{
		"type":     "FeatureCollection",
		"features": features,
	})
}

// LoadFeatures reads a GeoJSON FeatureCollection from filename.
func LoadFeatures(filename string) ([]Feature, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("geo.LoadFeatures: %w", err)
	}
	var fc FeatureCollection
	if err := json.Unmarshal(content, &fc); err != nil {
		return nil, fmt.Errorf("geo.LoadFeatures: %q: %w", filename, err)
	}
	return fc.Features, nil
}

// SaveFeatures writes features as a GeoJSON FeatureCollection.
func SaveFeatures(filename string, features []Feature) error {
	content, err := json.MarshalIndent(FeatureCollection{Features: features}, "", "  ")
	if err != nil {
		return fmt.Errorf("geo.SaveFeatures: %w", err)
	}
	if err := os.WriteFile(filename, append(content, '\n'), 0o666); err != nil {
		return fmt.Errorf("geo.SaveFeatures: %w", err)
	}
	return nil
}
