package geo

import (
	"fmt"
)

// ringContains is an even-odd ray cast; points exactly on an edge may land on
// either side.
func ringContains(ring []Point, pt Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Contains reports whether pt is inside poly, holes excluded.
func (poly Polygon) Contains(pt Point) bool {
	if len(poly) == 0 || !ringContains(poly[0], pt) {
		return false
	}
	for _, hole := range poly[1:] {
		if ringContains(hole, pt) {
			return false
		}
	}
	return true
}

func (g Geometry) contains(pt Point) bool {
	switch g.Type {
	case "Polygon":
		return g.Polygon.Contains(pt)
	case "MultiPolygon":
		for _, poly := range g.Polygons {
			if poly.Contains(pt) {
				return true
			}
		}
	}
	return false
}

// AssignRegions maps every point feature to the region polygon containing it,
// copying the region's idColumn value on to the point's properties.  Points
// outside every region are dropped, as are non-point features, so a mixed
// connections set can be fed straight in.  The returned slice preserves
// input order.
func AssignRegions(features, regions []Feature, idColumn string) ([]Feature, error) {
	for i, region := range regions {
		if _, ok := region.Properties[idColumn]; !ok {
			return nil, fmt.Errorf("geo.AssignRegions: region %d has no %q property",
				i, idColumn)
		}
	}
	var out []Feature
	for _, feat := range features {
		if feat.Geometry.Type != "Point" || feat.Geometry.Point == nil {
			continue
		}
		pt := *feat.Geometry.Point
		for _, region := range regions {
			if region.Geometry.contains(pt) {
				props := make(map[string]interface{}, len(feat.Properties)+1)
				for k, v := range feat.Properties {
					props[k] = v
				}
				props[idColumn] = region.Properties[idColumn]
				out = append(out, Feature{
					Geometry:   feat.Geometry,
					Properties: props,
				})
				break
			}
		}
	}
	return out, nil
}
