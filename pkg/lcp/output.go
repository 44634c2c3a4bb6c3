package lcp

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/pesap/reVX/pkg/geo"
)

func formatFloat(val float64) string {
	if math.IsNaN(val) {
		return ""
	}
	return strconv.FormatFloat(val, 'g', -1, 64)
}

// WriteCSV writes batch rows; NaN cells become empty fields.
func WriteCSV(filename string, rows []Row) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("lcp.WriteCSV: %w", err)
		}
	}()
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	w := csv.NewWriter(fp)
	if err := w.Write([]string{"start_index", "index", "cost", "length_km"}); err != nil {
		_ = fp.Close()
		return err
	}
	for _, row := range rows {
		if err := w.Write([]string{
			strconv.Itoa(row.StartIndex),
			strconv.Itoa(row.Index),
			formatFloat(row.Cost),
			formatFloat(row.LengthKm),
		}); err != nil {
			_ = fp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = fp.Close()
		return err
	}
	return fp.Close()
}

// WriteGeoJSON writes the reachable rows' path lines as features.
func WriteGeoJSON(filename string, rows []Row) error {
	var features []geo.Feature
	for _, row := range rows {
		if row.Geometry == nil {
			continue
		}
		features = append(features, geo.Feature{
			Geometry: geo.Geometry{Type: "LineString", LineString: row.Geometry},
			Properties: map[string]interface{}{
				"start_index": row.StartIndex,
				"index":       row.Index,
				"cost":        row.Cost,
				"length_km":   row.LengthKm,
			},
		})
	}
	if err := geo.SaveFeatures(filename, features); err != nil {
		return fmt.Errorf("lcp.WriteGeoJSON: %w", err)
	}
	return nil
}

// WriteReinforcementCSV writes reinforcement rows; the region column is
// named by regionColumn.
func WriteReinforcementCSV(filename, regionColumn string, rows []ReinforcementRow) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("lcp.WriteReinforcementCSV: %w", err)
		}
	}()
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	w := csv.NewWriter(fp)
	if err := w.Write([]string{
		"index", regionColumn,
		"reinforcement_poi_lat", "reinforcement_poi_lon",
		"reinforcement_dist_km", "reinforcement_cost_per_mw",
	}); err != nil {
		_ = fp.Close()
		return err
	}
	for _, row := range rows {
		if err := w.Write([]string{
			strconv.Itoa(row.Index),
			row.Region,
			formatFloat(row.PoiLat),
			formatFloat(row.PoiLon),
			formatFloat(row.DistKm),
			formatFloat(row.CostPerMW),
		}); err != nil {
			_ = fp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = fp.Close()
		return err
	}
	return fp.Close()
}

// WriteReinforcementGeoJSON writes the reachable reinforcement paths as
// features.
func WriteReinforcementGeoJSON(filename, regionColumn string, rows []ReinforcementRow) error {
	var features []geo.Feature
	for _, row := range rows {
		if row.Geometry == nil {
			continue
		}
		features = append(features, geo.Feature{
			Geometry: geo.Geometry{Type: "LineString", LineString: row.Geometry},
			Properties: map[string]interface{}{
				"index":                     row.Index,
				regionColumn:                row.Region,
				"reinforcement_poi_lat":     row.PoiLat,
				"reinforcement_poi_lon":     row.PoiLon,
				"reinforcement_dist_km":     row.DistKm,
				"reinforcement_cost_per_mw": row.CostPerMW,
			},
		})
	}
	if err := geo.SaveFeatures(filename, features); err != nil {
		return fmt.Errorf("lcp.WriteReinforcementGeoJSON: %w", err)
	}
	return nil
}
