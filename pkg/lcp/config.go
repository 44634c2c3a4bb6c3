package lcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/datawire/dlib/dlog"

	"github.com/pesap/reVX/pkg/geo"
	"github.com/pesap/reVX/pkg/raster"
)

// capacityClass tolerates configs that write the class as a bare number
// ("capacity_class": 400) as well as a string.
type capacityClass string

func (c *capacityClass) UnmarshalJSON(data []byte) error {
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*c = capacityClass(num.String())
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*c = capacityClass(str)
	return nil
}

// Config is the JSON run description consumed by "revx paths from-config".
type Config struct {
	// CostDB is the layer store filename.
	CostDB string `json:"cost_db"`
	// Features is the GeoJSON endpoints file.  TransmissionLines is an
	// accepted alias for runs whose endpoints are line-end substations.
	Features          string `json:"features"`
	TransmissionLines string `json:"transmission_lines"`

	CostLayers   []string `json:"cost_layers"`
	BarrierLayer string   `json:"barrier_layer"`
	BarrierMult  float64  `json:"barrier_mult"`
	ClipBuffer   int      `json:"clip_buffer"`
	MaxWorkers   int      `json:"max_workers"`
	SavePaths    bool     `json:"save_paths"`

	// NetworkNodes switches the run to reinforcement mode.
	NetworkNodes  string        `json:"network_nodes"`
	RegionColumn  string        `json:"region_identifier_column"`
	CapacityClass capacityClass `json:"capacity_class"`

	// OutDir receives least_cost_paths.csv and, with SavePaths,
	// least_cost_paths.geojson.
	OutDir string `json:"out_dir"`
}

func LoadConfig(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("lcp.LoadConfig: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("lcp.LoadConfig: %q: %w", filename, err)
	}
	if cfg.Features == "" {
		cfg.Features = cfg.TransmissionLines
	}
	if cfg.CostDB == "" || cfg.Features == "" {
		return nil, fmt.Errorf("lcp.LoadConfig: %q: cost_db and features are required", filename)
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	if cfg.RegionColumn == "" {
		cfg.RegionColumn = "ba_str"
	}
	return &cfg, nil
}

// FromConfig runs the configured job and writes its outputs to OutDir.
func FromConfig(ctx context.Context, cfg *Config) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("lcp.FromConfig: %w", err)
		}
	}()

	store, err := raster.Open(ctx, cfg.CostDB)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	features, err := geo.LoadFeatures(cfg.Features)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutDir, 0o777); err != nil {
		return err
	}
	csvName := filepath.Join(cfg.OutDir, "least_cost_paths.csv")
	geoName := filepath.Join(cfg.OutDir, "least_cost_paths.geojson")

	if cfg.NetworkNodes != "" {
		nodes, err := geo.LoadFeatures(cfg.NetworkNodes)
		if err != nil {
			return err
		}
		rows, err := RunReinforcement(ctx, ReinforcementOptions{
			Store:         store,
			CapacityClass: string(cfg.CapacityClass),
			CostLayers:    cfg.CostLayers,
			BarrierLayer:  cfg.BarrierLayer,
			BarrierMult:   cfg.BarrierMult,
			Substations:   features,
			NetworkNodes:  nodes,
			RegionColumn:  cfg.RegionColumn,
			ClipBuffer:    cfg.ClipBuffer,
			MaxWorkers:    cfg.MaxWorkers,
			SavePaths:     cfg.SavePaths,
		})
		if err != nil {
			return err
		}
		if err := WriteReinforcementCSV(csvName, cfg.RegionColumn, rows); err != nil {
			return err
		}
		dlog.Infof(ctx, "wrote %d rows to %s", len(rows), csvName)
		if cfg.SavePaths {
			if err := WriteReinforcementGeoJSON(geoName, cfg.RegionColumn, rows); err != nil {
				return err
			}
			dlog.Infof(ctx, "wrote paths to %s", geoName)
		}
		return nil
	}

	rows, err := Run(ctx, Options{
		Store:        store,
		CostLayers:   cfg.CostLayers,
		BarrierLayer: cfg.BarrierLayer,
		BarrierMult:  cfg.BarrierMult,
		Features:     features,
		ClipBuffer:   cfg.ClipBuffer,
		MaxWorkers:   cfg.MaxWorkers,
		SavePaths:    cfg.SavePaths,
	})
	if err != nil {
		return err
	}
	if err := WriteCSV(csvName, rows); err != nil {
		return err
	}
	dlog.Infof(ctx, "wrote %d rows to %s", len(rows), csvName)
	if cfg.SavePaths {
		if err := WriteGeoJSON(geoName, rows); err != nil {
			return err
		}
		dlog.Infof(ctx, "wrote paths to %s", geoName)
	}
	return nil
}
