package lcp

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"

	"github.com/pesap/reVX/pkg/geo"
	"github.com/pesap/reVX/pkg/raster"
)

// capacityClasses maps a nameplate capacity class to the MW rating of the
// tie-line it is built with.
var capacityClasses = map[string]int{
	"100":  102,
	"200":  205,
	"400":  400,
	"1000": 1500,
}

// CapacityMW resolves a capacity class ("400" or "400MW") to its tie-line
// rating.
func CapacityMW(capacityClass string) (int, error) {
	mw, ok := capacityClasses[strings.TrimSuffix(capacityClass, "MW")]
	if !ok {
		return 0, fmt.Errorf("lcp: unknown capacity class %q", capacityClass)
	}
	return mw, nil
}

// TieLineCostLayer names the cost layer for a capacity class.
func TieLineCostLayer(capacityClass string) (string, error) {
	mw, err := CapacityMW(capacityClass)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("tie_line_costs_%dMW", mw), nil
}

// ReinforcementOptions configures substation-to-network-node routing.
type ReinforcementOptions struct {
	Store *raster.Store
	// CapacityClass picks the MW rating that "{}" in layer names expands
	// to, and the divisor for the per-MW cost.
	CapacityClass string
	// CostLayers are summed in to the routing surface, each with "{}"
	// expanded to the capacity MW.  Empty means the tie-line layer alone.
	CostLayers   []string
	BarrierLayer string
	BarrierMult  float64

	// Substations must carry RegionColumn in their properties (see
	// geo.AssignRegions); NetworkNodes must too, one node per region.
	Substations  []geo.Feature
	NetworkNodes []geo.Feature
	RegionColumn string

	ClipBuffer int
	MaxWorkers int
	SavePaths  bool
}

// ReinforcementRow is one substation's route to its region's network node.
// Cost fields are NaN when the node is unreachable.
type ReinforcementRow struct {
	Index     int
	Region    string
	PoiLat    float64
	PoiLon    float64
	DistKm    float64
	CostPerMW float64
	Geometry  geo.LineString
}

func regionOf(feat geo.Feature, column string) (string, error) {
	val, ok := feat.Properties[column]
	if !ok {
		return "", fmt.Errorf("feature has no %q property", column)
	}
	return fmt.Sprint(val), nil
}

// RunReinforcement routes every substation to the network node of its
// region, parallel across substations.  Costs are divided by the capacity
// class's MW rating.
func RunReinforcement(ctx context.Context, opts ReinforcementOptions) ([]ReinforcementRow, error) {
	capacityMW, err := CapacityMW(opts.CapacityClass)
	if err != nil {
		return nil, fmt.Errorf("lcp.RunReinforcement: %w", err)
	}
	var layers []string
	if len(opts.CostLayers) == 0 {
		layers = []string{fmt.Sprintf("tie_line_costs_%dMW", capacityMW)}
	} else {
		layers = make([]string, len(opts.CostLayers))
		for i, name := range opts.CostLayers {
			layers[i] = strings.ReplaceAll(name, "{}", strconv.Itoa(capacityMW))
		}
	}

	surface, err := BuildCostSurface(ctx, Options{
		Store:        opts.Store,
		CostLayers:   layers,
		BarrierLayer: opts.BarrierLayer,
		BarrierMult:  opts.BarrierMult,
	})
	if err != nil {
		return nil, fmt.Errorf("lcp.RunReinforcement: %w", err)
	}

	nodeCells, err := featureCells(surface.Profile, opts.NetworkNodes)
	if err != nil {
		return nil, fmt.Errorf("lcp.RunReinforcement: network nodes: %w", err)
	}
	type node struct {
		cell Cell
		pt   geo.Point
	}
	nodeByRegion := make(map[string]node, len(opts.NetworkNodes))
	for i, feat := range opts.NetworkNodes {
		region, err := regionOf(feat, opts.RegionColumn)
		if err != nil {
			return nil, fmt.Errorf("lcp.RunReinforcement: network node %d: %w", i, err)
		}
		if _, dup := nodeByRegion[region]; dup {
			return nil, fmt.Errorf("lcp.RunReinforcement: region %q has multiple network nodes",
				region)
		}
		nodeByRegion[region] = node{cell: nodeCells[i], pt: *feat.Geometry.Point}
	}

	subCells, err := featureCells(surface.Profile, opts.Substations)
	if err != nil {
		return nil, fmt.Errorf("lcp.RunReinforcement: substations: %w", err)
	}

	workers := opts.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	dlog.Infof(ctx, "reinforcement routing %d substations (%s) with %d workers",
		len(subCells), strings.Join(layers, ", "), workers)

	rows := make([]ReinforcementRow, len(subCells))
	jobs := make(chan int)
	group := dgroup.NewGroup(ctx, dgroup.GroupConfig{})
	group.Go("feed", func(ctx context.Context) error {
		defer close(jobs)
		for i := range subCells {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for worker := 0; worker < workers; worker++ {
		group.Go(fmt.Sprintf("route-%d", worker), func(ctx context.Context) error {
			for i := range jobs {
				region, err := regionOf(opts.Substations[i], opts.RegionColumn)
				if err != nil {
					return fmt.Errorf("substation %d: %w", i, err)
				}
				to, ok := nodeByRegion[region]
				if !ok {
					return fmt.Errorf("substation %d: region %q has no network node",
						i, region)
				}
				row := ReinforcementRow{
					Index:     i,
					Region:    region,
					PoiLat:    to.pt.Y,
					PoiLon:    to.pt.X,
					DistKm:    math.NaN(),
					CostPerMW: math.NaN(),
				}
				pairCells := []Cell{subCells[i], to.cell}
				result := routePair(surface, pairCells, 0, 1, opts.ClipBuffer, opts.SavePaths)
				if !math.IsNaN(result.Cost) {
					row.DistKm = result.LengthKm
					row.CostPerMW = result.Cost / float64(capacityMW)
					row.Geometry = result.Geometry
				}
				rows[i] = row
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("lcp.RunReinforcement: %w", err)
	}
	return rows, nil
}
