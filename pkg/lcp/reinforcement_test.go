package lcp_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesap/reVX/pkg/geo"
	"github.com/pesap/reVX/pkg/lcp"
	"github.com/pesap/reVX/pkg/raster"
)

func TestTieLineCostLayer(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		class string
		layer string
		err   bool
	}{
		"100":     {class: "100", layer: "tie_line_costs_102MW"},
		"100MW":   {class: "100MW", layer: "tie_line_costs_102MW"},
		"200":     {class: "200", layer: "tie_line_costs_205MW"},
		"400":     {class: "400", layer: "tie_line_costs_400MW"},
		"1000":    {class: "1000", layer: "tie_line_costs_1500MW"},
		"unknown": {class: "750", err: true},
		"garbage": {class: "big", err: true},
	}
	for name, tc := range testcases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			layer, err := lcp.TieLineCostLayer(tc.class)
			if tc.err {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.layer, layer)
			}
		})
	}
}

func TestRunReinforcement(t *testing.T) {
	t.Parallel()
	grid := uniformGrid(10, 10, 1)
	store := newStore(t, map[string]*raster.Grid{"tie_line_costs_102MW": grid})

	substations := []geo.Feature{
		pointAt(grid.Profile, 0, 0, map[string]interface{}{"ba_str": "p1"}),
		pointAt(grid.Profile, 9, 9, map[string]interface{}{"ba_str": "p2"}),
	}
	nodes := []geo.Feature{
		pointAt(grid.Profile, 0, 5, map[string]interface{}{"ba_str": "p1"}),
		pointAt(grid.Profile, 9, 4, map[string]interface{}{"ba_str": "p2"}),
	}

	rows, err := lcp.RunReinforcement(testContext(t), lcp.ReinforcementOptions{
		Store:         store,
		CapacityClass: "100",
		Substations:   substations,
		NetworkNodes:  nodes,
		RegionColumn:  "ba_str",
		ClipBuffer:    10,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 0, rows[0].Index)
	assert.Equal(t, "p1", rows[0].Region)
	assert.InDelta(t, 5.0, rows[0].DistKm, 1e-9)
	assert.InDelta(t, 5.0/102, rows[0].CostPerMW, 1e-9)
	poiX, poiY := grid.Profile.CenterOf(0, 5)
	assert.Equal(t, poiX, rows[0].PoiLon)
	assert.Equal(t, poiY, rows[0].PoiLat)

	assert.Equal(t, "p2", rows[1].Region)
	assert.InDelta(t, 5.0, rows[1].DistKm, 1e-9)
}

func TestRunReinforcementSumsConfiguredLayers(t *testing.T) {
	t.Parallel()
	tieLine := uniformGrid(10, 10, 1)
	swca := uniformGrid(10, 10, 1000)
	store := newStore(t, map[string]*raster.Grid{
		"tie_line_costs_400MW": tieLine,
		"swca_costs":           swca,
	})

	substations := []geo.Feature{
		pointAt(tieLine.Profile, 0, 0, map[string]interface{}{"ba_str": "p1"}),
	}
	nodes := []geo.Feature{
		pointAt(tieLine.Profile, 0, 4, map[string]interface{}{"ba_str": "p1"}),
	}
	opts := lcp.ReinforcementOptions{
		Store:         store,
		CapacityClass: "400",
		Substations:   substations,
		NetworkNodes:  nodes,
		RegionColumn:  "ba_str",
		ClipBuffer:    10,
	}

	base, err := lcp.RunReinforcement(testContext(t), opts)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/400, base[0].CostPerMW, 1e-9)

	// the "{}" template expands to the capacity MW, and every configured
	// layer contributes to the surface
	opts.CostLayers = []string{"tie_line_costs_{}MW", "swca_costs"}
	summed, err := lcp.RunReinforcement(testContext(t), opts)
	require.NoError(t, err)
	assert.InDelta(t, 4.0*1001/400, summed[0].CostPerMW, 1e-9)
}

func TestRunReinforcementUnreachable(t *testing.T) {
	t.Parallel()
	grid := uniformGrid(10, 10, 1)
	for row := 0; row < 10; row++ {
		grid.Set(row, 5, math.NaN())
	}
	store := newStore(t, map[string]*raster.Grid{"tie_line_costs_102MW": grid})

	substations := []geo.Feature{
		pointAt(grid.Profile, 0, 0, map[string]interface{}{"ba_str": "p1"}),
	}
	nodes := []geo.Feature{
		pointAt(grid.Profile, 0, 9, map[string]interface{}{"ba_str": "p1"}),
	}
	rows, err := lcp.RunReinforcement(testContext(t), lcp.ReinforcementOptions{
		Store:         store,
		CapacityClass: "100",
		Substations:   substations,
		NetworkNodes:  nodes,
		RegionColumn:  "ba_str",
		ClipBuffer:    10,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, math.IsNaN(rows[0].DistKm))
	assert.True(t, math.IsNaN(rows[0].CostPerMW))
	assert.Equal(t, "p1", rows[0].Region)
}

func TestRunReinforcementMissingNode(t *testing.T) {
	t.Parallel()
	grid := uniformGrid(5, 5, 1)
	store := newStore(t, map[string]*raster.Grid{"tie_line_costs_102MW": grid})

	substations := []geo.Feature{
		pointAt(grid.Profile, 0, 0, map[string]interface{}{"ba_str": "p9"}),
	}
	nodes := []geo.Feature{
		pointAt(grid.Profile, 4, 4, map[string]interface{}{"ba_str": "p1"}),
	}
	_, err := lcp.RunReinforcement(testContext(t), lcp.ReinforcementOptions{
		Store:         store,
		CapacityClass: "100",
		Substations:   substations,
		NetworkNodes:  nodes,
		RegionColumn:  "ba_str",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no network node")
}
