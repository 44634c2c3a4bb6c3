package lcp

import (
	"context"
	"fmt"
	"math"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"

	"github.com/pesap/reVX/pkg/geo"
	"github.com/pesap/reVX/pkg/raster"
)

// Options configures a batch run.
type Options struct {
	Store *raster.Store
	// CostLayers are summed in to the routing surface.
	CostLayers []string
	// BarrierLayer, if set, is added scaled by BarrierMult.
	BarrierLayer string
	BarrierMult  float64

	// Features are the endpoints; every geometry must be a Point on the
	// store's grid.
	Features []geo.Feature

	// ClipBuffer expands each pair's clip window by this many cells, so
	// paths can escape the start/end bounding box.
	ClipBuffer int
	// MaxWorkers caps routing parallelism; <= 0 means 1.
	MaxWorkers int
	// SavePaths fills Row.Geometry with the path line.
	SavePaths bool
}

// Row is one start/end routing result.  Cost and LengthKm are NaN when no
// path connects the pair.
type Row struct {
	StartIndex int
	Index      int
	Cost       float64
	LengthKm   float64
	Geometry   geo.LineString
}

// BuildCostSurface assembles the routing surface: the sum of the cost
// layers, plus the barrier layer scaled by barrierMult when given.
func BuildCostSurface(ctx context.Context, opts Options) (*raster.Grid, error) {
	if len(opts.CostLayers) == 0 {
		return nil, fmt.Errorf("lcp.BuildCostSurface: no cost layers")
	}
	surface := raster.NewGrid(opts.Store.Profile())
	for _, name := range opts.CostLayers {
		layer, err := opts.Store.ReadLayer(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("lcp.BuildCostSurface: %w", err)
		}
		if err := surface.Add(layer, 1); err != nil {
			return nil, fmt.Errorf("lcp.BuildCostSurface: %q: %w", name, err)
		}
	}
	if opts.BarrierLayer != "" {
		barrier, err := opts.Store.ReadLayer(ctx, opts.BarrierLayer)
		if err != nil {
			return nil, fmt.Errorf("lcp.BuildCostSurface: %w", err)
		}
		if err := surface.Add(barrier, opts.BarrierMult); err != nil {
			return nil, fmt.Errorf("lcp.BuildCostSurface: %q: %w", opts.BarrierLayer, err)
		}
	}
	return surface, nil
}

// featureCells maps point features to grid cells, reporting every bad
// feature rather than just the first.
func featureCells(profile raster.Profile, features []geo.Feature) ([]Cell, error) {
	cells := make([]Cell, len(features))
	var errs derror.MultiError
	for i, feat := range features {
		if feat.Geometry.Type != "Point" || feat.Geometry.Point == nil {
			errs = append(errs, fmt.Errorf("feature %d is a %q, not a Point",
				i, feat.Geometry.Type))
			continue
		}
		row, col := profile.CellAt(feat.Geometry.Point.X, feat.Geometry.Point.Y)
		if !profile.Contains(row, col) {
			errs = append(errs, fmt.Errorf("feature %d at (%g, %g) is off the cost grid",
				i, feat.Geometry.Point.X, feat.Geometry.Point.Y))
			continue
		}
		cells[i] = Cell{Row: row, Col: col}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return cells, nil
}

// clipWindow copies the subgrid covering a and b plus buffer cells of
// margin, returning the copy and the offset of its (0, 0) cell on the parent
// grid.
func clipWindow(g *raster.Grid, a, b Cell, buffer int) (*raster.Grid, Cell) {
	minRow := min(a.Row, b.Row) - buffer
	maxRow := max(a.Row, b.Row) + buffer
	minCol := min(a.Col, b.Col) - buffer
	maxCol := max(a.Col, b.Col) + buffer
	minRow = max(minRow, 0)
	minCol = max(minCol, 0)
	maxRow = min(maxRow, g.Profile.Height-1)
	maxCol = min(maxCol, g.Profile.Width-1)

	profile := g.Profile
	profile.Height = maxRow - minRow + 1
	profile.Width = maxCol - minCol + 1
	profile.Transform.OriginX += float64(minCol) * profile.Transform.CellWidth
	profile.Transform.OriginY += float64(minRow) * profile.Transform.CellHeight

	sub := raster.NewGrid(profile)
	for row := 0; row < profile.Height; row++ {
		for col := 0; col < profile.Width; col++ {
			sub.Set(row, col, g.At(minRow+row, minCol+col))
		}
	}
	return sub, Cell{Row: minRow, Col: minCol}
}

// routePair routes one start/end pair inside its clip window.
func routePair(surface *raster.Grid, cells []Cell, start, end, buffer int, savePath bool) Row {
	row := Row{
		StartIndex: start,
		Index:      end,
		Cost:       math.NaN(),
		LengthKm:   math.NaN(),
	}
	sub, offset := clipWindow(surface, cells[start], cells[end], buffer)
	path, cost, err := Route(sub,
		Cell{Row: cells[start].Row - offset.Row, Col: cells[start].Col - offset.Col},
		Cell{Row: cells[end].Row - offset.Row, Col: cells[end].Col - offset.Col})
	if err != nil {
		return row
	}
	row.Cost = cost
	row.LengthKm = path.Length() * surface.Profile.CellSizeM() / 1000
	if savePath {
		line := make(geo.LineString, len(path))
		for i, cell := range path {
			x, y := surface.Profile.CenterOf(cell.Row+offset.Row, cell.Col+offset.Col)
			line[i] = geo.Point{X: x, Y: y}
		}
		row.Geometry = line
	}
	return row
}

// Run routes every feature pair (each start to every later feature),
// parallel across starts.  Rows come back sorted by (StartIndex, Index) and
// are identical regardless of MaxWorkers; unreachable pairs yield NaN rows.
func Run(ctx context.Context, opts Options) ([]Row, error) {
	surface, err := BuildCostSurface(ctx, opts)
	if err != nil {
		return nil, err
	}
	cells, err := featureCells(surface.Profile, opts.Features)
	if err != nil {
		return nil, fmt.Errorf("lcp.Run: %w", err)
	}
	if len(cells) < 2 {
		return nil, fmt.Errorf("lcp.Run: need at least 2 features, got %d", len(cells))
	}

	workers := opts.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	dlog.Infof(ctx, "routing %d features with %d workers", len(cells), workers)

	// one result slot per start keeps output independent of scheduling
	results := make([][]Row, len(cells)-1)
	starts := make(chan int)

	group := dgroup.NewGroup(ctx, dgroup.GroupConfig{})
	group.Go("feed", func(ctx context.Context) error {
		defer close(starts)
		for start := 0; start < len(cells)-1; start++ {
			select {
			case starts <- start:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for worker := 0; worker < workers; worker++ {
		group.Go(fmt.Sprintf("route-%d", worker), func(ctx context.Context) error {
			for start := range starts {
				if err := ctx.Err(); err != nil {
					return err
				}
				rows := make([]Row, 0, len(cells)-start-1)
				for end := start + 1; end < len(cells); end++ {
					rows = append(rows, routePair(
						surface, cells, start, end, opts.ClipBuffer, opts.SavePaths))
				}
				results[start] = rows
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("lcp.Run: %w", err)
	}

	var out []Row
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}
