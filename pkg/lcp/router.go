// Package lcp computes least-cost transmission paths over cost rasters:
// point-to-point routing, batch runs across feature sets, and reinforcement
// routing of substations to their region's network node.
package lcp

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/pesap/reVX/pkg/raster"
)

var (
	// ErrInvalidStart means the start cell is off the grid or on a
	// barrier.
	ErrInvalidStart = errors.New("invalid start cell")
	// ErrPathNotFound means no finite-cost path connects start and end.
	ErrPathNotFound = errors.New("least cost path not found")
)

// Cell is a (row, col) grid position.
type Cell struct {
	Row int
	Col int
}

// Path is the cell run from start to end, inclusive.
type Path []Cell

// barrier cells cannot be entered or left
func barrier(val float64) bool {
	return math.IsNaN(val) || val < 0
}

// the 8 neighbor offsets with their euclidean step lengths
var neighbors = [8]struct {
	dRow, dCol int
	dist       float64
}{
	{-1, -1, math.Sqrt2}, {-1, 0, 1}, {-1, 1, math.Sqrt2},
	{0, -1, 1}, {0, 1, 1},
	{1, -1, math.Sqrt2}, {1, 0, 1}, {1, 1, math.Sqrt2},
}

type pqItem struct {
	cell Cell
	cost float64
}

type pq []pqItem

func (q pq) Len() int            { return len(q) }
func (q pq) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q pq) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pq) Push(x interface{}) { *q = append(*q, x.(pqItem)) }
func (q *pq) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Route finds the least-cost path from start to end over cost.  The cost of
// a move is the mean of the two cells' values times the euclidean cell
// distance, moves are 8-connected, and NaN or negative cells are
// impassable.
func Route(cost *raster.Grid, start, end Cell) (Path, float64, error) {
	profile := cost.Profile
	if !profile.Contains(start.Row, start.Col) || barrier(cost.At(start.Row, start.Col)) {
		return nil, math.NaN(), fmt.Errorf("lcp.Route: %w: (%d, %d)",
			ErrInvalidStart, start.Row, start.Col)
	}
	if !profile.Contains(end.Row, end.Col) || barrier(cost.At(end.Row, end.Col)) {
		return nil, math.NaN(), fmt.Errorf("lcp.Route: %w: end (%d, %d) is not routable",
			ErrPathNotFound, end.Row, end.Col)
	}

	idx := func(c Cell) int { return c.Row*profile.Width + c.Col }

	dist := make([]float64, profile.Width*profile.Height)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	prev := make([]int32, profile.Width*profile.Height)
	for i := range prev {
		prev[i] = -1
	}

	dist[idx(start)] = 0
	queue := &pq{{cell: start, cost: 0}}
	for queue.Len() > 0 {
		item := heap.Pop(queue).(pqItem)
		here := item.cell
		if item.cost > dist[idx(here)] {
			continue
		}
		if here == end {
			break
		}
		hereVal := cost.At(here.Row, here.Col)
		for _, n := range neighbors {
			next := Cell{Row: here.Row + n.dRow, Col: here.Col + n.dCol}
			if !profile.Contains(next.Row, next.Col) {
				continue
			}
			nextVal := cost.At(next.Row, next.Col)
			if barrier(nextVal) {
				continue
			}
			moveCost := item.cost + (hereVal+nextVal)/2*n.dist
			if moveCost < dist[idx(next)] {
				dist[idx(next)] = moveCost
				prev[idx(next)] = int32(idx(here))
				heap.Push(queue, pqItem{cell: next, cost: moveCost})
			}
		}
	}

	total := dist[idx(end)]
	if math.IsInf(total, 1) {
		return nil, math.NaN(), fmt.Errorf(
			"lcp.Route: %w: (%d, %d) -> (%d, %d)",
			ErrPathNotFound, start.Row, start.Col, end.Row, end.Col)
	}

	var path Path
	for at := idx(end); at >= 0; at = int(prev[at]) {
		path = append(path, Cell{Row: at / profile.Width, Col: at % profile.Width})
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, total, nil
}

// Length is the euclidean length of the path in cell units.
func (p Path) Length() float64 {
	var total float64
	for i := 1; i < len(p); i++ {
		dRow := float64(p[i].Row - p[i-1].Row)
		dCol := float64(p[i].Col - p[i-1].Col)
		total += math.Sqrt(dRow*dRow + dCol*dCol)
	}
	return total
}
