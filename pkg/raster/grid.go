// Package raster holds dense cost grids and the SQLite-backed layer store
// that routing reads them from.
package raster

import (
	"fmt"
	"math"
)

// Transform maps cell indices to CRS coordinates: cell (row, col) covers the
// square whose upper-left corner is (OriginX + col*CellWidth,
// OriginY + row*CellHeight).  CellHeight is conventionally negative for
// north-up grids.
type Transform struct {
	OriginX    float64 `json:"originX"`
	OriginY    float64 `json:"originY"`
	CellWidth  float64 `json:"cellWidth"`
	CellHeight float64 `json:"cellHeight"`
}

// Profile is the shape and georeferencing every layer of one store must
// agree on.
type Profile struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Transform Transform `json:"transform"`
	CRS       string    `json:"crs"`
}

func (p Profile) Equal(other Profile) bool {
	return p == other
}

// CellSizeM is the edge length of a cell, in the CRS's linear unit.
func (p Profile) CellSizeM() float64 {
	return math.Abs(p.Transform.CellWidth)
}

// CellAt returns the cell containing the CRS position (x, y).
func (p Profile) CellAt(x, y float64) (row, col int) {
	col = int(math.Floor((x - p.Transform.OriginX) / p.Transform.CellWidth))
	row = int(math.Floor((y - p.Transform.OriginY) / p.Transform.CellHeight))
	return row, col
}

// CenterOf returns the CRS position of the center of cell (row, col).
func (p Profile) CenterOf(row, col int) (x, y float64) {
	x = p.Transform.OriginX + (float64(col)+0.5)*p.Transform.CellWidth
	y = p.Transform.OriginY + (float64(row)+0.5)*p.Transform.CellHeight
	return x, y
}

// Contains reports whether (row, col) is on the grid.
func (p Profile) Contains(row, col int) bool {
	return row >= 0 && row < p.Height && col >= 0 && col < p.Width
}

// Grid is one dense float64 layer, row-major.
type Grid struct {
	Profile Profile
	Data    []float64
}

func NewGrid(profile Profile) *Grid {
	return &Grid{
		Profile: profile,
		Data:    make([]float64, profile.Width*profile.Height),
	}
}

func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Profile.Width+col]
}

func (g *Grid) Set(row, col int, val float64) {
	g.Data[row*g.Profile.Width+col] = val
}

// Add sums other in to g cell-wise, scaled by mult.
func (g *Grid) Add(other *Grid, mult float64) error {
	if !g.Profile.Equal(other.Profile) {
		return fmt.Errorf("raster: %w: %+v != %+v",
			ErrProfileMismatch, other.Profile, g.Profile)
	}
	for i, val := range other.Data {
		g.Data[i] += val * mult
	}
	return nil
}
