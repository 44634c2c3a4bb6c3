package raster_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesap/reVX/pkg/raster"
)

func testProfile() raster.Profile {
	return raster.Profile{
		Width:  10,
		Height: 8,
		Transform: raster.Transform{
			OriginX:    -100_000,
			OriginY:    50_000,
			CellWidth:  90,
			CellHeight: -90,
		},
		CRS: "ESRI:102008",
	}
}

func TestProfileCellMath(t *testing.T) {
	t.Parallel()
	p := testProfile()

	row, col := p.CellAt(-100_000+90*2.5, 50_000-90*1.5)
	assert.Equal(t, 1, row)
	assert.Equal(t, 2, col)

	x, y := p.CenterOf(1, 2)
	gotRow, gotCol := p.CellAt(x, y)
	assert.Equal(t, 1, gotRow)
	assert.Equal(t, 2, gotCol)

	assert.Equal(t, float64(90), p.CellSizeM())
	assert.True(t, p.Contains(0, 0))
	assert.True(t, p.Contains(7, 9))
	assert.False(t, p.Contains(8, 0))
	assert.False(t, p.Contains(0, -1))
}

func TestGridAdd(t *testing.T) {
	t.Parallel()
	a := raster.NewGrid(testProfile())
	b := raster.NewGrid(testProfile())
	a.Set(3, 4, 1)
	b.Set(3, 4, 2)
	require.NoError(t, a.Add(b, 10))
	assert.Equal(t, float64(21), a.At(3, 4))

	other := raster.NewGrid(raster.Profile{Width: 2, Height: 2})
	err := a.Add(other, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, raster.ErrProfileMismatch)
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	filename := filepath.Join(t.TempDir(), "costs.db")

	store, err := raster.Create(ctx, filename, testProfile())
	require.NoError(t, err)

	grid := raster.NewGrid(testProfile())
	grid.Set(0, 0, 1.5)
	grid.Set(7, 9, math.NaN())
	require.NoError(t, store.WriteLayer(ctx, "tie_line_costs_102MW", grid))
	require.NoError(t, store.Close())

	store, err = raster.Open(ctx, filename)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, testProfile(), store.Profile())

	names, err := store.Layers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tie_line_costs_102MW"}, names)

	got, err := store.ReadLayer(ctx, "tie_line_costs_102MW")
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.At(0, 0))
	assert.True(t, math.IsNaN(got.At(7, 9)))
	assert.Equal(t, float64(0), got.At(3, 3))
}

func TestStoreRejectsMismatchedLayer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := raster.Create(ctx, filepath.Join(t.TempDir(), "costs.db"), testProfile())
	require.NoError(t, err)
	defer store.Close()

	grid := raster.NewGrid(raster.Profile{Width: 3, Height: 3})
	err = store.WriteLayer(ctx, "bad", grid)
	require.Error(t, err)
	assert.ErrorIs(t, err, raster.ErrProfileMismatch)
}

func TestStoreNoSuchLayer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := raster.Create(ctx, filepath.Join(t.TempDir(), "costs.db"), testProfile())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.ReadLayer(ctx, "missing")
	assert.ErrorIs(t, err, raster.ErrNoSuchLayer)
}

func TestOpenNotAStore(t *testing.T) {
	t.Parallel()
	_, err := raster.Open(context.Background(), filepath.Join(t.TempDir(), "empty.db"))
	assert.Error(t, err)
}
