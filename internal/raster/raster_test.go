package raster

import (
	"errors"
	"math"
	"testing"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testGrid returns a 10 m equal-area grid anchored at the equator, where the
// ground cell size is effectively exact.
func testGrid(cols, rows int) Grid {
	return NewGrid(cols, rows, 0, float64(rows)*10, 10, 10, CRSEqualArea)
}

func rasterOf(t *testing.T, g Grid, vals ...float64) *Raster {
	t.Helper()
	r, err := FromValues(g, vals, math.NaN())
	require.NoError(t, err)
	return r
}

func TestFromValues_NoDataAndNonFinite(t *testing.T) {
	g := testGrid(4, 1)
	r, err := FromValues(g, []float64{1, -9999, math.Inf(1), 0}, -9999)
	require.NoError(t, err)

	v, ok := r.Value(0)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	_, ok = r.Value(1)
	assert.False(t, ok)
	_, ok = r.Value(2)
	assert.False(t, ok)

	v, ok = r.Value(3)
	assert.True(t, ok, "explicit zero stays present")
	assert.Equal(t, 0.0, v)
	assert.False(t, r.IsSet(3))
	assert.Equal(t, 2, r.ValidCount())
}

func TestFromValues_WrongLength(t *testing.T) {
	_, err := FromValues(testGrid(2, 2), []float64{1, 2, 3}, 0)
	require.Error(t, err)
}

func TestGrid_CellAtAndCenter(t *testing.T) {
	g := testGrid(3, 2)
	x, y := g.CellCenter(1, 1)
	assert.Equal(t, 15.0, x)
	assert.Equal(t, 5.0, y)

	col, row, ok := g.CellAt(x, y)
	require.True(t, ok)
	assert.Equal(t, 1, col)
	assert.Equal(t, 1, row)

	_, _, ok = g.CellAt(-1, 5)
	assert.False(t, ok)
	_, _, ok = g.CellAt(35, 5)
	assert.False(t, ok)
}

func TestGrid_Validate(t *testing.T) {
	assert.NoError(t, testGrid(2, 2).Validate())
	assert.Error(t, NewGrid(0, 2, 0, 0, 10, 10, CRSEqualArea).Validate())
	assert.Error(t, NewGrid(2, 2, 0, 0, 10, 10, "EPSG:32633").Validate())
}

func TestAlignedGrid_KeepsReferenceAlignment(t *testing.T) {
	ref := NewGrid(100, 100, 0, 1, 0.01, 0.01, CRSGeographic)
	b := orb.Bound{Min: orb.Point{0.105, 0.205}, Max: orb.Point{0.295, 0.395}}

	g := AlignedGrid(ref, b)
	assert.InDelta(t, 0.10, g.OriginX(), 1e-9)
	assert.InDelta(t, 0.40, g.OriginY(), 1e-9)
	assert.Equal(t, 20, g.Cols)
	assert.Equal(t, 20, g.Rows)
	assert.Equal(t, ref.PixelWidth(), g.PixelWidth())
}

func TestCellArea(t *testing.T) {
	assert.Equal(t, 100.0, CellArea(testGrid(1, 1), 0))

	// One degree cell at the equator is roughly 111 km on a side.
	geo := NewGrid(1, 1, 0, 1, 1, 1, CRSGeographic)
	assert.InDelta(t, 1.2391e10, CellArea(geo, 0), 1e8)

	// Cells shrink towards the pole.
	high := NewGrid(1, 2, 0, 61, 1, 1, CRSGeographic)
	assert.Less(t, CellArea(high, 0), CellArea(high, 1))
}

func TestProjectionRoundTrip(t *testing.T) {
	for _, crs := range []string{CRSGeographic, CRSWebMercator, CRSEqualArea} {
		x, y := FromLonLat(crs, 12.5, -33.25)
		lon, lat := ToLonLat(crs, x, y)
		assert.InDelta(t, 12.5, lon, 1e-9, crs)
		assert.InDelta(t, -33.25, lat, 1e-9, crs)
	}
}

func TestDivide_ZeroDenominatorIsAbsent(t *testing.T) {
	g := testGrid(3, 1)
	a := rasterOf(t, g, 2, 4, 6)
	b := rasterOf(t, g, 1, 0, math.NaN())

	q, err := Divide(a, b)
	require.NoError(t, err)

	v, ok := q.Value(0)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
	_, ok = q.Value(1)
	assert.False(t, ok)
	_, ok = q.Value(2)
	assert.False(t, ok)
}

func TestCombine_GridMismatch(t *testing.T) {
	_, err := Divide(New(testGrid(2, 2)), New(testGrid(3, 2)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrGridMismatch))

	var gm *domain.GridMismatchError
	assert.True(t, errors.As(err, &gm))
}

func TestGreaterThanAndSelfMask(t *testing.T) {
	g := testGrid(4, 1)
	r := rasterOf(t, g, 1.25, 1.3, math.NaN(), 0.5)

	mask := SelfMask(GreaterThan(r, 1.25))
	assert.False(t, mask.IsSet(0), "strictly greater")
	assert.True(t, mask.IsSet(1))
	_, ok := mask.Value(2)
	assert.False(t, ok)
	_, ok = mask.Value(3)
	assert.False(t, ok, "zero cells are dropped")
}

func TestWhereAndUpdateMask(t *testing.T) {
	g := testGrid(3, 1)
	r := rasterOf(t, g, 1, 1, 1)
	cond := rasterOf(t, g, 1, 0, math.NaN())

	w, err := Where(r, cond, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1}, w.Values(-1))

	u, err := UpdateMask(r, cond)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -1, -1}, u.Values(-1))
}

func TestDBToLinear(t *testing.T) {
	r := DBToLinear(rasterOf(t, testGrid(2, 1), 0, -10))
	assert.InDeltaSlice(t, []float64{1, 0.1}, r.Values(0), 1e-12)
}

func TestResample_Upsample(t *testing.T) {
	src := rasterOf(t, testGrid(2, 1), 1, 2)
	target := NewGrid(4, 2, 0, 10, 5, 5, CRSEqualArea)

	out := Resample(src, target)
	assert.Equal(t, []float64{1, 1, 2, 2, 1, 1, 2, 2}, out.Values(-1))
}

func TestAlign_PolicyNoneRefuses(t *testing.T) {
	src := New(testGrid(2, 1))
	_, err := Align(src, testGrid(3, 1), ResampleNone)
	assert.True(t, errors.Is(err, domain.ErrGridMismatch))

	same, err := Align(src, testGrid(2, 1), ResampleNone)
	require.NoError(t, err)
	assert.Same(t, src, same)
}

func TestClipToRegion(t *testing.T) {
	region, err := domain.NewRegion(0, 0, 1000)
	require.NoError(t, err)

	g := NewGrid(30, 30, -1500, 1500, 100, 100, CRSEqualArea)
	clipped := ClipToRegion(NewFilled(g, 1), region)

	// Corners are outside the circle, the centre is inside.
	_, ok := clipped.At(0, 0)
	assert.False(t, ok)
	_, ok = clipped.At(15, 15)
	assert.True(t, ok)
	// About pi*10^2 cells of 100 m inside a 1 km radius.
	assert.InDelta(t, 314, clipped.ValidCount(), 12)
}

func TestCovers(t *testing.T) {
	region, err := domain.NewRegion(0, 0, 300)
	require.NoError(t, err)

	corner := NewGrid(4, 4, 260, 300, 10, 10, CRSEqualArea)
	assert.False(t, Covers(NewFilled(corner, 1), region), "bounding box corner only")

	centre := NewGrid(4, 4, -20, 20, 10, 10, CRSEqualArea)
	assert.True(t, Covers(NewFilled(centre, 1), region))
	assert.False(t, Covers(New(centre), region), "absent cells do not count")
}

func TestTiles(t *testing.T) {
	tiles := Tiles(testGrid(2, 5), 2)
	require.Len(t, tiles, 3)
	assert.Equal(t, Tile{Index: 2, RowStart: 4, RowEnd: 5}, tiles[2])

	assert.Len(t, Tiles(testGrid(2, 5), 0), 1)
}
