package raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diagonalMask(t *testing.T) *Raster {
	nan := math.NaN()
	return rasterOf(t, testGrid(3, 3),
		1, nan, nan,
		nan, 1, nan,
		nan, nan, 1,
	)
}

func TestLabelComponents_Connectivity(t *testing.T) {
	m := diagonalMask(t)

	cc8 := LabelComponents(m, Connect8)
	assert.Equal(t, []int{3}, cc8.Sizes)

	cc4 := LabelComponents(m, Connect4)
	assert.Equal(t, []int{1, 1, 1}, cc4.Sizes)
	assert.Equal(t, -1, cc4.Labels[1])
}

func TestLabelComponents_ZeroCellsAreNotMembers(t *testing.T) {
	m := rasterOf(t, testGrid(3, 1), 1, 0, 1)
	cc := LabelComponents(m, Connect8)
	assert.Equal(t, []int{1, 1}, cc.Sizes)
}

func TestLabelComponents_UShapeMergesLate(t *testing.T) {
	nan := math.NaN()
	m := rasterOf(t, testGrid(3, 3),
		1, nan, 1,
		1, nan, 1,
		1, 1, 1,
	)
	cc := LabelComponents(m, Connect4)
	assert.Equal(t, []int{7}, cc.Sizes)
}

func TestRemoveSmallComponents_SinglePixel(t *testing.T) {
	nan := math.NaN()
	m := rasterOf(t, testGrid(3, 3),
		nan, nan, nan,
		nan, 1, nan,
		nan, nan, nan,
	)

	kept := RemoveSmallComponents(m, Connect8, 1)
	assert.Equal(t, 1, kept.ValidCount())

	removed := RemoveSmallComponents(m, Connect8, 2)
	assert.True(t, removed.IsEmpty())
}

func TestParseConnectivity(t *testing.T) {
	c, err := ParseConnectivity(4)
	require.NoError(t, err)
	assert.Equal(t, Connect4, c)
	_, err = ParseConnectivity(6)
	assert.Error(t, err)
}
