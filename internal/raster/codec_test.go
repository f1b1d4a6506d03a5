package raster

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func TestASCIIGrid_WriteThenRead(t *testing.T) {
	g := NewGrid(3, 2, 500, 1020, 10, 10, CRSEqualArea)
	r := rasterOf(t, g, 1, 2.5, math.NaN(), 0, -3, 4)

	var buf bytes.Buffer
	require.NoError(t, WriteASCIIGrid(&buf, r, DefaultASCIINoData))
	assert.Contains(t, buf.String(), "cellsize 10\n")
	assert.Contains(t, buf.String(), "yllcorner 1000\n")

	back, err := ReadASCIIGrid(&buf, CRSEqualArea)
	require.NoError(t, err)
	assert.True(t, back.Equal(r))
}

func TestASCIIGrid_RectangularCells(t *testing.T) {
	g := NewGrid(1, 1, 0, 1, 0.5, 0.25, CRSGeographic)
	var buf bytes.Buffer
	require.NoError(t, WriteASCIIGrid(&buf, NewFilled(g, 1), DefaultASCIINoData))
	assert.Contains(t, buf.String(), "dx 0.5\ndy 0.25\n")
}

func TestReadASCIIGrid_CenterOrigin(t *testing.T) {
	src := `NCOLS 2
NROWS 2
XLLCENTER 5
YLLCENTER 5
CELLSIZE 10
NODATA_VALUE -1
1 -1
3 4
`
	r, err := ReadASCIIGrid(strings.NewReader(src), CRSEqualArea)
	require.NoError(t, err)

	g := r.Grid()
	assert.Equal(t, 0.0, g.OriginX())
	assert.Equal(t, 20.0, g.OriginY())
	_, ok := r.At(1, 0)
	assert.False(t, ok)
	v, _ := r.At(0, 1)
	assert.Equal(t, 3.0, v)
}

func TestReadASCIIGrid_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing origin", "ncols 1\nnrows 1\ncellsize 1\n5\n"},
		{"short data", "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n5\n"},
		{"bad cell", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\nabc\n"},
		{"no size", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\n5\n"},
		{"zero rows", "ncols 1\nnrows 0\nxllcorner 0\nyllcorner 0\ncellsize 1\n5\n"},
		{"oversized", "ncols 4000000000\nnrows 4000000000\nxllcorner 0\nyllcorner 0\ncellsize 1\n5\n"},
		{"oversized product", "ncols 10000\nnrows 10000\nxllcorner 0\nyllcorner 0\ncellsize 1\n5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadASCIIGrid(strings.NewReader(tt.src), CRSEqualArea)
			assert.Error(t, err)
		})
	}
}

func TestReadASCIIGrid_LargestAllowed(t *testing.T) {
	src := "ncols 8192\nnrows 8192\nxllcorner 0\nyllcorner 0\ncellsize 1\n5\n"
	_, err := ReadASCIIGrid(strings.NewReader(src), CRSEqualArea)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 cells", "header within the cap reaches the data section")
}

func TestReadTIFF_Gray16WithScaleAndNoData(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 2))
	img.SetGray16(0, 0, color.Gray16{Y: 0})
	img.SetGray16(1, 0, color.Gray16{Y: 100})
	img.SetGray16(0, 1, color.Gray16{Y: 200})
	img.SetGray16(1, 1, color.Gray16{Y: 300})

	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, nil))

	nodata := 0.0
	r, err := ReadTIFF(&buf, TIFFGeoref{
		OriginX: 0, OriginY: 20, PixelWidth: 10, PixelHeight: 10,
		CRS: CRSEqualArea, Scale: 0.01, Offset: -1, NoData: &nodata,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, r.Grid().Cols)
	assert.InDeltaSlice(t, []float64{-9, 0, 1, 2}, r.Values(-9), 1e-12)
}

func TestReadTIFF_MissingGeoref(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1)), nil))
	_, err := ReadTIFF(&buf, TIFFGeoref{CRS: CRSEqualArea})
	assert.Error(t, err)
}
