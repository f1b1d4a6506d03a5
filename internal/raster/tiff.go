package raster

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"golang.org/x/image/tiff"
)

// TIFFGeoref places an integer TIFF band on the ground. The decoder does not
// read GeoTIFF tags, so the georeferencing comes from the catalog entry.
// Stored digital numbers are converted as value = DN*Scale + Offset.
type TIFFGeoref struct {
	OriginX     float64  `yaml:"origin_x"`
	OriginY     float64  `yaml:"origin_y"`
	PixelWidth  float64  `yaml:"pixel_width"`
	PixelHeight float64  `yaml:"pixel_height"`
	CRS         string   `yaml:"crs"`
	Scale       float64  `yaml:"scale"`
	Offset      float64  `yaml:"offset"`
	NoData      *float64 `yaml:"nodata"`
}

// ReadTIFF decodes a single-band 8 or 16 bit TIFF into a raster.
func ReadTIFF(r io.Reader, ref TIFFGeoref) (*Raster, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("tiff decode: %w", err)
	}

	b := img.Bounds()
	g := NewGrid(b.Dx(), b.Dy(), ref.OriginX, ref.OriginY, ref.PixelWidth, ref.PixelHeight, ref.CRS)
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("tiff georef: %w", err)
	}

	scale := ref.Scale
	if scale == 0 {
		scale = 1
	}

	var dn func(x, y int) float64
	switch im := img.(type) {
	case *image.Gray:
		dn = func(x, y int) float64 { return float64(im.GrayAt(x, y).Y) }
	case *image.Gray16:
		dn = func(x, y int) float64 { return float64(im.Gray16At(x, y).Y) }
	default:
		dn = func(x, y int) float64 {
			return float64(color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y)
		}
	}

	out := New(g)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			v := dn(b.Min.X+col, b.Min.Y+row)
			if ref.NoData != nil && v == *ref.NoData {
				continue
			}
			out.Set(g.Index(col, row), v*scale+ref.Offset)
		}
	}
	return out, nil
}
