package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
)

// Scene is one radar acquisition.
type Scene struct {
	ID       string
	Acquired time.Time
	Metadata domain.SceneMetadata
	Raster   *raster.Raster
}

// SceneQuery narrows an image collection. Sources may return a superset; the
// mosaic builder applies the period and footprint checks itself.
type SceneQuery struct {
	Period domain.Period
	Region domain.Region
}

// ImageSource supplies radar scenes.
type ImageSource interface {
	Scenes(ctx context.Context, q SceneQuery) ([]Scene, error)
}

// Layer names an auxiliary raster.
type Layer string

const (
	LayerPermanentWater Layer = "permanent_water"
	LayerElevation      Layer = "elevation"
	LayerSlope          Layer = "slope"
	LayerLandCover      Layer = "landcover"
	LayerPopulation     Layer = "population"
)

// ErrLayerNotFound is returned by a LayerSource that does not carry a layer.
var ErrLayerNotFound = errors.New("layer not found")

// LayerSource supplies static auxiliary rasters covering a region.
type LayerSource interface {
	Layer(ctx context.Context, name Layer, region domain.Region) (*raster.Raster, error)
}

// slopeLayer prefers a precomputed slope layer and otherwise derives slope
// from elevation.
func slopeLayer(ctx context.Context, src LayerSource, region domain.Region) (*raster.Raster, error) {
	slope, err := src.Layer(ctx, LayerSlope, region)
	if err == nil {
		return slope, nil
	}
	if !errors.Is(err, ErrLayerNotFound) {
		return nil, err
	}
	dem, err := src.Layer(ctx, LayerElevation, region)
	if err != nil {
		return nil, err
	}
	return raster.Slope(dem), nil
}
