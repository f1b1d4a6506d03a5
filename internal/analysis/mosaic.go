package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
)

// SceneFilter is an inclusion predicate over scene metadata.
type SceneFilter func(domain.SceneMetadata) bool

// InstrumentMode keeps scenes acquired in the given mode.
func InstrumentMode(mode string) SceneFilter {
	return func(m domain.SceneMetadata) bool { return strings.EqualFold(m.InstrumentMode, mode) }
}

// Polarisation keeps scenes that carry the given polarisation.
func Polarisation(p string) SceneFilter {
	return func(m domain.SceneMetadata) bool { return m.HasPolarisation(p) }
}

// OrbitPass keeps scenes from the given orbit direction.
func OrbitPass(pass string) SceneFilter {
	return func(m domain.SceneMetadata) bool { return strings.EqualFold(m.OrbitPass, pass) }
}

// Resolution keeps scenes with the given nominal resolution.
func Resolution(meters float64) SceneFilter {
	return func(m domain.SceneMetadata) bool { return m.ResolutionMeters == meters }
}

// FiltersFromParameters builds the configured predicates. Empty settings
// impose no restriction.
func FiltersFromParameters(p Parameters) []SceneFilter {
	var filters []SceneFilter
	if p.InstrumentMode != "" {
		filters = append(filters, InstrumentMode(p.InstrumentMode))
	}
	if p.Polarisation != "" {
		filters = append(filters, Polarisation(p.Polarisation))
	}
	if p.OrbitPass != "" {
		filters = append(filters, OrbitPass(p.OrbitPass))
	}
	if p.ResolutionMeters > 0 {
		filters = append(filters, Resolution(p.ResolutionMeters))
	}
	return filters
}

// Mosaic is the composite of one period. Empty mosaics have no raster.
type Mosaic struct {
	Raster *raster.Raster
	Scenes []string
	Empty  bool
}

// MosaicBuilder composites the scenes of a period into one raster.
//
// Overlaps are resolved most-recent-wins: scenes are ordered by acquisition
// time descending, then by ID ascending, and every cell takes the first
// present value in that order.
type MosaicBuilder struct {
	source  ImageSource
	filters []SceneFilter
}

func NewMosaicBuilder(source ImageSource, filters ...SceneFilter) *MosaicBuilder {
	return &MosaicBuilder{source: source, filters: filters}
}

// Build returns the mosaic of period clipped to region. The target grid has
// the CRS and pixel size of the newest matching scene and covers the region.
// Scenes in dB are converted to linear power first.
func (b *MosaicBuilder) Build(ctx context.Context, period domain.Period, region domain.Region) (Mosaic, error) {
	all, err := b.source.Scenes(ctx, SceneQuery{Period: period, Region: region})
	if err != nil {
		return Mosaic{}, fmt.Errorf("query scenes: %w", err)
	}

	scenes := b.matching(all, period, region)
	if len(scenes) == 0 {
		return Mosaic{Empty: true}, nil
	}
	sort.SliceStable(scenes, func(i, j int) bool {
		if !scenes[i].Acquired.Equal(scenes[j].Acquired) {
			return scenes[i].Acquired.After(scenes[j].Acquired)
		}
		return scenes[i].ID < scenes[j].ID
	})

	target := raster.AlignedGrid(scenes[0].Raster.Grid(), region.Bound())
	out := raster.New(target)
	ids := make([]string, 0, len(scenes))
	for _, s := range scenes {
		if err := ctx.Err(); err != nil {
			return Mosaic{}, err
		}
		ids = append(ids, s.ID)

		src := s.Raster
		if strings.EqualFold(s.Metadata.Units, domain.UnitsDB) {
			src = raster.DBToLinear(src)
		}
		src = raster.Resample(src, target)
		for i := 0; i < out.Len(); i++ {
			if _, ok := out.Value(i); ok {
				continue
			}
			if v, ok := src.Value(i); ok {
				out.Set(i, v)
			}
		}
	}

	clipped := raster.ClipToRegion(out, region)
	if clipped.IsEmpty() {
		return Mosaic{Empty: true}, nil
	}
	return Mosaic{Raster: clipped, Scenes: ids}, nil
}

func (b *MosaicBuilder) matching(all []Scene, period domain.Period, region domain.Region) []Scene {
	rb := region.Bound()
	var out []Scene
	for _, s := range all {
		if s.Raster == nil || !period.Contains(s.Acquired) {
			continue
		}
		if !s.Raster.Grid().LonLatBound().Intersects(rb) || !b.accepts(s.Metadata) {
			continue
		}
		// A scene clipping a corner of the bound can still miss the circle.
		if raster.Covers(s.Raster, region) {
			out = append(out, s)
		}
	}
	return out
}

func (b *MosaicBuilder) accepts(m domain.SceneMetadata) bool {
	for _, f := range b.filters {
		if !f(m) {
			return false
		}
	}
	return true
}
