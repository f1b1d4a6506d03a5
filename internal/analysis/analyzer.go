package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/observability"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
	"github.com/google/uuid"
)

// Analyzer runs the full flood impact pipeline for one request:
// mosaic, speckle filter, change detection, refinement, then exposure.
type Analyzer struct {
	params   Parameters
	mosaics  *MosaicBuilder
	layers   LayerSource
	geocoder domain.Geocoder
	speckle  SpeckleFilter
	detector ChangeDetector
	refiner  *Refiner
	exposure *ExposureAnalyzer
	logger   *slog.Logger
	metrics  *observability.Metrics

	outputDir string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithOutputDir writes the flood and affected-class masks as ESRI ASCII grids
// under dir/<analysis id>/.
func WithOutputDir(dir string) Option {
	return func(a *Analyzer) { a.outputDir = dir }
}

// NewAnalyzer validates p and wires the pipeline stages. geocoder may be nil,
// in which case requests must carry coordinates.
func NewAnalyzer(p Parameters, images ImageSource, layers LayerSource, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) (*Analyzer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	speckle, err := NewSpeckleFilter(p.SpeckleRadiusMeters)
	if err != nil {
		return nil, err
	}
	detector, err := NewChangeDetector(p.FloodRatioThreshold)
	if err != nil {
		return nil, err
	}
	refiner, err := NewRefiner(p)
	if err != nil {
		return nil, err
	}
	zonal := NewZonalEngine(p.Workers, p.TileRows, p.ResamplePolicy)

	a := &Analyzer{
		params:   p,
		mosaics:  NewMosaicBuilder(images, FiltersFromParameters(p)...),
		layers:   layers,
		geocoder: geocoder,
		speckle:  speckle,
		detector: detector,
		refiner:  refiner,
		exposure: NewExposureAnalyzer(p, zonal),
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run analyses one request. The returned result is always populated: on
// failure it carries the error kind and message and err is non-nil.
func (a *Analyzer) Run(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	start := time.Now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	result := domain.AnalysisResult{
		ID:        req.ID,
		Request:   req,
		StartedAt: domain.Now(),
	}
	logger := a.logger.With("analysis_id", req.ID)

	err := a.run(ctx, req, &result, logger)
	result.CompletedAt = domain.Now()
	a.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		result.Fail(err)
		a.metrics.Analyses.WithLabelValues(domain.StatusFailed, result.ErrorKind).Inc()
		if domain.IsRecoverable(err) {
			logger.Warn("analysis rejected", "error_kind", result.ErrorKind, "error", err)
		} else {
			logger.Error("analysis failed", "error", err)
		}
		return result, err
	}

	result.Status = domain.StatusCompleted
	a.metrics.Analyses.WithLabelValues(domain.StatusCompleted, "").Inc()
	a.metrics.FloodedHectares.Observe(result.FloodedHectares)
	logger.Info("analysis completed",
		"flooded_ha", result.FloodedHectares,
		"people_exposed", result.PeopleExposed,
		"duration", time.Since(start),
	)
	return result, nil
}

func (a *Analyzer) run(ctx context.Context, req domain.AnalysisRequest, result *domain.AnalysisResult, logger *slog.Logger) error {
	if err := req.Validate(); err != nil {
		return err
	}

	region, place, err := domain.ResolveRegion(ctx, req, a.geocoder, a.params.RegionRadiusMeters, logger)
	if err != nil {
		return err
	}
	result.Region = region
	result.PlaceName = place
	result.RegionHectares = region.AreaHectares()
	if result.RegionGeoJSON, err = region.GeoJSON(); err != nil {
		return fmt.Errorf("region geojson: %w", err)
	}

	before, err := a.mosaic(ctx, "before", req.Before, region, logger)
	if err != nil {
		return err
	}
	after, err := a.mosaic(ctx, "after", req.After, region, logger)
	if err != nil {
		return err
	}
	result.BeforeScenes = before.Scenes
	result.AfterScenes = after.Scenes

	var change Change
	err = a.stage(StageChange, logger, func() error {
		b := a.speckle.Apply(before.Raster)
		aft, err := raster.Align(a.speckle.Apply(after.Raster), b.Grid(), a.params.ResamplePolicy)
		if err != nil {
			return err
		}
		change, err = a.detector.Detect(b, aft)
		return err
	})
	if err != nil {
		return err
	}

	var refined Refinement
	err = a.stage("refine", logger, func() error {
		water, err := a.layers.Layer(ctx, LayerPermanentWater, region)
		if err != nil {
			return fmt.Errorf("permanent water layer: %w", err)
		}
		slope, err := slopeLayer(ctx, a.layers, region)
		if err != nil {
			return fmt.Errorf("slope layer: %w", err)
		}
		refined, err = a.refiner.Refine(ctx, change.Flooded, water, slope)
		return err
	})
	if err != nil {
		return err
	}
	result.Stages = refined.Stages
	flood := refined.Mask

	var classes []ClassExposure
	err = a.stage("exposure", logger, func() error {
		var err error
		classes, err = a.expose(ctx, flood, region, result)
		return err
	})
	if err != nil {
		return err
	}

	if a.outputDir != "" {
		files, err := a.writeMasks(result.ID, flood, classes)
		if err != nil {
			return err
		}
		result.MaskFiles = files
	}
	return nil
}

func (a *Analyzer) mosaic(ctx context.Context, name string, period domain.Period, region domain.Region, logger *slog.Logger) (Mosaic, error) {
	var m Mosaic
	err := a.stage("mosaic_"+name, logger, func() error {
		var err error
		m, err = a.mosaics.Build(ctx, period, region)
		return err
	})
	if err != nil {
		return Mosaic{}, err
	}
	if m.Empty {
		return Mosaic{}, &domain.EmptyInputError{Period: name, Start: period.Start, End: period.End}
	}
	return m, nil
}

// expose fills the area and population figures of result and returns the
// per-class masks.
func (a *Analyzer) expose(ctx context.Context, flood *raster.Raster, region domain.Region, result *domain.AnalysisResult) ([]ClassExposure, error) {
	floodedHa, err := a.exposure.AreaHectares(ctx, flood, region)
	if err != nil {
		return nil, fmt.Errorf("flooded area: %w", err)
	}
	result.FloodedHectares = floodedHa

	var classes []ClassExposure
	if len(a.params.LandCoverClasses) > 0 {
		landcover, err := a.layers.Layer(ctx, LayerLandCover, region)
		if err != nil {
			return nil, fmt.Errorf("landcover layer: %w", err)
		}
		classes, err = a.exposure.Classes(ctx, flood, landcover, region)
		if err != nil {
			return nil, err
		}
		for _, c := range classes {
			result.Classes = append(result.Classes, domain.ClassImpact{
				Name:             c.Class.Name,
				Code:             c.Class.Code,
				AffectedHectares: c.AffectedHectares,
				TotalHectares:    c.TotalHectares,
			})
			switch c.Class.Name {
			case ClassCropland:
				result.CroplandAffectedHectares = c.AffectedHectares
			case ClassBuiltup:
				result.BuiltupAffectedHectares = c.AffectedHectares
			}
		}
	}

	population, err := a.layers.Layer(ctx, LayerPopulation, region)
	if errors.Is(err, ErrLayerNotFound) {
		return classes, nil
	}
	if err != nil {
		return nil, fmt.Errorf("population layer: %w", err)
	}
	pop, err := a.exposure.Population(ctx, flood, population, region)
	if err != nil {
		return nil, err
	}
	result.PeopleExposed = pop.Exposed
	result.PopulationTotal = pop.Total
	return classes, nil
}

// stage times fn and records it under name.
func (a *Analyzer) stage(name string, logger *slog.Logger, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	a.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err == nil {
		logger.Debug("stage completed", "stage", name, "duration", elapsed)
	}
	return err
}

func (a *Analyzer) writeMasks(id string, flood *raster.Raster, classes []ClassExposure) (map[string]string, error) {
	dir := filepath.Join(a.outputDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	masks := map[string]*raster.Raster{"flood": flood}
	for _, c := range classes {
		masks[c.Class.Name] = c.Affected
	}

	files := make(map[string]string, len(masks))
	for name, m := range masks {
		path := filepath.Join(dir, name+".asc")
		if err := writeASCII(path, m); err != nil {
			return nil, err
		}
		files[name] = path
	}
	return files, nil
}

func writeASCII(path string, r *raster.Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := raster.WriteASCIIGrid(f, r, raster.DefaultASCIINoData); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
