package analysis

import (
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
	"gopkg.in/yaml.v2"
)

// LandCoverClass maps a named class of interest to its code in the land-cover
// product in use.
type LandCoverClass struct {
	Name string `yaml:"name" json:"name"`
	Code int    `yaml:"code" json:"code"`
}

// Class names used for the headline result fields.
const (
	ClassCropland = "cropland"
	ClassBuiltup  = "builtup"
)

// DefaultLandCoverClasses follows the ESA WorldCover legend.
func DefaultLandCoverClasses() []LandCoverClass {
	return []LandCoverClass{
		{Name: ClassCropland, Code: 40},
		{Name: ClassBuiltup, Code: 50},
	}
}

// Parameters tunes one analysis run. The thresholds are empirical defaults
// for C-band VH backscatter and are expected to be overridden per sensor or
// terrain.
type Parameters struct {
	InstrumentMode   string  `yaml:"instrument_mode"`
	Polarisation     string  `yaml:"polarisation"`
	OrbitPass        string  `yaml:"orbit_pass"`
	ResolutionMeters float64 `yaml:"resolution_meters"`

	SpeckleRadiusMeters  float64 `yaml:"speckle_radius_meters"`
	FloodRatioThreshold  float64 `yaml:"flood_ratio_threshold"`
	PermanentWaterMonths float64 `yaml:"permanent_water_months"`
	MaxSlopeDegrees      float64 `yaml:"max_slope_degrees"`
	MinConnectedPixels   int     `yaml:"min_connected_pixels"`
	Connectivity         int     `yaml:"connectivity"`

	RegionRadiusMeters  float64 `yaml:"region_radius_meters"`
	AreaScaleMeters     float64 `yaml:"area_scale_meters"`
	MaxPixels           int64   `yaml:"max_pixels"`
	PopulationMaxPixels int64   `yaml:"population_max_pixels"`

	ResamplePolicy raster.ResamplePolicy `yaml:"resample_policy"`
	BudgetPolicy   BudgetPolicy          `yaml:"budget_policy"`

	LandCoverClasses []LandCoverClass `yaml:"landcover_classes"`

	Workers  int `yaml:"workers"`
	TileRows int `yaml:"tile_rows"`
}

// DefaultParameters returns the Sentinel-1 IW VH descending configuration.
func DefaultParameters() Parameters {
	return Parameters{
		InstrumentMode:   "IW",
		Polarisation:     "VH",
		OrbitPass:        "DESCENDING",
		ResolutionMeters: 10,

		SpeckleRadiusMeters:  50,
		FloodRatioThreshold:  1.25,
		PermanentWaterMonths: 10,
		MaxSlopeDegrees:      5,
		MinConnectedPixels:   8,
		Connectivity:         int(raster.Connect8),

		RegionRadiusMeters:  10000,
		AreaScaleMeters:     10,
		MaxPixels:           1e12,
		PopulationMaxPixels: 1e9,

		ResamplePolicy: raster.ResampleNearest,
		BudgetPolicy:   BudgetFail,

		LandCoverClasses: DefaultLandCoverClasses(),

		Workers:  4,
		TileRows: 256,
	}
}

// LoadParametersFile overlays the YAML document at path on p.
func LoadParametersFile(path string, p Parameters) (Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read parameters: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse parameters %s: %w", path, err)
	}
	return p, nil
}

// Validate rejects values outside their sane domain.
func (p Parameters) Validate() error {
	checks := []struct {
		name  string
		value float64
		ok    bool
		why   string
	}{
		{"speckle_radius_meters", p.SpeckleRadiusMeters, p.SpeckleRadiusMeters >= 0, "must not be negative"},
		{"flood_ratio_threshold", p.FloodRatioThreshold, p.FloodRatioThreshold > 0, "must be positive"},
		{"permanent_water_months", p.PermanentWaterMonths, p.PermanentWaterMonths >= 0 && p.PermanentWaterMonths <= 12, "must be within 0..12"},
		{"max_slope_degrees", p.MaxSlopeDegrees, p.MaxSlopeDegrees > 0 && p.MaxSlopeDegrees <= 90, "must be within (0, 90]"},
		{"min_connected_pixels", float64(p.MinConnectedPixels), p.MinConnectedPixels >= 1, "must be at least 1"},
		{"connectivity", float64(p.Connectivity), p.Connectivity == 4 || p.Connectivity == 8, "must be 4 or 8"},
		{"region_radius_meters", p.RegionRadiusMeters, p.RegionRadiusMeters > 0, "must be positive"},
		{"area_scale_meters", p.AreaScaleMeters, p.AreaScaleMeters >= 0, "must not be negative"},
		{"max_pixels", float64(p.MaxPixels), p.MaxPixels >= 0, "must not be negative"},
		{"population_max_pixels", float64(p.PopulationMaxPixels), p.PopulationMaxPixels >= 0, "must not be negative"},
		{"workers", float64(p.Workers), p.Workers >= 1, "must be at least 1"},
	}
	for _, c := range checks {
		if !c.ok || math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &domain.InvalidThresholdError{Name: c.name, Value: c.value, Reason: c.why}
		}
	}
	if _, err := raster.ParseResamplePolicy(string(p.ResamplePolicy)); err != nil {
		return &domain.ValidationError{Field: "resample_policy", Reason: err.Error()}
	}
	if _, err := ParseBudgetPolicy(string(p.BudgetPolicy)); err != nil {
		return &domain.ValidationError{Field: "budget_policy", Reason: err.Error()}
	}
	seen := make(map[string]bool, len(p.LandCoverClasses))
	for _, c := range p.LandCoverClasses {
		if c.Name == "" || seen[c.Name] {
			return &domain.ValidationError{Field: "landcover_classes", Reason: fmt.Sprintf("duplicate or empty class name %q", c.Name)}
		}
		seen[c.Name] = true
	}
	return nil
}
