package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/analysis"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// CatalogPath points at the YAML index of scenes and layers.
	CatalogPath string
	// OutputDir receives per-run mask grids when set.
	OutputDir string
	// ResultsDBPath enables the SQLite result history when set.
	ResultsDBPath string

	Analysis analysis.Parameters

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeoutStr := sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s")
	mapboxTimeout, err2 := time.ParseDuration(mapboxTimeoutStr)
	if err2 != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	params, err := LoadParameters()
	if err != nil {
		return nil, err
	}

	mapboxCacheSize := parseMapboxCacheSize()

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "flood-analysis-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "flood-impact-results"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "flood-impact"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		CatalogPath:   sharedcfg.EnvOrDefault("CATALOG_PATH", "catalog.yaml"),
		OutputDir:     os.Getenv("OUTPUT_DIR"),
		ResultsDBPath: os.Getenv("RESULTS_DB_PATH"),
		Analysis:      params,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// LoadParameters builds the analysis parameters: defaults, then PARAMS_FILE,
// then individual environment overrides.
func LoadParameters() (analysis.Parameters, error) {
	p := analysis.DefaultParameters()
	if path := os.Getenv("PARAMS_FILE"); path != "" {
		var err error
		if p, err = analysis.LoadParametersFile(path, p); err != nil {
			return p, err
		}
	}

	floats := []struct {
		env string
		dst *float64
	}{
		{"FLOOD_RATIO_THRESHOLD", &p.FloodRatioThreshold},
		{"SPECKLE_RADIUS_METERS", &p.SpeckleRadiusMeters},
		{"PERMANENT_WATER_MONTHS", &p.PermanentWaterMonths},
		{"MAX_SLOPE_DEGREES", &p.MaxSlopeDegrees},
		{"ROI_RADIUS_METERS", &p.RegionRadiusMeters},
		{"AREA_SCALE_METERS", &p.AreaScaleMeters},
	}
	for _, f := range floats {
		if err := envFloat(f.env, f.dst); err != nil {
			return p, err
		}
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"MIN_CONNECTED_PIXELS", &p.MinConnectedPixels},
		{"CONNECTIVITY", &p.Connectivity},
		{"ANALYSIS_WORKERS", &p.Workers},
	}
	for _, i := range ints {
		if err := envInt(i.env, i.dst); err != nil {
			return p, err
		}
	}

	if err := envInt64("MAX_PIXELS", &p.MaxPixels); err != nil {
		return p, err
	}
	if err := envInt64("POPULATION_MAX_PIXELS", &p.PopulationMaxPixels); err != nil {
		return p, err
	}

	if s := os.Getenv("RESAMPLE_POLICY"); s != "" {
		policy, err := raster.ParseResamplePolicy(s)
		if err != nil {
			return p, fmt.Errorf("invalid RESAMPLE_POLICY: %w", err)
		}
		p.ResamplePolicy = policy
	}
	if s := os.Getenv("BUDGET_POLICY"); s != "" {
		policy, err := analysis.ParseBudgetPolicy(s)
		if err != nil {
			return p, fmt.Errorf("invalid BUDGET_POLICY: %w", err)
		}
		p.BudgetPolicy = policy
	}
	if s := os.Getenv("LANDCOVER_CLASSES"); s != "" {
		classes, err := ParseLandCoverClasses(s)
		if err != nil {
			return p, err
		}
		p.LandCoverClasses = classes
	}

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("analysis parameters: %w", err)
	}
	return p, nil
}

// ParseLandCoverClasses parses "name=code,name=code".
func ParseLandCoverClasses(s string) ([]analysis.LandCoverClass, error) {
	var out []analysis.LandCoverClass
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, code, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid LANDCOVER_CLASSES entry %q: want name=code", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil {
			return nil, fmt.Errorf("invalid LANDCOVER_CLASSES code for %q: %w", name, err)
		}
		out = append(out, analysis.LandCoverClass{Name: strings.TrimSpace(name), Code: n})
	}
	if len(out) == 0 {
		return nil, errors.New("LANDCOVER_CLASSES is empty")
	}
	return out, nil
}

func envFloat(key string, dst *float64) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func envInt(key string, dst *int) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func envInt64(key string, dst *int64) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
