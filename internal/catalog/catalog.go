// Package catalog serves radar scenes and auxiliary layers described by a YAML
// file on the local filesystem. Rasters are ESRI ASCII grids (.asc) or single
// band TIFFs (.tif, .tiff) with georeferencing carried in the catalog entry.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/analysis"
	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
	"gopkg.in/yaml.v2"
)

// Catalog is the on-disk index. Relative paths resolve against the catalog file.
type Catalog struct {
	// CRS applies to every raster that does not name its own.
	CRS     string                 `yaml:"crs"`
	Entries []SceneEntry           `yaml:"scenes"`
	Layers  map[string]RasterEntry `yaml:"layers"`

	dir string
}

// RasterEntry locates one raster file.
type RasterEntry struct {
	Path string `yaml:"path"`
	CRS  string `yaml:"crs,omitempty"`
	// TIFF carries the georeferencing of TIFF files.
	TIFF *raster.TIFFGeoref `yaml:"tiff,omitempty"`
}

// SceneEntry is one acquisition.
type SceneEntry struct {
	ID          string               `yaml:"id"`
	Acquired    time.Time            `yaml:"acquired"`
	Metadata    domain.SceneMetadata `yaml:"metadata"`
	RasterEntry `yaml:",inline"`
}

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	c.dir = filepath.Dir(path)
	if c.CRS == "" {
		c.CRS = raster.CRSGeographic
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

// Save writes c as YAML to path.
func Save(path string, c *Catalog) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool, len(c.Entries))
	for _, s := range c.Entries {
		if s.ID == "" || s.Path == "" || s.Acquired.IsZero() {
			return fmt.Errorf("scene %q: id, path and acquired are required", s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate scene %q", s.ID)
		}
		seen[s.ID] = true
	}
	for name, l := range c.Layers {
		switch analysis.Layer(name) {
		case analysis.LayerPermanentWater, analysis.LayerElevation, analysis.LayerSlope,
			analysis.LayerLandCover, analysis.LayerPopulation:
		default:
			return fmt.Errorf("unknown layer %q", name)
		}
		if l.Path == "" {
			return fmt.Errorf("layer %q: path is required", name)
		}
	}
	return nil
}

// Scenes loads the scenes acquired within the query period. Metadata and
// footprint filtering is left to the mosaic builder.
func (c *Catalog) Scenes(ctx context.Context, q analysis.SceneQuery) ([]analysis.Scene, error) {
	var out []analysis.Scene
	for _, e := range c.Entries {
		if !q.Period.Contains(e.Acquired) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := c.read(e.RasterEntry)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", e.ID, err)
		}
		out = append(out, analysis.Scene{ID: e.ID, Acquired: e.Acquired, Metadata: e.Metadata, Raster: r})
	}
	return out, nil
}

// Layer loads an auxiliary raster. Layers not in the catalog return
// analysis.ErrLayerNotFound.
func (c *Catalog) Layer(_ context.Context, name analysis.Layer, _ domain.Region) (*raster.Raster, error) {
	e, ok := c.Layers[string(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, analysis.ErrLayerNotFound)
	}
	r, err := c.read(e)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", name, err)
	}
	return r, nil
}

func (c *Catalog) read(e RasterEntry) (*raster.Raster, error) {
	path := e.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	crs := e.CRS
	if crs == "" {
		crs = c.CRS
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc":
		return raster.ReadASCIIGrid(f, crs)
	case ".tif", ".tiff":
		if e.TIFF == nil {
			return nil, fmt.Errorf("%s: tiff georeferencing is required", path)
		}
		ref := *e.TIFF
		if ref.CRS == "" {
			ref.CRS = crs
		}
		return raster.ReadTIFF(f, ref)
	default:
		return nil, fmt.Errorf("%s: unsupported raster format", path)
	}
}
