package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Backscatter units carried in scene metadata.
const (
	UnitsLinear = "linear"
	UnitsDB     = "db"
)

// Result statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Period is a half-open acquisition window [Start, End).
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Validate checks that the window is non-empty.
func (p Period) Validate(name string) error {
	if p.Start.IsZero() || p.End.IsZero() {
		return &ValidationError{Field: name, Reason: "start and end are required"}
	}
	if !p.End.After(p.Start) {
		return &ValidationError{Field: name, Reason: "end must be after start"}
	}
	return nil
}

// SceneMetadata holds the sensor properties used as inclusion predicates.
type SceneMetadata struct {
	Platform         string   `json:"platform,omitempty" yaml:"platform"`
	InstrumentMode   string   `json:"instrument_mode" yaml:"instrument_mode"`
	Polarisations    []string `json:"polarisations" yaml:"polarisations"`
	OrbitPass        string   `json:"orbit_pass" yaml:"orbit_pass"`
	ResolutionMeters float64  `json:"resolution_meters" yaml:"resolution_meters"`
	Units            string   `json:"units,omitempty" yaml:"units"`
}

// HasPolarisation reports whether the scene carries the polarisation (case-insensitive).
func (m SceneMetadata) HasPolarisation(p string) bool {
	for _, have := range m.Polarisations {
		if strings.EqualFold(have, p) {
			return true
		}
	}
	return false
}

// AnalysisRequest starts one flood impact run. Either Location or both Lat and
// Lon must be set; when only Location is set it is geocoded.
type AnalysisRequest struct {
	ID           string   `json:"id,omitempty"`
	Location     string   `json:"location,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	RadiusMeters float64  `json:"radius_meters,omitempty"`
	Before       Period   `json:"before"`
	After        Period   `json:"after"`
}

// HasCoordinates reports whether the request carries an explicit centre.
func (r AnalysisRequest) HasCoordinates() bool {
	return r.Lat != nil && r.Lon != nil
}

// Validate runs the input checks that precede the core pipeline.
func (r AnalysisRequest) Validate() error {
	if !r.HasCoordinates() && strings.TrimSpace(r.Location) == "" {
		return &ValidationError{Field: "location", Reason: "location or lat/lon is required"}
	}
	if (r.Lat == nil) != (r.Lon == nil) {
		return &ValidationError{Field: "lat/lon", Reason: "both coordinates must be set together"}
	}
	if r.RadiusMeters < 0 {
		return &InvalidThresholdError{Name: "radius_meters", Value: r.RadiusMeters, Reason: "must not be negative"}
	}
	if err := r.Before.Validate("before"); err != nil {
		return err
	}
	return r.After.Validate("after")
}

// ParseAnalysisRequest decodes a request message.
func ParseAnalysisRequest(raw RawEvent) (AnalysisRequest, error) {
	var req AnalysisRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return AnalysisRequest{}, err
	}
	if req.ID == "" && len(raw.Key) > 0 {
		req.ID = string(raw.Key)
	}
	return req, nil
}

// ClassImpact is the exposure of one land-cover class.
type ClassImpact struct {
	Name             string  `json:"name"`
	Code             int     `json:"code"`
	AffectedHectares float64 `json:"affected_hectares"`
	TotalHectares    float64 `json:"total_hectares"`
}

// StageCount is the number of flagged cells after a pipeline stage.
type StageCount struct {
	Name  string `json:"name"`
	Cells int    `json:"cells"`
}

// AnalysisResult is the outcome of one run. Failed runs carry ErrorKind and
// Error and leave the figures at zero.
type AnalysisResult struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	Request       AnalysisRequest `json:"request"`
	PlaceName     string          `json:"place_name,omitempty"`
	Region        Region          `json:"region"`
	RegionGeoJSON json.RawMessage `json:"region_geojson,omitempty"`

	FloodedHectares          float64       `json:"flooded_hectares"`
	CroplandAffectedHectares float64       `json:"cropland_affected_hectares"`
	BuiltupAffectedHectares  float64       `json:"builtup_affected_hectares"`
	PeopleExposed            float64       `json:"people_exposed"`
	RegionHectares           float64       `json:"region_hectares"`
	PopulationTotal          float64       `json:"population_total"`
	Classes                  []ClassImpact `json:"classes,omitempty"`

	Stages       []StageCount      `json:"stages,omitempty"`
	BeforeScenes []string          `json:"before_scenes,omitempty"`
	AfterScenes  []string          `json:"after_scenes,omitempty"`
	MaskFiles    map[string]string `json:"mask_files,omitempty"`

	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Percentages are presentation figures derived from a result.
type Percentages struct {
	Flooded float64            `json:"flooded"`
	Classes map[string]float64 `json:"classes"`
}

// Percentages derives the share of the region that flooded and, per class,
// the share of the class area affected. Zero denominators yield 0.
func (r AnalysisResult) Percentages() Percentages {
	p := Percentages{Classes: make(map[string]float64, len(r.Classes))}
	if r.RegionHectares > 0 {
		p.Flooded = r.FloodedHectares / r.RegionHectares * 100
	}
	for _, c := range r.Classes {
		if c.TotalHectares > 0 {
			p.Classes[c.Name] = c.AffectedHectares / c.TotalHectares * 100
		} else {
			p.Classes[c.Name] = 0
		}
	}
	return p
}

// Fail marks the result as failed with the given error.
func (r *AnalysisResult) Fail(err error) {
	r.Status = StatusFailed
	r.ErrorKind = ErrorKind(err)
	r.Error = err.Error()
}
