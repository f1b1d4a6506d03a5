package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// ResolveRegion turns a request into a region of interest. Requests with
// coordinates are used as-is and only reverse geocoded for a display name
// (failures degrade to an empty name). Requests with a place name are forward
// geocoded; an unknown place is a validation error so the caller can re-enter
// the location. A zero request radius falls back to defaultRadius.
func ResolveRegion(ctx context.Context, req AnalysisRequest, geocoder Geocoder, defaultRadius float64, logger *slog.Logger) (Region, string, error) {
	radius := req.RadiusMeters
	if radius == 0 {
		radius = defaultRadius
	}

	if req.HasCoordinates() {
		region, err := NewRegion(*req.Lat, *req.Lon, radius)
		if err != nil {
			return Region{}, "", err
		}
		if geocoder == nil {
			return region, req.Location, nil
		}
		result, err := geocoder.ReverseGeocode(ctx, *req.Lat, *req.Lon)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"analysis_id", req.ID,
				"lat", *req.Lat,
				"lon", *req.Lon,
				"error", err,
			)
			return region, req.Location, nil
		}
		if result.FormattedAddress != "" {
			return region, result.FormattedAddress, nil
		}
		return region, req.Location, nil
	}

	if geocoder == nil {
		return Region{}, "", &ValidationError{Field: "location", Reason: "cannot be resolved without coordinates: geocoding disabled"}
	}

	result, err := geocoder.ForwardGeocode(ctx, req.Location)
	if err != nil {
		return Region{}, "", fmt.Errorf("geocode %q: %w", req.Location, err)
	}
	if result.Lat == 0 && result.Lon == 0 && result.FormattedAddress == "" {
		return Region{}, "", &ValidationError{Field: "location", Reason: fmt.Sprintf("%q not found", req.Location)}
	}

	region, err := NewRegion(result.Lat, result.Lon, radius)
	if err != nil {
		return Region{}, "", err
	}
	name := result.FormattedAddress
	if name == "" {
		name = req.Location
	}
	return region, name, nil
}
