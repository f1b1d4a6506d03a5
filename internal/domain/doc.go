// Package domain models flood impact analyses: the region being analysed,
// the radar scenes that feed it, the request that starts a run and the
// result it produces.
//
// # Region of Interest
//
// A region is a circle around a geocoded point:
//
//	center (lat, lon) + radius in metres  →  64-vertex polygon on the sphere
//
// The polygon is built with geodesic offsets from the centre, so its area is
// close to πr² for radii well below the Earth's radius. Containment tests run
// in lon/lat space, which is accurate at the tens-of-kilometres scale the
// service is used at.
//
// # Scenes
//
// Scenes are single-band radar backscatter rasters. The metadata fields mirror
// the Sentinel-1 GRD product properties used to select comparable
// acquisitions:
//
//	InstrumentMode  "IW" (interferometric wide swath), "EW", "SM"
//	Polarisations   ["VV", "VH"]; selection uses list-contains semantics
//	OrbitPass       "ASCENDING" or "DESCENDING"
//	Resolution      nominal ground resolution in metres, e.g. 10
//	Units           "linear" (power) or "db"; dB is converted before ratios
//
// # Periods
//
// A period is a half-open acquisition window [Start, End). Before and after
// periods are independent; they may overlap, although that rarely makes sense.
//
// # Errors
//
// Structural and configuration problems are typed errors that match a
// sentinel through errors.Is (see errors.go). Nodata is never an error: it is
// carried as an absent cell and simply drops out of every reduction.
package domain
