package http

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/roadwatch/backend/internal/domain"
)

func toPoint(c domain.Coordinate) orb.Point {
	return orb.Point{c.Lng, c.Lat} // GeoJSON is [lon, lat]
}

// hazardsFeatureCollection exports every hazard as a Point feature.
func hazardsFeatureCollection(catalog *domain.Catalog) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	var bound orb.Bound
	for i, h := range catalog.Hazards() {
		p := toPoint(h.Location)
		if i == 0 {
			bound = p.Bound()
		} else {
			bound = bound.Extend(p)
		}

		feature := geojson.NewFeature(p)
		feature.ID = h.ID()
		feature.Properties["kind"] = string(h.Kind)
		feature.Properties["class"] = string(h.Class)
		if h.Kind == domain.KindZone {
			feature.Properties["severity"] = h.Severity
		}
		fc.Append(feature)
	}

	if len(fc.Features) > 0 {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc
}

// routeFeatureCollection exports the route as one LineString plus its endpoints.
func routeFeatureCollection(r domain.RouteSummary) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := make(orb.LineString, 0, len(r.Path))
	for _, c := range r.Path {
		line = append(line, toPoint(c))
	}

	if len(line) > 0 {
		route := geojson.NewFeature(line)
		route.Properties["distance_km"] = r.DistanceKm
		route.Properties["duration_min"] = r.DurationMin
		fc.Append(route)
		fc.BBox = geojson.NewBBox(line.Bound())
	}

	origin := geojson.NewFeature(toPoint(r.Origin))
	origin.Properties["role"] = "origin"
	fc.Append(origin)

	dest := geojson.NewFeature(toPoint(r.Destination))
	dest.Properties["role"] = "destination"
	fc.Append(dest)

	return fc
}
