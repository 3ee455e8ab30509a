package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
)

var (
	PositionUpdates     atomic.Int64
	SimulatedUpdates    atomic.Int64
	LocationFallbacks   atomic.Int64
	CatalogLoads        atomic.Int64
	CatalogFailures     atomic.Int64
	AlertsEmitted       atomic.Int64
	AlertsSuppressed    atomic.Int64
	AlertPublishErrors  atomic.Int64
	RouteRequests       atomic.Int64
	RouteFailures       atomic.Int64
	RouteStaleDiscarded atomic.Int64
	EventDrops          atomic.Int64
)

// Write renders all counters in the Prometheus text format.
func Write(w io.Writer) {
	fmt.Fprintf(w, "navigator_position_updates_total %d\n", PositionUpdates.Load())
	fmt.Fprintf(w, "navigator_simulated_updates_total %d\n", SimulatedUpdates.Load())
	fmt.Fprintf(w, "navigator_location_fallbacks_total %d\n", LocationFallbacks.Load())
	fmt.Fprintf(w, "navigator_catalog_loads_total %d\n", CatalogLoads.Load())
	fmt.Fprintf(w, "navigator_catalog_failures_total %d\n", CatalogFailures.Load())
	fmt.Fprintf(w, "navigator_alerts_emitted_total %d\n", AlertsEmitted.Load())
	fmt.Fprintf(w, "navigator_alerts_suppressed_total %d\n", AlertsSuppressed.Load())
	fmt.Fprintf(w, "navigator_alert_publish_errors_total %d\n", AlertPublishErrors.Load())
	fmt.Fprintf(w, "navigator_route_requests_total %d\n", RouteRequests.Load())
	fmt.Fprintf(w, "navigator_route_failures_total %d\n", RouteFailures.Load())
	fmt.Fprintf(w, "navigator_route_stale_discarded_total %d\n", RouteStaleDiscarded.Load())
	fmt.Fprintf(w, "navigator_event_drops_total %d\n", EventDrops.Load())
}
