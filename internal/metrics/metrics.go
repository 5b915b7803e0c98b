package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResolveTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyzones_resolve_total",
		Help: "Total number of resolved location fixes by result (match or away)",
	}, []string{"result"})
	ResolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "polyzones_resolve_duration_seconds",
		Help:    "Time spent resolving a single fix",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	})
	CatalogBuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyzones_catalog_builds_total",
		Help: "Catalog builds by tracker and status",
	}, []string{"tracker", "status"})
	CatalogZones = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "polyzones_catalog_zones",
		Help: "Number of zones in the active catalog of a tracker",
	}, []string{"tracker"})
	ZoneMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyzones_zone_mutations_total",
		Help: "Zone file mutations by operation and status",
	}, []string{"op", "status"})
	LocationUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyzones_location_updates_total",
		Help: "Location updates received, by whether they changed a tracker",
	}, []string{"triggered"})
)

func init() {
	prometheus.MustRegister(ResolveTotal)
	prometheus.MustRegister(ResolveDuration)
	prometheus.MustRegister(CatalogBuildsTotal)
	prometheus.MustRegister(CatalogZones)
	prometheus.MustRegister(ZoneMutationsTotal)
	prometheus.MustRegister(LocationUpdatesTotal)
}

// Status turns an error into the status label value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
