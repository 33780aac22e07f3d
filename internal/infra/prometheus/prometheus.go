package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sifan077/curto/internal/app/telemetry"
)

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Sink turns telemetry events into counters.
type Sink struct {
	timeouts      prometheus.Counter
	takenIDs      prometheus.Counter
	saveFailed    prometheus.Counter
	lookupFailed  prometheus.Counter
	listFailed    prometheus.Counter
	incrFailed    prometheus.Counter
	created       prometheus.Counter
	redirected    prometheus.Counter
	unknownFailed prometheus.Counter
}

// NewSink registers the link counters on reg under namespace.
func NewSink(reg prometheus.Registerer, namespace string) *Sink {
	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}

	return &Sink{
		timeouts:      counter("db_connection_timeout_total", "Store calls abandoned after the timeout elapsed."),
		takenIDs:      counter("db_user_provided_taken_id_total", "Inserts rejected because the id was already stored."),
		saveFailed:    counter("db_saving_link_impossible_total", "Inserts that failed in the store."),
		lookupFailed:  counter("db_failed_to_lookup_link_total", "Lookups that failed in the store."),
		listFailed:    counter("db_failed_to_list_links_total", "Listings that failed in the store."),
		incrFailed:    counter("db_failed_to_increment_link_total", "Redirect count increments that failed in the store."),
		unknownFailed: counter("db_failed_unknown_op_total", "Store failures for an unrecognised operation."),
		created:       counter("links_created_total", "Links created."),
		redirected:    counter("links_redirected_total", "Redirects served."),
	}
}

// Record implements telemetry.Sink.
func (s *Sink) Record(e telemetry.Event) {
	switch e.Kind {
	case telemetry.LinkCreated:
		s.created.Inc()
	case telemetry.LinkRedirected:
		s.redirected.Inc()
	case telemetry.StoreTimeout:
		s.timeouts.Inc()
	case telemetry.DuplicateID:
		s.takenIDs.Inc()
	case telemetry.StoreFailure:
		switch e.Op {
		case telemetry.OpInsert:
			s.saveFailed.Inc()
		case telemetry.OpFind:
			s.lookupFailed.Inc()
		case telemetry.OpList:
			s.listFailed.Inc()
		case telemetry.OpIncrement:
			s.incrFailed.Inc()
		default:
			s.unknownFailed.Inc()
		}
	}
}
