package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheLookups counts entity cache hits and misses per kind
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "lumi_cache_lookups_total", Help: "Entity cache lookups"},
		[]string{"kind", "result"},
	)

	// InvalidationsSent counts cache invalidations broadcasted by this process
	InvalidationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "lumi_invalidations_sent_total", Help: "Cache invalidations broadcasted"},
		[]string{"transport"},
	)

	// InvalidationsReceived counts invalidations applied on behalf of other processes
	InvalidationsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "lumi_invalidations_received_total", Help: "Cache invalidations received"},
		[]string{"transport"},
	)

	// InvalidationAckTimeouts counts broadcasts not acknowledged by every process in time
	InvalidationAckTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "lumi_invalidation_ack_timeouts_total", Help: "Invalidations missing acknowledgements"},
		[]string{"transport"},
	)

	// StoreDuration tracks document store round trips
	StoreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lumi_store_duration_seconds",
			Help:    "Document store operation duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation"},
	)

	RemindersDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "lumi_reminders_delivered_total", Help: "Reminders delivered to users"},
	)

	RemindersUnreachable = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "lumi_reminders_unreachable_total", Help: "Reminders consumed without reaching the user"},
	)

	RemindersRearmed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "lumi_reminders_rearmed_total", Help: "Recursive reminders scheduled again"},
	)

	ReminderPollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lumi_reminder_poll_duration_seconds",
			Help:    "Duration of one reminder poll cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReminderPollErrors = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "lumi_reminder_poll_errors_total", Help: "Failed reminder poll cycles"},
	)

	// Uptime stores the timestamp of the bot's boot
	Uptime = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "lumi_boot_timestamp_seconds", Help: "Unix time the process booted"},
	)

	registerOnce sync.Once
)

func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			CacheLookups,
			InvalidationsSent,
			InvalidationsReceived,
			InvalidationAckTimeouts,
			StoreDuration,
			RemindersDelivered,
			RemindersUnreachable,
			RemindersRearmed,
			ReminderPollDuration,
			ReminderPollErrors,
			Uptime,
		)
	})
}

// Init registers all collectors and serves them on address (host:port).
// The returned channel receives the error the listener stopped with.
func Init(address string) <-chan error {
	MustRegister()
	Uptime.Set(float64(time.Now().Unix()))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	errs := make(chan error, 1)
	go func() {
		errs <- http.ListenAndServe(address, mux)
	}()
	return errs
}

// ObserveStore records the duration of a document store operation started at start
func ObserveStore(collection, operation string, start time.Time) {
	StoreDuration.WithLabelValues(collection, operation).Observe(time.Since(start).Seconds())
}
