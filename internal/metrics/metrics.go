// Package metrics declares the Prometheus collectors of the bookmark core.
// They are registered on the default registry and served on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quranfi_bookmark_mutations_total",
		Help: "Bookmark writes accepted by the store, by collection and operation",
	}, []string{"collection", "op"})

	publishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quranfi_sync_publish_failures_total",
		Help: "Change signals that could not be published",
	})

	signalsReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quranfi_sync_signals_received_total",
		Help: "Change signals received from other contexts",
	}, []string{"event"})

	reloadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quranfi_presentation_reload_duration_seconds",
		Help:    "Time to re-read the store into the presentation copy",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"status"})

	presentedBookmarks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quranfi_presentation_bookmarks",
		Help: "Bookmarks in the presentation copy after the last reload",
	}, []string{"collection"})
)

// Collections and operations used as label values.
const (
	Verses = "verses"
	Pages  = "pages"

	OpPut    = "put"
	OpDelete = "delete"
	OpImport = "import"
)

func Mutation(collection, op string, n int) {
	mutationsTotal.WithLabelValues(collection, op).Add(float64(n))
}

func PublishFailed() { publishFailuresTotal.Inc() }

func SignalReceived(event string) { signalsReceivedTotal.WithLabelValues(event).Inc() }

// Reload records one presentation reload. Counts are only updated on success.
func Reload(took time.Duration, err error, verses, pages int) {
	if err != nil {
		reloadDuration.WithLabelValues("error").Observe(took.Seconds())
		return
	}
	reloadDuration.WithLabelValues("ok").Observe(took.Seconds())
	presentedBookmarks.WithLabelValues(Verses).Set(float64(verses))
	presentedBookmarks.WithLabelValues(Pages).Set(float64(pages))
}
