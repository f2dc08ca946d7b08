package metricspush

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts quote funnel events. Services call the package-level
// functions; a noop implementation is in place until the fx module
// installs the real one, so disabled push costs nothing.
type Recorder interface {
	RecordQuoteCreated(companyID, source string)
	RecordQuoteSent(companyID string)
	RecordQuoteAccepted(companyID, via string)
	RecordQuoteDeclined(companyID string)
	RecordPublicView(companyID string)
	RecordSelectionUpdate(companyID string)
}

type metrics struct {
	quotesCreated    *prometheus.CounterVec
	quotesSent       *prometheus.CounterVec
	quotesAccepted   *prometheus.CounterVec
	quotesDeclined   *prometheus.CounterVec
	publicViews      *prometheus.CounterVec
	selectionUpdates *prometheus.CounterVec
	quotesByStatus   *prometheus.GaugeVec
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		quotesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offert_quotes_created_total",
			Help: "Quotes created, by company and source.",
		}, []string{"company", "source"}),
		quotesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offert_quotes_sent_total",
			Help: "Quotes sent to customers, by company.",
		}, []string{"company"}),
		quotesAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offert_quotes_accepted_total",
			Help: "Quotes accepted on the public page, by company and acceptance path.",
		}, []string{"company", "via"}),
		quotesDeclined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offert_quotes_declined_total",
			Help: "Quotes declined on the public page, by company.",
		}, []string{"company"}),
		publicViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offert_public_views_total",
			Help: "Public quote page loads, by company.",
		}, []string{"company"}),
		selectionUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offert_selection_updates_total",
			Help: "Customer option selections saved, by company.",
		}, []string{"company"}),
		quotesByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "offert_quotes_by_status",
			Help: "Current quote count per status, refreshed before each push.",
		}, []string{"status"}),
	}
	registry.MustRegister(
		m.quotesCreated,
		m.quotesSent,
		m.quotesAccepted,
		m.quotesDeclined,
		m.publicViews,
		m.selectionUpdates,
		m.quotesByStatus,
	)
	return m
}

type recorder struct {
	metrics *metrics
}

type noopRecorder struct{}

func (noopRecorder) RecordQuoteCreated(string, string)  {}
func (noopRecorder) RecordQuoteSent(string)             {}
func (noopRecorder) RecordQuoteAccepted(string, string) {}
func (noopRecorder) RecordQuoteDeclined(string)         {}
func (noopRecorder) RecordPublicView(string)            {}
func (noopRecorder) RecordSelectionUpdate(string)       {}

var (
	activeRecorder Recorder = noopRecorder{}
	recorderMu     sync.RWMutex
)

func setRecorder(rec Recorder) {
	if rec == nil {
		return
	}
	recorderMu.Lock()
	activeRecorder = rec
	recorderMu.Unlock()
}

func current() Recorder {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	return rec
}

func RecordQuoteCreated(companyID, source string) { current().RecordQuoteCreated(companyID, source) }
func RecordQuoteSent(companyID string)            { current().RecordQuoteSent(companyID) }
func RecordQuoteAccepted(companyID, via string)   { current().RecordQuoteAccepted(companyID, via) }
func RecordQuoteDeclined(companyID string)        { current().RecordQuoteDeclined(companyID) }
func RecordPublicView(companyID string)           { current().RecordPublicView(companyID) }
func RecordSelectionUpdate(companyID string)      { current().RecordSelectionUpdate(companyID) }

func (r *recorder) RecordQuoteCreated(companyID, source string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.quotesCreated.WithLabelValues(normalizeLabel(companyID), normalizeLabel(source)).Inc()
}

func (r *recorder) RecordQuoteSent(companyID string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.quotesSent.WithLabelValues(normalizeLabel(companyID)).Inc()
}

func (r *recorder) RecordQuoteAccepted(companyID, via string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.quotesAccepted.WithLabelValues(normalizeLabel(companyID), normalizeLabel(via)).Inc()
}

func (r *recorder) RecordQuoteDeclined(companyID string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.quotesDeclined.WithLabelValues(normalizeLabel(companyID)).Inc()
}

func (r *recorder) RecordPublicView(companyID string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.publicViews.WithLabelValues(normalizeLabel(companyID)).Inc()
}

func (r *recorder) RecordSelectionUpdate(companyID string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.selectionUpdates.WithLabelValues(normalizeLabel(companyID)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
