package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketplaceMetrics records bidding, lifecycle and money movement counters.
// A nil receiver is a valid no-op so services can run without a registry.
type MarketplaceMetrics struct {
	bidsSubmitted     prometheus.Counter
	bidsAccepted      prometheus.Counter
	bidConflicts      *prometheus.CounterVec
	orderTransitions  *prometheus.CounterVec
	settlements       *prometheus.CounterVec
	settlementAmounts prometheus.Histogram
	ledgerPostings    *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewMarketplaceMetrics registers the marketplace metrics on the provided registerer.
func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	m := &MarketplaceMetrics{
		bidsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bids_submitted_total",
			Help: "Bids placed by writers.",
		}),
		bidsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bids_accepted_total",
			Help: "Bids accepted by customers or admins.",
		}),
		bidConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bid_conflicts_total",
			Help: "Bid operations refused because of the order or bid state.",
		}, []string{"operation"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status transitions by source and target status.",
		}, []string{"from", "to"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settlement attempts by outcome.",
		}, []string{"outcome"}),
		settlementAmounts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "settlement_amount_cents",
			Help:    "Order totals released by settlement, in minor units.",
			Buckets: prometheus.ExponentialBuckets(500, 2, 12),
		}),
		ledgerPostings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_postings_total",
			Help: "Ledger entries appended by type and direction.",
		}, []string{"type", "direction"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served by route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.bidsSubmitted,
		m.bidsAccepted,
		m.bidConflicts,
		m.orderTransitions,
		m.settlements,
		m.settlementAmounts,
		m.ledgerPostings,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *MarketplaceMetrics) IncBidSubmitted() {
	if m == nil || m.bidsSubmitted == nil {
		return
	}
	m.bidsSubmitted.Inc()
}

func (m *MarketplaceMetrics) IncBidAccepted() {
	if m == nil || m.bidsAccepted == nil {
		return
	}
	m.bidsAccepted.Inc()
}

func (m *MarketplaceMetrics) IncBidConflict(operation string) {
	if m == nil || m.bidConflicts == nil {
		return
	}
	m.bidConflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

func (m *MarketplaceMetrics) IncOrderTransition(from, to string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// ObserveSettlement records the outcome and, for successful runs, the settled total.
func (m *MarketplaceMetrics) ObserveSettlement(outcome string, totalCents int64) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
	if outcome == "settled" && m.settlementAmounts != nil {
		m.settlementAmounts.Observe(float64(totalCents))
	}
}

func (m *MarketplaceMetrics) IncLedgerPosting(entryType, direction string) {
	if m == nil || m.ledgerPostings == nil {
		return
	}
	m.ledgerPostings.WithLabelValues(normalizeLabel(entryType), normalizeLabel(direction)).Inc()
}

func (m *MarketplaceMetrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	route = normalizeLabel(route)
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
