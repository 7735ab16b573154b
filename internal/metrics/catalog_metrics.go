package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics counts product lifecycle and approval workflow transitions.
// A nil *CatalogMetrics is valid and records nothing.
type CatalogMetrics struct {
	productsCreated   *prometheus.CounterVec
	productsUpdated   prometheus.Counter
	productsDeleted   prometheus.Counter
	approvalsQueued   *prometheus.CounterVec
	decisions         *prometheus.CounterVec
	pendingConflicts  prometheus.Counter
	ceilingRejections prometheus.Counter
}

// NewCatalogMetrics registers the collectors with the default registerer.
func NewCatalogMetrics() *CatalogMetrics {
	return NewCatalogMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewCatalogMetricsWithRegisterer(registerer prometheus.Registerer) *CatalogMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CatalogMetrics{
		productsCreated: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "catalog_products_created_total",
			Help: "Total number of products created, by initial status",
		}, []string{"status"}),
		productsUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "catalog_products_updated_total",
			Help: "Total number of successful product updates",
		}),
		productsDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "catalog_products_deleted_total",
			Help: "Total number of products deleted",
		}),
		approvalsQueued: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "catalog_approval_requests_created_total",
			Help: "Total number of approval requests queued, by reason",
		}, []string{"reason"}),
		decisions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "catalog_approval_decisions_total",
			Help: "Total number of approval decisions, by outcome and result",
		}, []string{"outcome", "result"}),
		pendingConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "catalog_pending_conflicts_total",
			Help: "Total number of updates refused because approval was outstanding",
		}),
		ceilingRejections: registerCounter(registerer, prometheus.CounterOpts{
			Name: "catalog_price_ceiling_rejections_total",
			Help: "Total number of creations refused for exceeding the price ceiling",
		}),
	}
}

func (m *CatalogMetrics) RecordProductCreated(status string) {
	if m == nil {
		return
	}
	m.productsCreated.WithLabelValues(status).Inc()
}

func (m *CatalogMetrics) RecordProductUpdated() {
	if m == nil {
		return
	}
	m.productsUpdated.Inc()
}

func (m *CatalogMetrics) RecordProductDeleted() {
	if m == nil {
		return
	}
	m.productsDeleted.Inc()
}

func (m *CatalogMetrics) RecordApprovalQueued(reason string) {
	if m == nil {
		return
	}
	m.approvalsQueued.WithLabelValues(reason).Inc()
}

// RecordDecision counts an approve/reject attempt; result is "success" or "failure".
func (m *CatalogMetrics) RecordDecision(outcome, result string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome, result).Inc()
}

func (m *CatalogMetrics) RecordPendingConflict() {
	if m == nil {
		return
	}
	m.pendingConflicts.Inc()
}

func (m *CatalogMetrics) RecordCeilingRejection() {
	if m == nil {
		return
	}
	m.ceilingRejections.Inc()
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}
