package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	PurchaseOutcomeSuccess           = "success"
	PurchaseOutcomeInsufficientFunds = "insufficient_funds"
	PurchaseOutcomeNotFound          = "not_found"
	PurchaseOutcomeError             = "error"

	StockChangeInPlace    = "in_place"
	StockChangeNewVersion = "new_version"
)

// StoreMetrics records purchase, deposit and stock mutation activity.
type StoreMetrics struct {
	purchases      *prometheus.CounterVec
	purchasedUnits prometheus.Counter
	deposits       prometheus.Counter
	depositedCents prometheus.Counter
	stockChanges   *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// NewStoreMetrics registers the store metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchases_total",
		Help: "Purchase attempts by outcome.",
	}, []string{"outcome"})
	purchasedUnits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "purchased_units_total",
		Help: "Units sold across all purchases.",
	})
	deposits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deposits_total",
		Help: "Recorded deposits.",
	})
	depositedCents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deposited_cents_total",
		Help: "Sum of deposited amounts in cents.",
	})
	stockChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_changes_total",
		Help: "Stock and price changes by kind.",
	}, []string{"kind"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_operation_duration_seconds",
		Help:    "Duration of transactional store operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(purchases, purchasedUnits, deposits, depositedCents, stockChanges, duration)
	return &StoreMetrics{
		purchases:      purchases,
		purchasedUnits: purchasedUnits,
		deposits:       deposits,
		depositedCents: depositedCents,
		stockChanges:   stockChanges,
		duration:       duration,
	}
}

// ObservePurchase counts a purchase attempt and, on success, the units sold.
func (m *StoreMetrics) ObservePurchase(outcome string, units int) {
	if m == nil || m.purchases == nil {
		return
	}
	m.purchases.WithLabelValues(normalizeLabel(outcome)).Inc()
	if outcome == PurchaseOutcomeSuccess && units > 0 {
		m.purchasedUnits.Add(float64(units))
	}
}

// ObserveDeposit counts a deposit. Negative amounts only count the event.
func (m *StoreMetrics) ObserveDeposit(amount int64) {
	if m == nil || m.deposits == nil {
		return
	}
	m.deposits.Inc()
	if amount > 0 {
		m.depositedCents.Add(float64(amount))
	}
}

// ObserveStockChange counts an applied stock change.
func (m *StoreMetrics) ObserveStockChange(kind string) {
	if m == nil || m.stockChanges == nil {
		return
	}
	m.stockChanges.WithLabelValues(normalizeLabel(kind)).Inc()
}

// ObserveDuration records how long the named operation took.
func (m *StoreMetrics) ObserveDuration(operation string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
