package metrics

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStoreMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStoreMetrics(reg)

	metrics.ObservePurchase(PurchaseOutcomeSuccess, 3)
	metrics.ObservePurchase(PurchaseOutcomeInsufficientFunds, 2)
	metrics.ObserveDeposit(2371)
	metrics.ObserveStockChange(StockChangeInPlace)
	metrics.ObserveDuration("purchase", 120*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "purchases_total", "outcome", PurchaseOutcomeSuccess); err != nil {
		t.Fatalf("fetch purchases: %v", err)
	} else if got != 1 {
		t.Fatalf("expected one successful purchase, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "purchases_total", "outcome", PurchaseOutcomeInsufficientFunds); err != nil {
		t.Fatalf("fetch rejected purchases: %v", err)
	} else if got != 1 {
		t.Fatalf("expected one rejected purchase, got %f", got)
	}
	if got := fetchPlainCounter(t, mfs, "purchased_units_total"); got != 3 {
		t.Fatalf("rejected purchases must not count units, got %f", got)
	}
	if got := fetchPlainCounter(t, mfs, "deposited_cents_total"); got != 2371 {
		t.Fatalf("expected 2371 deposited cents, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "stock_changes_total", "kind", StockChangeInPlace); err != nil || got != 1 {
		t.Fatalf("expected one in-place stock change, got %f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "store_operation_duration_seconds", "operation", "purchase"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	metrics := NewStoreMetrics(nil)
	metrics.ObservePurchase(PurchaseOutcomeSuccess, 1)
	metrics.ObserveDeposit(1)

	var nilMetrics *StoreMetrics
	nilMetrics.ObserveStockChange(StockChangeNewVersion)
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe(http.MethodPost, "/api/v1/products/{barcode}/purchase", http.StatusOK, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/api/v1/products/{barcode}/purchase"); err != nil || got <= 0 {
		t.Fatalf("expected observed latency, got %f err=%v", got, err)
	}
}

func fetchPlainCounter(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil || len(mf.GetMetric()) == 0 {
		t.Fatalf("metric %q not found", name)
	}
	return mf.GetMetric()[0].GetCounter().GetValue()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
