package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestEngineMetricsExportsCountersAndHistograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewEngineMetrics(reg)
	metrics.ObservePricing(OutcomeSuccess, 250*time.Millisecond)
	metrics.ObservePricing(OutcomeStale, 0)
	metrics.ObservePricing(OutcomeStale, 0)
	metrics.IncDebounceReset()
	metrics.ObserveOrder(OutcomeSuccess, "enveloped", 100*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "pricing_results_total", map[string]string{"outcome": OutcomeStale}); err != nil {
		t.Fatalf("fetch stale: %v", err)
	} else if got != 2 {
		t.Fatalf("expected stale=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "order_submissions_total", map[string]string{"outcome": OutcomeSuccess, "shape": "enveloped"}); err != nil {
		t.Fatalf("fetch orders: %v", err)
	} else if got != 1 {
		t.Fatalf("expected orders=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "pricing_debounce_resets_total", nil); err != nil {
		t.Fatalf("fetch resets: %v", err)
	} else if got != 1 {
		t.Fatalf("expected resets=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "pricing_request_duration_seconds", map[string]string{"outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilEngineMetricsIsNoop(t *testing.T) {
	var metrics *EngineMetrics
	metrics.ObservePricing(OutcomeFailure, time.Second)
	metrics.IncDebounceReset()
	metrics.ObserveOrder(OutcomeFailure, "", time.Second)

	NewEngineMetrics(nil).ObservePricing(OutcomeSuccess, time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if value, ok := want[pair.GetName()]; ok {
			if pair.GetValue() != value {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}
