package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestLicensingMetricsExportCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLicensingMetrics(reg)

	m.IncIssued()
	m.IncWebhookEvent("processed")
	m.IncWebhookEvent("")
	m.IncActivation()
	m.IncActivationDenied("quota")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "webhook_events_total", "outcome", "processed"); err != nil {
		t.Fatalf("fetch webhook outcome: %v", err)
	} else if got != 1 {
		t.Fatalf("expected processed=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "webhook_events_total", "outcome", "unknown"); err != nil {
		t.Fatalf("fetch unknown outcome: %v", err)
	} else if got != 1 {
		t.Fatalf("expected unknown=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "activation_denials_total", "reason", "quota"); err != nil {
		t.Fatalf("fetch denial reason: %v", err)
	} else if got != 1 {
		t.Fatalf("expected quota=1, got %f", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *LicensingMetrics
	m.IncIssued()
	m.IncWebhookEvent("processed")
	m.IncActivation()
	m.IncActivationDenied("quota")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, labelName, labelValue string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == labelName && label.GetValue() == labelValue {
					return metric.GetCounter().GetValue(), nil
				}
			}
		}
	}
	return 0, fmt.Errorf("counter %s{%s=%q} not found", name, labelName, labelValue)
}
