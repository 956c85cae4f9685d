package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObservers(t *testing.T) {
	m := New()

	m.ObserveCatalogCall("channels.list", "ok", 10*time.Millisecond)
	m.ObserveCatalogCall("channels.list", "ok", 20*time.Millisecond)
	m.ObserveCatalogCall("search.list", "quota_exceeded", time.Millisecond)
	m.ObserveCatalogRetry("playlistItems.list")
	m.ObserveChannelOutcome("success")
	m.ObserveChannelOutcome("error")
	m.ObservePublish("publish", "done", 2*time.Second)

	if got := testutil.ToFloat64(m.CatalogCalls.WithLabelValues("channels.list", "ok")); got != 2 {
		t.Errorf("catalog calls ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CatalogCalls.WithLabelValues("search.list", "quota_exceeded")); got != 1 {
		t.Errorf("catalog calls quota = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CatalogRetries.WithLabelValues("playlistItems.list")); got != 1 {
		t.Errorf("retries = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ChannelOutcomes.WithLabelValues("error")); got != 1 {
		t.Errorf("channel errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PublishRuns.WithLabelValues("publish", "done")); got != 1 {
		t.Errorf("publish runs = %v, want 1", got)
	}
}

func TestTrackQuota(t *testing.T) {
	m := New()
	spent := 0
	m.TrackQuota(func() int { return spent })
	spent = 101

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == "chanfeed_catalog_quota_units" {
			if v := f.GetMetric()[0].GetGauge().GetValue(); v != 101 {
				t.Errorf("quota gauge = %v, want 101", v)
			}
			return
		}
	}
	t.Error("quota gauge not registered")
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveChannelOutcome("success")

	if got := testutil.ToFloat64(b.ChannelOutcomes.WithLabelValues("success")); got != 0 {
		t.Errorf("second instance saw %v observations", got)
	}
}
