package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCycle_IncrementsCounters(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.ObserveCycle("40", "success", 2*time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.CycleTotal.WithLabelValues("40", "success")))
}

func TestObserveHTTP_RecordsRequest(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.ObserveHTTP("/data/{release}", "200", 10*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.HTTPRequests.WithLabelValues("/data/{release}", "200")))
}

func TestSyncOverrideHits_SetsGauges(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.SyncOverrideHits(map[string]int64{"40/x86_64/libfoo.so/bash": 3})

	assert.Equal(t, float64(3), testutil.ToFloat64(r.OverrideHits.WithLabelValues("40/x86_64/libfoo.so/bash")))
}
