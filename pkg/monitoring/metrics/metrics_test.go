package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveApply(t *testing.T) {
	r := New()

	r.ObserveApply("periodic(30s, pick_fault)", "introduce_network_partition", 10*time.Millisecond, nil)
	r.ObserveApply("periodic(30s, pick_fault)", "introduce_network_partition", 10*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.fires.WithLabelValues("periodic(30s, pick_fault)", "introduce_network_partition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.applyFailures.WithLabelValues("introduce_network_partition")))
}

func TestRunningAndCleanup(t *testing.T) {
	r := New()

	r.SetRunning(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.schedulerActive))
	r.SetRunning(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.schedulerActive))

	r.ObserveCleanup(nil)
	r.ObserveCleanup(errors.New("iptables locked"))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cleanupRuns.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cleanupRuns.WithLabelValues("failure")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveApply("t", "f", time.Second, nil)
	r.SetRunning(true)
	r.ObserveCleanup(nil)
	assert.Nil(t, r.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveApply("oneshot(clear_network_faults)", "clear_network_faults", time.Millisecond, nil)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `chaos_trigger_fires_total{fault="clear_network_faults",trigger="oneshot(clear_network_faults)"} 1`)
	assert.Contains(t, string(body), "chaos_scheduler_running 0")
}
