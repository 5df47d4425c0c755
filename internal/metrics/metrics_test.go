package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveInbound("cloud", "dispatched")
	m.ObserveIntent("greeting")
	m.ObserveIntent("greeting")
	m.ObserveOutbound("text", nil)
	m.ObserveOutbound("text", errors.New("boom"))
	m.ObserveNotification("reminder")
	m.ObserveTickFailure()
	m.ObserveDispatch(0.01)

	if got := testutil.ToFloat64(m.intentTotal.WithLabelValues("greeting")); got != 2 {
		t.Fatalf("intent counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.outboundTotal.WithLabelValues("text", "failed")); got != 1 {
		t.Fatalf("failed outbound counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.scannerFailures); got != 1 {
		t.Fatalf("tick failure counter = %v, want 1", got)
	}
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveInbound("cloud", "dispatched")
	m.ObserveIntent("unknown")
	m.ObserveOutbound("text", nil)
	m.ObserveNotification("reminder")
	m.ObserveTickFailure()
	m.ObserveDispatch(1)
}
