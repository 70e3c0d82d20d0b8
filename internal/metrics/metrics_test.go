package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
)

func TestObserveOutcome(t *testing.T) {
	m := New()
	m.ObserveOutcome(domain.OutcomeDone)
	m.ObserveOutcome(domain.OutcomeDone)
	m.ObserveOutcome(domain.OutcomeRejected)

	if got := testutil.ToFloat64(m.Messages.WithLabelValues("done")); got != 2 {
		t.Errorf("done = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Messages.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
}

func TestObserveStage(t *testing.T) {
	m := New()
	m.ObserveStage(StageDownload, time.Now().Add(-time.Second))
	if n := testutil.CollectAndCount(m.StageDuration); n != 1 {
		t.Errorf("stage series = %d, want 1", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOutcome(domain.OutcomeDone)
	m.ObserveStage(StageTotal, time.Now())
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.BrowserSession.Inc()
	m.ObserveOutcome(domain.OutcomeTooLarge)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`igramrelay_messages_total{outcome="too_large"} 1`,
		"igramrelay_browser_sessions_active 1",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
