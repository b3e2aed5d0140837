package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	t.Run("counters", func(t *testing.T) {
		before := testutil.ToFloat64(Failures.WithLabelValues("stale"))
		Failures.WithLabelValues("stale").Inc()
		if got := testutil.ToFloat64(Failures.WithLabelValues("stale")); got != before+1 {
			t.Fatalf("Expected stale failures to grow by one, got %v -> %v", before, got)
		}
	})

	t.Run("provider outcome", func(t *testing.T) {
		ObserveProvider("lookup", time.Now(), nil)
		ObserveProvider("lookup", time.Now(), errors.New("timeout"))
		if n := testutil.CollectAndCount(ProviderLatency); n < 2 {
			t.Fatalf("Expected ok and error series, got %d", n)
		}
	})

	t.Run("handler exposes namespace", func(t *testing.T) {
		Events.WithLabelValues("text").Inc()
		recorder := httptest.NewRecorder()
		Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
		body, _ := io.ReadAll(recorder.Result().Body)
		if !strings.Contains(string(body), `chefbot_events_total{kind="text"}`) {
			t.Fatalf("Expected events counter in output, got:\n%s", body)
		}
	})
}
