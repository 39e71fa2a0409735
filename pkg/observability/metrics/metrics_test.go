package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWritePrometheusExposesCounters(t *testing.T) {
	ObserveQuery("success")
	ObserveQuery("no_match")
	ObserveAdviceFallback()

	rr := httptest.NewRecorder()
	WritePrometheus(rr)

	body := rr.Body.String()
	for _, metric := range []string{
		"triage_queries_success_total",
		"triage_queries_no_match_total",
		"triage_queries_failed_total",
		"triage_advice_fallback_total",
		"triage_audit_append_errors_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("missing metric %s in output", metric)
		}
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestObserveQueryUnknownStatusCountsAsError(t *testing.T) {
	before := queriesError.Load()
	ObserveQuery("bogus")
	if queriesError.Load() != before+1 {
		t.Fatal("unknown status should increment the error counter")
	}
}
