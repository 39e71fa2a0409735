package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	queriesSuccess    atomic.Int64
	queriesFailed     atomic.Int64
	queriesNoMatch    atomic.Int64
	queriesError      atomic.Int64
	adviceFallbacks   atomic.Int64
	judgeFallbacks    atomic.Int64
	auditAppendErrors atomic.Int64
)

// ObserveQuery records one terminal query outcome by status string.
func ObserveQuery(status string) {
	switch status {
	case "success":
		queriesSuccess.Add(1)
	case "failed":
		queriesFailed.Add(1)
	case "no_match":
		queriesNoMatch.Add(1)
	default:
		queriesError.Add(1)
	}
}

func ObserveAdviceFallback() { adviceFallbacks.Add(1) }

func ObserveJudgeFallback() { judgeFallbacks.Add(1) }

func ObserveAuditError() { auditAppendErrors.Add(1) }

// WritePrometheus renders the counters in Prometheus text exposition format.
func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP triage_queries_success_total Queries that produced structured advice.\n")
	fmt.Fprintf(w, "# TYPE triage_queries_success_total counter\n")
	fmt.Fprintf(w, "triage_queries_success_total %d\n", queriesSuccess.Load())

	fmt.Fprintf(w, "# HELP triage_queries_failed_total Queries rejected as unsafe or invalid.\n")
	fmt.Fprintf(w, "# TYPE triage_queries_failed_total counter\n")
	fmt.Fprintf(w, "triage_queries_failed_total %d\n", queriesFailed.Load())

	fmt.Fprintf(w, "# HELP triage_queries_no_match_total Queries without recognizable medical intent.\n")
	fmt.Fprintf(w, "# TYPE triage_queries_no_match_total counter\n")
	fmt.Fprintf(w, "triage_queries_no_match_total %d\n", queriesNoMatch.Load())

	fmt.Fprintf(w, "# HELP triage_queries_error_total Queries terminated by an internal fault.\n")
	fmt.Fprintf(w, "# TYPE triage_queries_error_total counter\n")
	fmt.Fprintf(w, "triage_queries_error_total %d\n", queriesError.Load())

	fmt.Fprintf(w, "# HELP triage_advice_fallback_total Advice responses served from the conservative fallback.\n")
	fmt.Fprintf(w, "# TYPE triage_advice_fallback_total counter\n")
	fmt.Fprintf(w, "triage_advice_fallback_total %d\n", adviceFallbacks.Load())

	fmt.Fprintf(w, "# HELP triage_judge_fallback_total Safety checks decided lexically because the semantic judge was unavailable.\n")
	fmt.Fprintf(w, "# TYPE triage_judge_fallback_total counter\n")
	fmt.Fprintf(w, "triage_judge_fallback_total %d\n", judgeFallbacks.Load())

	fmt.Fprintf(w, "# HELP triage_audit_append_errors_total Audit entries that failed to persist.\n")
	fmt.Fprintf(w, "# TYPE triage_audit_append_errors_total counter\n")
	fmt.Fprintf(w, "triage_audit_append_errors_total %d\n", auditAppendErrors.Load())
}

// Handler serves the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WritePrometheus(w)
	}
}
