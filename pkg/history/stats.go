package history

import (
	"math"
	"sort"

	"github.com/mediguide-ai/triage/pkg/common/models"
)

// Outcome is the slice of a record that stats aggregation needs.
type Outcome struct {
	Status           models.QueryStatus
	ServerDurationMS int64
	TotalDurationMS  int64
}

// Stats summarizes processed queries by outcome class and latency.
type Stats struct {
	Counts struct {
		Normal           int `json:"normal"`
		MaliciousOrError int `json:"malicious_or_error"`
		NonMedical       int `json:"non_medical"`
		Total            int `json:"total"`
	} `json:"counts"`
	DurationsMS struct {
		Count int     `json:"count"`
		Avg   float64 `json:"avg"`
		P95   float64 `json:"p95"`
		Max   float64 `json:"max"`
	} `json:"durations_ms"`
}

// Aggregate is pure: it classifies each outcome (success → normal, no_match
// → non-medical, failed/error → malicious-or-error) and computes avg/p95/max
// over the total durations, falling back to server durations when total is
// absent.
func Aggregate(outcomes []Outcome) Stats {
	var stats Stats
	var durations []float64

	for _, o := range outcomes {
		switch o.Status {
		case models.StatusSuccess:
			stats.Counts.Normal++
		case models.StatusNoMatch:
			stats.Counts.NonMedical++
		case models.StatusFailed, models.StatusError:
			stats.Counts.MaliciousOrError++
		}
		d := o.TotalDurationMS
		if d == 0 {
			d = o.ServerDurationMS
		}
		if d > 0 {
			durations = append(durations, float64(d))
		}
	}
	stats.Counts.Total = len(outcomes)

	sort.Float64s(durations)
	n := len(durations)
	stats.DurationsMS.Count = n
	if n == 0 {
		return stats
	}

	sum := 0.0
	for _, d := range durations {
		sum += d
	}
	stats.DurationsMS.Avg = round2(sum / float64(n))
	stats.DurationsMS.P95 = round2(durations[int(0.95*float64(n-1))])
	stats.DurationsMS.Max = round2(durations[n-1])
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
