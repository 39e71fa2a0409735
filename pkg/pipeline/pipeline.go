package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mediguide-ai/triage/pkg/advice"
	"github.com/mediguide-ai/triage/pkg/audit"
	"github.com/mediguide-ai/triage/pkg/common/logger"
	"github.com/mediguide-ai/triage/pkg/common/models"
	"github.com/mediguide-ai/triage/pkg/matcher"
	"github.com/mediguide-ai/triage/pkg/observability/metrics"
	"github.com/mediguide-ai/triage/pkg/safety"
)

// Pipeline states, in processing order. Terminal reject/error states skip
// the downstream ones.
type State string

const (
	StateReceived           State = "received"
	StateSafetyChecked      State = "safety_checked"
	StateMatched            State = "matched"
	StateEnriched           State = "enriched"
	StateAdvised            State = "advised"
	StateDone               State = "done"
	StateRejectedUnsafe     State = "rejected_unsafe"
	StateRejectedNonMedical State = "rejected_nonmedical"
	StateError              State = "error"
)

// Pipeline sequences safety gating, symptom matching, knowledge enrichment
// and advice orchestration for one query per call. The only shared state is
// the immutable reference data inside its collaborators, so concurrent calls
// are safe.
type Pipeline struct {
	classifier   *safety.Classifier
	matcher      *matcher.Matcher
	orchestrator *advice.Orchestrator
	sink         audit.Sink
}

func New(classifier *safety.Classifier, m *matcher.Matcher, orchestrator *advice.Orchestrator, sink audit.Sink) *Pipeline {
	return &Pipeline{
		classifier:   classifier,
		matcher:      m,
		orchestrator: orchestrator,
		sink:         sink,
	}
}

// Process handles exactly one query. Validation failures surface to the
// caller; every other fault is converted to a terminal result. One audit
// entry is emitted per call regardless of outcome.
func (p *Pipeline) Process(ctx context.Context, req models.QueryRequest) (models.QueryResult, error) {
	if req.Symptom == "" {
		return models.QueryResult{}, models.NewValidationError(models.ErrMissingSymptom)
	}
	if err := req.PatientInfo.Validate(); err != nil {
		return models.QueryResult{}, err
	}

	start := time.Now()
	result, state := p.run(ctx, req)

	result.ServerDurationMS = time.Since(start).Milliseconds()
	result.TotalDurationMS = totalDuration(req.ClientStartTS, result.ServerDurationMS)

	metrics.ObserveQuery(string(result.Status))
	p.emitAudit(req, result, state)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, req models.QueryRequest) (result models.QueryResult, state State) {
	state = StateReceived
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic": r,
				"state": string(state),
			}).Error("Pipeline fault")
			state = StateError
			result = models.QueryResult{
				Status:       models.StatusError,
				Urgency:      models.UrgencyUnknown,
				ErrorMessage: "处理查询时发生内部错误",
			}
		}
	}()

	verdict := p.classifier.Check(ctx, req.Symptom)
	if !verdict.Safe {
		return p.rejectResult(verdict), rejectState(verdict)
	}
	state = StateSafetyChecked

	candidates := p.matcher.Match(safety.Sanitize(req.Symptom))
	state = StateMatched

	result = p.orchestrator.Advise(ctx, candidates, req.PatientInfo)
	state = StateDone
	return result, state
}

func rejectState(verdict safety.Verdict) State {
	if verdict.Reason == safety.ReasonNonMedical {
		return StateRejectedNonMedical
	}
	return StateRejectedUnsafe
}

// rejectResult maps a safety verdict to the caller-facing terminal result.
// Non-medical text is a no_match, not a failure; everything else fails with
// a reason composed from the last intent assessment.
func (p *Pipeline) rejectResult(verdict safety.Verdict) models.QueryResult {
	switch verdict.Reason {
	case safety.ReasonNonMedical:
		return models.QueryResult{
			Status:       models.StatusNoMatch,
			Urgency:      models.UrgencyUnknown,
			ErrorMessage: "未能识别医疗症状或咨询意图，请描述具体症状",
		}
	case safety.ReasonInvalid:
		return models.QueryResult{
			Status:       models.StatusFailed,
			Urgency:      models.UrgencyUnknown,
			ErrorMessage: "输入内容为空或超出长度限制，请重新输入",
		}
	default:
		message := "输入内容包含敏感信息或不符合医疗咨询要求，请重新输入"
		if verdict.Assessment.Reason != "" && !verdict.Assessment.IsMedical {
			message = fmt.Sprintf("%s（%s）", message, verdict.Assessment.Reason)
		}
		return models.QueryResult{
			Status:       models.StatusFailed,
			Urgency:      models.UrgencyUnknown,
			ErrorMessage: message,
		}
	}
}

// emitAudit appends one entry to the sink. Best-effort: failures are warned
// and swallowed so logging can never throw back into caller control flow.
func (p *Pipeline) emitAudit(req models.QueryRequest, result models.QueryResult, state State) {
	if p.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithField("panic", r).Warn("Audit emission fault")
		}
	}()

	entry := models.AuditEntry{
		ID:               uuid.New().String(),
		Timestamp:        time.Now(),
		Symptom:          req.Symptom,
		PatientInfo:      req.PatientInfo,
		Status:           result.Status,
		DiseaseName:      result.DiseaseName,
		Urgency:          result.Urgency,
		Advice:           result.Advice,
		Supplementary:    result.SupplementaryInfo,
		PipelineState:    string(state),
		ServerDurationMS: result.ServerDurationMS,
		TotalDurationMS:  result.TotalDurationMS,
		Model:            result.Model,
		SourceChannel:    "api",
	}

	// Detached context so a caller abort cannot leave a partial write.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.sink.Append(ctx, entry); err != nil {
		metrics.ObserveAuditError()
		logger.Log.WithError(err).Warn("Failed to append audit entry")
	}
}

// totalDuration derives end-to-end latency from the client-reported start
// timestamp when present and parseable, otherwise falls back to the server
// duration.
func totalDuration(clientStartTS string, serverMS int64) int64 {
	if clientStartTS == "" {
		return serverMS
	}
	ts, err := time.Parse(time.RFC3339, clientStartTS)
	if err != nil {
		return serverMS
	}
	total := time.Since(ts).Milliseconds()
	if total < 0 {
		return serverMS
	}
	return total
}
