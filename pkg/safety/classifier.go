package safety

import (
	"context"
	"regexp"
	"strings"

	"github.com/mediguide-ai/triage/pkg/common/logger"
	"github.com/mediguide-ai/triage/pkg/common/models"
	"github.com/mediguide-ai/triage/pkg/observability/metrics"
)

// Judge is the optional external semantic collaborator consulted after the
// lexical gates. It may be absent at construction time; the classifier then
// falls back to its own lexical decision with a fixed synthetic confidence.
// That availability/safety tradeoff is deliberate: an unreachable judge must
// not take the whole intake path down with it.
type Judge interface {
	Assess(ctx context.Context, text string) (models.IntentAssessment, error)
}

// Decision reasons, one per terminal gate outcome.
type Reason string

const (
	ReasonSafe       Reason = "safe"
	ReasonInvalid    Reason = "invalid"
	ReasonUnsafe     Reason = "unsafe"
	ReasonNonMedical Reason = "non_medical"
)

// Signals records which scoring inputs fired for one text. Kept on the
// verdict so callers can audit why a query was blocked.
type Signals struct {
	HighRiskMatches   []string `json:"high_risk_matches,omitempty"`
	MediumRiskMatches []string `json:"medium_risk_matches,omitempty"`
	MedicalCount      int      `json:"medical_count"`
	AttackCount       int      `json:"attack_count"`
	SystemCount       int      `json:"system_count"`
	HasMedicalIntent  bool     `json:"has_medical_intent"`
	TextLength        int      `json:"text_length"`
}

// Verdict is the classifier's terminal answer for one query.
type Verdict struct {
	Safe       bool                    `json:"safe"`
	Reason     Reason                  `json:"reason"`
	RiskScore  int                     `json:"risk_score"`
	Signals    Signals                 `json:"signals"`
	Assessment models.IntentAssessment `json:"assessment"`
}

// Classifier is the layered risk/intent filter. Stateless across queries;
// safe for concurrent use.
type Classifier struct {
	rules      RulesConfig
	compiled   compiledRules
	thresholds Thresholds
	judge      Judge
}

func NewClassifier(rules RulesConfig, thresholds Thresholds, judge Judge) (*Classifier, error) {
	compiled, err := compile(rules)
	if err != nil {
		return nil, err
	}
	return &Classifier{
		rules:      rules,
		compiled:   compiled,
		thresholds: thresholds,
		judge:      judge,
	}, nil
}

// Check runs the gate sequence: shape check, risk scoring, medical-intent
// lexical check, then the optional semantic judge. Risk scoring is evaluated
// before the lexical gate so that text carrying hard attack signals is
// reported as unsafe rather than merely non-medical. Any internal fault
// defaults to rejection.
func (c *Classifier) Check(ctx context.Context, text string) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithField("panic", r).Error("Safety check fault, rejecting")
			verdict = Verdict{Safe: false, Reason: ReasonUnsafe}
		}
	}()

	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) == 0 || len(runes) > c.thresholds.MaxInputLength {
		return Verdict{Safe: false, Reason: ReasonInvalid, Signals: Signals{TextLength: len(runes)}}
	}

	score, signals := c.riskScore(text)

	logEntry := logger.Log.WithFields(map[string]interface{}{
		"risk_score":     score,
		"high_risk":      len(signals.HighRiskMatches),
		"medium_risk":    len(signals.MediumRiskMatches),
		"attack_count":   signals.AttackCount,
		"medical_count":  signals.MedicalCount,
		"medical_intent": signals.HasMedicalIntent,
	})

	if score >= c.thresholds.RejectScore {
		logEntry.Warn("High-risk content rejected")
		return Verdict{Safe: false, Reason: ReasonUnsafe, RiskScore: score, Signals: signals}
	}

	if !c.isMedicalQuery(signals) {
		logEntry.Warn("Input lacks medical intent, rejecting")
		return Verdict{
			Safe:      false,
			Reason:    ReasonNonMedical,
			RiskScore: score,
			Signals:   signals,
			Assessment: models.IntentAssessment{
				IsMedical:  false,
				Confidence: 0,
				Reason:     "未检测到医疗症状或咨询意图",
			},
		}
	}

	assessment := c.assess(ctx, text)
	if !assessment.IsMedical || assessment.Confidence < c.thresholds.JudgeMinConfidence {
		logEntry.WithFields(map[string]interface{}{
			"is_medical": assessment.IsMedical,
			"confidence": assessment.Confidence,
		}).Warn("Semantic judgment blocked the query")
		return Verdict{Safe: false, Reason: ReasonUnsafe, RiskScore: score, Signals: signals, Assessment: assessment}
	}

	logEntry.Debug("Safety check passed")
	return Verdict{Safe: true, Reason: ReasonSafe, RiskScore: score, Signals: signals, Assessment: assessment}
}

// riskScore computes the bounded [0,100] score from additive signals.
// Medical vocabulary acts as a mitigating credit so genuine symptom language
// is not penalized by coincidental overlap with risk vocabulary.
func (c *Classifier) riskScore(text string) (int, Signals) {
	lower := strings.ToLower(text)
	th := c.thresholds

	signals := Signals{TextLength: len([]rune(text))}

	for i, re := range c.compiled.highRisk {
		if re.MatchString(lower) {
			signals.HighRiskMatches = append(signals.HighRiskMatches, c.rules.HighRiskPatterns[i])
		}
	}
	for i, re := range c.compiled.mediumRisk {
		if re.MatchString(lower) {
			signals.MediumRiskMatches = append(signals.MediumRiskMatches, c.rules.MediumRiskPatterns[i])
		}
	}

	// One credit per vocabulary category, not per keyword, so a long symptom
	// list cannot whitewash an injection attempt.
	for _, keywords := range c.rules.MedicalKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				signals.MedicalCount++
				break
			}
		}
	}

	for _, phrase := range c.rules.MedicalPhrases {
		if strings.Contains(lower, phrase) {
			signals.HasMedicalIntent = true
			break
		}
	}

	for _, keyword := range c.rules.AttackKeywords {
		if strings.Contains(lower, keyword) {
			signals.AttackCount++
		}
	}
	for _, keyword := range c.rules.SystemKeywords {
		if strings.Contains(lower, keyword) {
			signals.SystemCount++
		}
	}

	score := 0
	if len(signals.HighRiskMatches) > 0 {
		score += th.HighRiskPenalty
	}
	score += len(signals.MediumRiskMatches) * th.MediumRiskPenalty
	score += signals.AttackCount * th.AttackPenalty

	// Attacker referencing system internals is strictly worse than either
	// signal alone.
	if signals.SystemCount > 0 && signals.AttackCount > 0 {
		score += signals.SystemCount * th.SystemSynergyPenalty
	} else if signals.SystemCount > 0 {
		score += signals.SystemCount * th.SystemAlonePenalty
	}

	medicalCredit := signals.MedicalCount * th.MedicalKeywordCredit
	if signals.HasMedicalIntent {
		medicalCredit += th.MedicalIntentCredit
	}
	score -= medicalCredit
	if score < 0 {
		score = 0
	}

	if signals.TextLength < th.MinLength {
		score += th.ShortTextPenalty
	} else if signals.TextLength > th.LongTextLength {
		score += th.LongTextPenalty
	}

	if score > 100 {
		score = 100
	}
	return score, signals
}

func (c *Classifier) isMedicalQuery(signals Signals) bool {
	return signals.MedicalCount > 0 || signals.HasMedicalIntent
}

// assess consults the semantic judge when configured, otherwise synthesizes
// an assessment from the lexical decision. The text has already passed the
// lexical gate here, so the fallback affirms with fixed confidence.
func (c *Classifier) assess(ctx context.Context, text string) models.IntentAssessment {
	if c.judge != nil {
		assessment, err := c.judge.Assess(ctx, text)
		if err == nil {
			return assessment
		}
		logger.Log.WithError(err).Warn("Semantic judge unavailable, falling back to lexical decision")
		metrics.ObserveJudgeFallback()
	}
	return models.IntentAssessment{
		IsMedical:  true,
		Confidence: c.thresholds.LexicalConfidence,
		Reason:     "本地规则判定",
	}
}

var (
	dangerousChars = regexp.MustCompile(`[<>'"\\]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

const sanitizeMaxRunes = 300

// Sanitize strips characters that commonly carry markup or escape tricks and
// collapses whitespace. Applied after classification, before the text is
// embedded in downstream prompts.
func Sanitize(text string) string {
	out := dangerousChars.ReplaceAllString(text, "")
	out = strings.TrimSpace(whitespaceRuns.ReplaceAllString(out, " "))
	runes := []rune(out)
	if len(runes) > sanitizeMaxRunes {
		out = string(runes[:sanitizeMaxRunes])
	}
	return out
}
