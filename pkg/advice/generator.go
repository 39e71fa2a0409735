package advice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mediguide-ai/triage/pkg/common/config"
	openai "github.com/sashabaranov/go-openai"
)

// Generator is the advice-generation collaborator. It may be slow or
// unreliable; callers impose timeouts through the context and validate the
// raw output before accepting it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// OpenAIGenerator calls an OpenAI-compatible chat API (DeepSeek in
// production, selected via the base URL).
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAIGenerator(cfg *config.Config) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientCfg.BaseURL = cfg.LLMBaseURL
	}
	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.LLMModelName,
		temperature: float32(cfg.LLMTemperature),
		maxTokens:   cfg.LLMMaxTokens,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", errors.New("llm client not initialized")
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from llm")
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) Model() string {
	return g.model
}

// TemplateGenerator produces deterministic advice without any external call.
// It backs test mode and deployments without an API key.
type TemplateGenerator struct{}

func (TemplateGenerator) Generate(_ context.Context, prompt string) (string, error) {
	// The prompt is already rendered; regenerate a canned response keyed off
	// the disease name embedded in it.
	switch {
	case containsAny(prompt, "感冒", "流感"):
		return `{
			"assessment": "根据症状分析，疑似上呼吸道感染（普通感冒）",
			"immediate_actions": ["多休息", "多喝水", "监测体温"],
			"medical_advice": "建议居家观察1-2天，如症状加重或持续发热请及时就医",
			"monitoring_points": ["体温变化", "咳嗽程度", "精神状态"],
			"emergency_handling": "如出现高热不退、呼吸困难、胸痛等症状，请立即就医"
		}`, nil
	case containsAny(prompt, "心脏", "胸痛"):
		return `{
			"assessment": "根据症状分析，疑似心血管相关疾病，需要专业评估",
			"immediate_actions": ["立即停止活动", "保持安静", "拨打120"],
			"medical_advice": "胸痛症状需要立即就医检查，不建议自行处理",
			"monitoring_points": ["胸痛程度", "是否放射至左臂", "伴随症状"],
			"emergency_handling": "胸痛是急症症状，请立即拨打120或前往最近医院急诊科"
		}`, nil
	default:
		resp := map[string]interface{}{
			"assessment":         "根据症状分析，建议结合临床检查进一步确认",
			"immediate_actions":  []string{"保持冷静", "观察症状变化", "记录症状发展"},
			"medical_advice":     "如症状持续或加重，请及时就医",
			"monitoring_points":  []string{"症状严重程度", "是否出现新症状", "精神状态"},
			"emergency_handling": "如症状加重或出现紧急情况，请立即就医",
		}
		raw, _ := json.Marshal(resp)
		return string(raw), nil
	}
}

func (TemplateGenerator) Model() string {
	return "template"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
