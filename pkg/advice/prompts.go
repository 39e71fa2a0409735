package advice

import (
	"fmt"
	"strings"

	"github.com/mediguide-ai/triage/pkg/common/models"
)

// prompts.go holds the collaborator-facing prompt text. Keeping it separate
// makes the wording easy to tweak without touching the orchestration code.

const systemPrompt = "你是一个专业的医疗导诊AI助手。请根据提供的医疗信息生成准确、安全的建议。"

const formatInstructions = `请严格按照以下JSON格式输出医疗建议，不要输出任何其他内容：
{
    "assessment": "状况评估",
    "immediate_actions": ["立即行动1", "立即行动2"],
    "medical_advice": "就医建议",
    "monitoring_points": ["观察要点1", "观察要点2"],
    "emergency_handling": "紧急情况处理"
}`

const judgePrompt = `判断下面的文本是否是真实的医疗症状描述或医疗咨询。严格按照JSON格式回答，不要输出任何其他内容：
{"is_medical": true或false, "confidence": 0到100的整数, "reason": "简短理由"}

文本：%s`

const distributionPrompt = `根据以下候选疾病及其匹配情况，给出各疾病的概率分布（总和为1）。严格按照JSON数组格式回答，不要输出任何其他内容：
[{"disease_id": "...", "probability": 0.0}]

候选疾病：
%s`

// buildPrompt renders the structured advice request into the consultation
// prompt.
func buildPrompt(req models.AdviceRequest) string {
	var b strings.Builder

	b.WriteString("## 格式要求\n")
	b.WriteString(formatInstructions)
	b.WriteString("\n\n## 患者信息\n")
	fmt.Fprintf(&b, "- 年龄: %s\n", orUnknown(ageString(req.Patient.Age)))
	fmt.Fprintf(&b, "- 性别: %s\n", orUnknown(req.Patient.Gender))
	fmt.Fprintf(&b, "- 特殊状况: %s\n", orNone(req.Patient.SpecialConditions))

	b.WriteString("\n## 症状信息\n")
	fmt.Fprintf(&b, "- 疑似疾病: %s\n", req.Symptom.DiseaseName)
	fmt.Fprintf(&b, "- 匹配症状: %s\n", strings.Join(req.Symptom.MatchedSymptoms, ", "))

	b.WriteString("\n## 处理指南\n")
	fmt.Fprintf(&b, "- 紧急程度: %s\n", req.Guideline.Urgency)
	fmt.Fprintf(&b, "- 建议措施: %s\n", req.Guideline.RecommendedAction)

	b.WriteString("\n## 风险提示\n")
	fmt.Fprintf(&b, "- 注意事项: %s\n", req.Risk.SpecialNotes)
	fmt.Fprintf(&b, "- 风险人群: %s\n", strings.Join(req.Risk.RiskGroups, ", "))

	b.WriteString("\n请生成专业的医疗建议：")
	return b.String()
}

func buildDistributionPrompt(candidates []models.Candidate) string {
	var lines []string
	for _, c := range candidates {
		lines = append(lines, fmt.Sprintf("- %s (%s): 匹配症状 %s, 置信度 %.2f",
			c.DiseaseName, c.DiseaseID, strings.Join(c.MatchedSymptoms, "、"), c.Confidence))
	}
	return fmt.Sprintf(distributionPrompt, strings.Join(lines, "\n"))
}

func ageString(age int) string {
	if age <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", age)
}

func orUnknown(s string) string {
	if s == "" {
		return "未知"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "无"
	}
	return s
}
