package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// RulesConfig is the classifier's lexical knowledge: risk patterns, the
// categorized medical vocabulary and attack/system keyword lists. Loadable
// from YAML with compiled-in defaults.
type RulesConfig struct {
	HighRiskPatterns   []string            `yaml:"high_risk_patterns" json:"high_risk_patterns"`
	MediumRiskPatterns []string            `yaml:"medium_risk_patterns" json:"medium_risk_patterns"`
	MedicalKeywords    map[string][]string `yaml:"medical_keywords" json:"medical_keywords"`
	MedicalPhrases     []string            `yaml:"medical_phrases" json:"medical_phrases"`
	AttackKeywords     []string            `yaml:"attack_keywords" json:"attack_keywords"`
	SystemKeywords     []string            `yaml:"system_keywords" json:"system_keywords"`
}

// Thresholds are the scoring constants. The magnitudes are hand-tuned and
// carried over unchanged from operational use; treat them as calibration
// targets, not ground truth.
type Thresholds struct {
	HighRiskPenalty      int `yaml:"high_risk_penalty" json:"high_risk_penalty"`
	MediumRiskPenalty    int `yaml:"medium_risk_penalty" json:"medium_risk_penalty"`
	AttackPenalty        int `yaml:"attack_penalty" json:"attack_penalty"`
	SystemSynergyPenalty int `yaml:"system_synergy_penalty" json:"system_synergy_penalty"`
	SystemAlonePenalty   int `yaml:"system_alone_penalty" json:"system_alone_penalty"`
	MedicalKeywordCredit int `yaml:"medical_keyword_credit" json:"medical_keyword_credit"`
	MedicalIntentCredit  int `yaml:"medical_intent_credit" json:"medical_intent_credit"`
	ShortTextPenalty     int `yaml:"short_text_penalty" json:"short_text_penalty"`
	LongTextPenalty      int `yaml:"long_text_penalty" json:"long_text_penalty"`
	MinLength            int `yaml:"min_length" json:"min_length"`
	LongTextLength       int `yaml:"long_text_length" json:"long_text_length"`
	MaxInputLength       int `yaml:"max_input_length" json:"max_input_length"`
	RejectScore          int `yaml:"reject_score" json:"reject_score"`
	JudgeMinConfidence   int `yaml:"judge_min_confidence" json:"judge_min_confidence"`
	LexicalConfidence    int `yaml:"lexical_confidence" json:"lexical_confidence"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		HighRiskPenalty:      80,
		MediumRiskPenalty:    20,
		AttackPenalty:        15,
		SystemSynergyPenalty: 25,
		SystemAlonePenalty:   5,
		MedicalKeywordCredit: 20,
		MedicalIntentCredit:  20,
		ShortTextPenalty:     30,
		LongTextPenalty:      10,
		MinLength:            2,
		LongTextLength:       200,
		MaxInputLength:       500,
		RejectScore:          70,
		JudgeMinConfidence:   60,
		LexicalConfidence:    90,
	}
}

func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}
	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return RulesConfig{}, err
	}
	if len(cfg.MedicalKeywords) == 0 {
		return RulesConfig{}, fmt.Errorf("no medical keywords configured")
	}
	return cfg, nil
}

func DefaultRules() RulesConfig {
	return RulesConfig{
		HighRiskPatterns: []string{
			`(?i)(system|prompt|ignore|previous|指令|提示|忽略|系统).*(override|覆盖|忽略|绕过)`,
			`(?i)(hack|attack|inject|恶意|攻击|注入|破解)`,
			`(?i)(password|token|secret|密码|密钥|秘钥).*(extract|获取|泄露)`,
			`<script|javascript:|\bunion\b|\bselect\b|\bdrop\b|\bdelete\b`,
			`\$\{.*\}|\{\{.*\}\}`,
			`(忘记|忘掉).*(指令|提示|系统)`,
		},
		MediumRiskPatterns: []string{
			`(?i)\b(role.?play|act as|pretend)\b|角色扮演|扮演|假装`,
			`(?i)\b(bypass|jailbreak)\b|跳过限制|绕过|突破限制`,
			`(?i)\b(admin|root|superuser)\b|管理员|超级用户`,
		},
		MedicalKeywords: map[string][]string{
			"症状描述": {"头痛", "头晕", "眩晕", "晕", "疼", "痛", "不适", "难受", "不舒服", "发烧", "发热", "高烧", "低烧", "畏寒", "发冷", "寒战"},
			"呼吸系统": {"咳嗽", "咳痰", "痰多", "干咳", "呛咳", "气喘", "哮喘", "呼吸困难", "呼吸不畅", "胸闷", "胸痛", "胸口痛", "心疼", "心脏疼"},
			"消化系统": {"恶心", "想吐", "呕吐", "反胃", "作呕", "肚子痛", "胃痛", "胃疼", "腹痛", "拉肚子", "腹泻", "便秘", "腹胀", "胃胀", "消化不良", "没胃口", "食欲不振"},
			"全身症状": {"乏力", "疲劳", "虚弱", "没精神", "嗜睡", "失眠", "皮肤瘙痒", "红疹", "皮疹", "湿疹", "荨麻疹", "过敏", "疼痛", "酸痛", "胀痛", "刺痛", "绞痛", "隐痛"},
			"循环系统": {"心慌", "心悸", "心跳快", "心律不齐", "胸闷气短", "血压高", "血压低", "头晕目眩"},
			"五官症状": {"鼻塞", "打喷嚏", "流涕", "鼻涕", "鼻痒", "咽痛", "咽喉痛", "喉咙痛", "嗓子疼", "声音嘶哑", "耳鸣", "听力下降", "视力模糊", "眼花"},
		},
		MedicalPhrases: []string{
			"怎么办", "怎么治疗", "吃什么药", "需要看医生吗", "严重吗", "是什么问题",
			"有什么建议", "需要注意什么", "会自愈吗", "要多久才好", "为什么会这样",
			"我头很晕", "我有点咳嗽", "我感觉不舒服", "我身体不舒服",
		},
		AttackKeywords: []string{
			"忽略", "覆盖", "绕过", "突破", "破解", "注入", "攻击", "恶意", "窃取", "泄露",
			"获取", "提取", "删除", "修改", "破坏", "禁用", "关闭", "跳过", "欺骗", "伪造",
		},
		SystemKeywords: []string{"系统", "程序", "代码", "脚本", "数据库", "服务器", "管理员"},
	}
}

type compiledRules struct {
	highRisk   []*regexp.Regexp
	mediumRisk []*regexp.Regexp
}

func compile(cfg RulesConfig) (compiledRules, error) {
	var out compiledRules
	for _, pattern := range cfg.HighRiskPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return compiledRules{}, fmt.Errorf("high-risk pattern %q: %w", pattern, err)
		}
		out.highRisk = append(out.highRisk, re)
	}
	for _, pattern := range cfg.MediumRiskPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return compiledRules{}, fmt.Errorf("medium-risk pattern %q: %w", pattern, err)
		}
		out.mediumRisk = append(out.mediumRisk, re)
	}
	return out, nil
}
