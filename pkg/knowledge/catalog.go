package knowledge

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mediguide-ai/triage/pkg/common/models"
	"gopkg.in/yaml.v3"
)

// Catalog holds the static reference data the triage pipeline reads from:
// diseases, handling guidelines and risk notes. It is loaded once at startup
// and never mutated afterwards.
type Catalog struct {
	Diseases   []models.DiseaseRecord   `yaml:"diseases" json:"diseases"`
	Guidelines []models.GuidelineRecord `yaml:"guidelines" json:"guidelines"`
	Risks      []models.RiskRecord      `yaml:"risks" json:"risks"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Diseases) == 0 {
		return Catalog{}, fmt.Errorf("disease catalog empty")
	}
	return cat, nil
}

// DefaultCatalog covers the five conditions the symptom keyword table routes
// to.
func DefaultCatalog() Catalog {
	return Catalog{
		Diseases: []models.DiseaseRecord{
			{DiseaseID: "D01", Name: "普通感冒", RelatedSymptoms: []string{"咳嗽", "发烧", "发热", "打喷嚏", "流鼻涕"}},
			{DiseaseID: "D02", Name: "过敏性鼻炎", RelatedSymptoms: []string{"打喷嚏", "流鼻涕", "鼻子痒"}},
			{DiseaseID: "D03", Name: "急性肠胃炎", RelatedSymptoms: []string{"恶心", "呕吐", "腹泻"}},
			{DiseaseID: "D04", Name: "高血压急症风险", RelatedSymptoms: []string{"头晕", "头痛"}},
			{DiseaseID: "D05", Name: "心脏病发作风险", RelatedSymptoms: []string{"胸痛"}},
		},
		Guidelines: []models.GuidelineRecord{
			{DiseaseID: "D01", Urgency: models.UrgencyLow, RecommendedAction: "多休息多喝水，居家观察，如症状加重请就医", Timeframe: "1-2天"},
			{DiseaseID: "D02", Urgency: models.UrgencyLow, RecommendedAction: "远离过敏原，必要时使用抗过敏药物", Timeframe: "持续观察"},
			{DiseaseID: "D03", Urgency: models.UrgencyMedium, RecommendedAction: "注意补液，清淡饮食，持续呕吐或腹泻请就医", Timeframe: "24小时内"},
			{DiseaseID: "D04", Urgency: models.UrgencyHigh, RecommendedAction: "尽快测量血压，数值异常请立即就医", Timeframe: "立即"},
			{DiseaseID: "D05", Urgency: models.UrgencyHigh, RecommendedAction: "立即停止活动并拨打120或前往急诊", Timeframe: "立即"},
		},
		Risks: []models.RiskRecord{
			{DiseaseID: "D01", SpecialNotes: "老人儿童及免疫力低下者症状可能加重", RiskGroups: []string{"老年人", "儿童", "免疫力低下者"}},
			{DiseaseID: "D02", SpecialNotes: "哮喘患者需警惕诱发发作", RiskGroups: []string{"哮喘患者", "过敏体质者"}},
			{DiseaseID: "D03", SpecialNotes: "注意防止脱水，婴幼儿和老人风险更高", RiskGroups: []string{"婴幼儿", "老年人"}},
			{DiseaseID: "D04", SpecialNotes: "高血压病史者出现头晕头痛需高度警惕", RiskGroups: []string{"高血压患者", "老年人"}, Contraindications: []string{"避免剧烈运动", "避免自行加量降压药"}},
			{DiseaseID: "D05", SpecialNotes: "胸痛伴放射痛或呼吸困难属于急症", RiskGroups: []string{"冠心病患者", "高血脂患者", "吸烟者"}, Contraindications: []string{"避免自行驾车就医"}},
		},
	}
}
