package matcher

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// KeywordEntry maps one symptom keyword to the disease IDs it implicates.
// An ambiguous symptom may route to more than one disease.
type KeywordEntry struct {
	Keyword  string   `yaml:"keyword" json:"keyword"`
	Diseases []string `yaml:"diseases" json:"diseases"`
}

// Prior holds a disease's display name and the base confidence assigned on
// the first keyword hit.
type Prior struct {
	DiseaseID  string  `yaml:"disease_id" json:"disease_id"`
	Name       string  `yaml:"name" json:"name"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
}

// Table is the matcher's immutable configuration. Keywords are kept as an
// ordered slice so extraction is deterministic across runs.
type Table struct {
	Keywords []KeywordEntry `yaml:"keywords" json:"keywords"`
	Priors   []Prior        `yaml:"priors" json:"priors"`
}

func LoadTable(path string) (Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultTable(), err
	}
	var table Table
	if err := yaml.Unmarshal(content, &table); err != nil {
		return Table{}, err
	}
	if len(table.Keywords) == 0 || len(table.Priors) == 0 {
		return Table{}, fmt.Errorf("keyword table incomplete")
	}
	return table, nil
}

func DefaultTable() Table {
	return Table{
		Keywords: []KeywordEntry{
			{Keyword: "头晕", Diseases: []string{"D04"}},
			{Keyword: "咳嗽", Diseases: []string{"D01"}},
			{Keyword: "发烧", Diseases: []string{"D01"}},
			{Keyword: "发热", Diseases: []string{"D01"}},
			{Keyword: "头痛", Diseases: []string{"D04"}},
			{Keyword: "胸痛", Diseases: []string{"D05"}},
			{Keyword: "恶心", Diseases: []string{"D03"}},
			{Keyword: "呕吐", Diseases: []string{"D03"}},
			{Keyword: "腹泻", Diseases: []string{"D03"}},
			{Keyword: "打喷嚏", Diseases: []string{"D01", "D02"}},
			{Keyword: "流鼻涕", Diseases: []string{"D01", "D02"}},
			{Keyword: "鼻子痒", Diseases: []string{"D02"}},
		},
		Priors: []Prior{
			{DiseaseID: "D01", Name: "普通感冒", Confidence: 0.8},
			{DiseaseID: "D02", Name: "过敏性鼻炎", Confidence: 0.7},
			{DiseaseID: "D03", Name: "急性肠胃炎", Confidence: 0.85},
			{DiseaseID: "D04", Name: "高血压急症风险", Confidence: 0.9},
			{DiseaseID: "D05", Name: "心脏病发作风险", Confidence: 0.95},
		},
	}
}
