// Package model はドメインモデルを定義する。
package model

// Difficulty はコースの難易度を表す。
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// Valid は定義済みの難易度かどうかを返す。
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// OutcomeLevel は学習成果のレベル（ブルームのタキソノミー）を表す。
type OutcomeLevel string

const (
	OutcomeKnowledge     OutcomeLevel = "Knowledge"
	OutcomeComprehension OutcomeLevel = "Comprehension"
	OutcomeApplication   OutcomeLevel = "Application"
	OutcomeAnalysis      OutcomeLevel = "Analysis"
	OutcomeSynthesis     OutcomeLevel = "Synthesis"
	OutcomeEvaluation    OutcomeLevel = "Evaluation"
)

// OutcomeLevels は定義済みの学習成果レベルを順序どおりに返す。
func OutcomeLevels() []OutcomeLevel {
	return []OutcomeLevel{
		OutcomeKnowledge, OutcomeComprehension, OutcomeApplication,
		OutcomeAnalysis, OutcomeSynthesis, OutcomeEvaluation,
	}
}

// ResourceType は教材リソースの種別を表す。
type ResourceType string

const (
	ResourceReading ResourceType = "Reading"
	ResourceVideo   ResourceType = "Video"
	ResourceTool    ResourceType = "Tool"
	ResourceDataset ResourceType = "Dataset"
)

// ResourceTypes は定義済みのリソース種別を返す。
func ResourceTypes() []ResourceType {
	return []ResourceType{ResourceReading, ResourceVideo, ResourceTool, ResourceDataset}
}

// AssignmentType は課題の種別を表す。
type AssignmentType string

const (
	AssignmentQuiz    AssignmentType = "Quiz"
	AssignmentLab     AssignmentType = "Lab"
	AssignmentProject AssignmentType = "Project"
	AssignmentEssay   AssignmentType = "Essay"
	AssignmentTest    AssignmentType = "Test"
)

// AssignmentTypes は定義済みの課題種別を返す。
func AssignmentTypes() []AssignmentType {
	return []AssignmentType{AssignmentQuiz, AssignmentLab, AssignmentProject, AssignmentEssay, AssignmentTest}
}

// Curriculum は生成されたコース全体を表す。
// ID はユーザーのライブラリ内で一意。生成直後は Version=1 で、OriginalID は ID と同じ値を持つ。
type Curriculum struct {
	ID                    string             `json:"id"`
	OriginalID            string             `json:"originalId"`
	Version               int                `json:"version"`
	CourseTitle           string             `json:"courseTitle"`
	Description           string             `json:"description"`
	TargetAudience        string             `json:"targetAudience"`
	Difficulty            Difficulty         `json:"difficulty"`
	TotalDuration         string             `json:"totalDuration"`
	PedagogicalPhilosophy string             `json:"pedagogicalPhilosophy"`
	LearningOutcomes      []LearningOutcome  `json:"learningOutcomes"`
	Modules               []Module           `json:"modules"`
	Assessments           []AssessmentMethod `json:"assessments"`
	IndustryAlignment     IndustryAlignment  `json:"industryAlignment"`
	CreatedAt             string             `json:"createdAt"`
	ModelUsed             string             `json:"modelUsed"`
	Rating                *int               `json:"rating,omitempty"`
	Feedback              string             `json:"feedback,omitempty"`
}

// Resources はすべてのモジュールのリソースを出現順に連結して返す。
func (c *Curriculum) Resources() []Resource {
	var out []Resource
	for _, m := range c.Modules {
		out = append(out, m.Resources...)
	}
	return out
}

// LearningOutcome はコース全体の学習成果を表す。
type LearningOutcome struct {
	Level   OutcomeLevel `json:"level"`
	Outcome string       `json:"outcome"`
}

// KeyConcept はモジュールの重要概念と説明の組を表す。
type KeyConcept struct {
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
}

// Module はカリキュラムを構成する1単元を表す。
type Module struct {
	Title               string       `json:"title"`
	Duration            string       `json:"duration"`
	Objectives          []string     `json:"objectives"`
	Topics              []string     `json:"topics"`
	KeyConcepts         []KeyConcept `json:"keyConcepts"`
	PedagogicalStrategy string       `json:"pedagogicalStrategy"`
	Resources           []Resource   `json:"resources"`
	Assignments         []Assignment `json:"assignments"`
}

// Resource は外部の学習教材への参照を表す。
// URL が空または不正な場合、表示時にリゾルバーが検索URLを導出する。
type Resource struct {
	Title       string       `json:"title"`
	Author      string       `json:"author,omitempty"`
	URL         string       `json:"url,omitempty"`
	Type        ResourceType `json:"type"`
	Description string       `json:"description"`
}

// Assignment はモジュール内の課題を表す。
type Assignment struct {
	Title           string         `json:"title"`
	Type            AssignmentType `json:"type"`
	Deliverable     string         `json:"deliverable"`
	SampleQuestions []string       `json:"sampleQuestions,omitempty"`
}

// AssessmentMethod はコース全体の評価方法を表す。
type AssessmentMethod struct {
	Type           string   `json:"type"`
	Description    string   `json:"description"`
	Weight         string   `json:"weight"`
	SampleConcepts []string `json:"sampleConcepts"`
}

// IndustryAlignment は産業界との整合性を表す。RelevanceScore は 0〜100。
type IndustryAlignment struct {
	Skills         []string `json:"skills"`
	JobRoles       []string `json:"jobRoles"`
	RelevanceScore float64  `json:"relevanceScore"`
	Reasoning      string   `json:"reasoning"`
}
