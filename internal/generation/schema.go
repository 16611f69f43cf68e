package generation

import (
	"google.golang.org/genai"

	"github.com/hitoshi/edumap/internal/model"
)

func str() *genai.Schema {
	return &genai.Schema{Type: genai.TypeString}
}

func strList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: str()}
}

func enum[T ~string](values []T) *genai.Schema {
	s := &genai.Schema{Type: genai.TypeString, Format: "enum"}
	for _, v := range values {
		s.Enum = append(s.Enum, string(v))
	}
	return s
}

func ptr[T any](v T) *T {
	return &v
}

// ResponseSchema は生成モデルに課す応答スキーマを返す。
// フィールド名・型・必須指定はmodel.Curriculumと一致させる。
// 応答の検証(Validate)も同じスキーマを使用する。
func ResponseSchema() *genai.Schema {
	learningOutcome := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"level":   enum(model.OutcomeLevels()),
			"outcome": str(),
		},
		Required: []string{"level", "outcome"},
	}

	keyConcept := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"concept":     str(),
			"explanation": str(),
		},
		Required: []string{"concept", "explanation"},
	}

	resource := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       str(),
			"author":      str(),
			"url":         str(),
			"type":        enum(model.ResourceTypes()),
			"description": str(),
		},
		Required: []string{"title", "type", "description"},
	}

	assignment := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":           str(),
			"type":            enum(model.AssignmentTypes()),
			"deliverable":     str(),
			"sampleQuestions": strList(),
		},
		Required: []string{"title", "type", "deliverable"},
	}

	module := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":               str(),
			"duration":            str(),
			"pedagogicalStrategy": str(),
			"objectives":          strList(),
			"topics":              strList(),
			"keyConcepts":         {Type: genai.TypeArray, Items: keyConcept},
			"resources":           {Type: genai.TypeArray, Items: resource},
			"assignments":         {Type: genai.TypeArray, Items: assignment},
		},
		Required: []string{"title", "duration", "objectives", "topics", "keyConcepts", "resources", "assignments"},
	}

	assessment := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"type":           str(),
			"description":    str(),
			"weight":         str(),
			"sampleConcepts": {Type: genai.TypeArray, Items: str(), MinItems: ptr[int64](3), MaxItems: ptr[int64](5)},
		},
		Required: []string{"type", "description", "weight", "sampleConcepts"},
	}

	industryAlignment := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"skills":         strList(),
			"jobRoles":       strList(),
			"relevanceScore": {Type: genai.TypeNumber, Minimum: ptr(0.0), Maximum: ptr(100.0)},
			"reasoning":      str(),
		},
		Required: []string{"skills", "relevanceScore"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"courseTitle":           str(),
			"description":           str(),
			"targetAudience":        str(),
			"totalDuration":         str(),
			"pedagogicalPhilosophy": str(),
			"learningOutcomes":      {Type: genai.TypeArray, Items: learningOutcome},
			"modules":               {Type: genai.TypeArray, Items: module, MinItems: ptr[int64](1)},
			"assessments":           {Type: genai.TypeArray, Items: assessment},
			"industryAlignment":     industryAlignment,
		},
		Required: []string{"courseTitle", "description", "modules", "assessments"},
	}
}
