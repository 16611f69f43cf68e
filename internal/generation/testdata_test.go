package generation

import (
	"context"
	"encoding/json"
	"fmt"
)

// fakeBackend は呼び出し内容を記録し、固定の応答を返すBackend。
type fakeBackend struct {
	reply string
	err   error
	calls []Call
}

func (f *fakeBackend) Generate(_ context.Context, call Call) (string, error) {
	f.calls = append(f.calls, call)
	return f.reply, f.err
}

// replyDoc はスキーマに適合する応答ドキュメントを生成する。
func replyDoc(modules int) map[string]any {
	mods := make([]any, 0, modules)
	for i := 0; i < modules; i++ {
		mods = append(mods, map[string]any{
			"title":               fmt.Sprintf("Module %d", i+1),
			"duration":            "5 Hours",
			"pedagogicalStrategy": "Active learning",
			"objectives":          []any{"Understand open sets"},
			"topics":              []any{"Open sets", "Closed sets"},
			"keyConcepts": []any{
				map[string]any{"concept": "Open set", "explanation": "A set containing a neighbourhood of each point"},
			},
			"resources": []any{
				map[string]any{"title": "Topology", "author": "James Munkres", "type": "Reading", "description": "Classic text"},
				map[string]any{"title": "Topology lecture", "type": "Video", "description": "Lecture series", "url": "#"},
			},
			"assignments": []any{
				map[string]any{
					"title":           "Quiz 1",
					"type":            "Quiz",
					"deliverable":     "Answers",
					"sampleQuestions": []any{"Is the empty set open?", "Define a basis."},
				},
			},
		})
	}
	return map[string]any{
		"courseTitle":           "Intro to Topology",
		"description":           "What, why and how of point-set topology",
		"targetAudience":        "Undergraduate",
		"totalDuration":         "12 Weeks",
		"pedagogicalPhilosophy": "Constructivist",
		"learningOutcomes": []any{
			map[string]any{"level": "Knowledge", "outcome": "Define a topology"},
		},
		"modules": mods,
		"assessments": []any{
			map[string]any{
				"type":           "Exam",
				"description":    "Final exam",
				"weight":         "40%",
				"sampleConcepts": []any{"Compactness", "Connectedness", "Continuity"},
			},
		},
		"industryAlignment": map[string]any{
			"skills":         []any{"Abstract reasoning"},
			"jobRoles":       []any{"Data scientist"},
			"relevanceScore": 72,
			"reasoning":      "Foundational for analysis",
		},
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func validReply(modules int) string {
	return mustJSON(replyDoc(modules))
}
