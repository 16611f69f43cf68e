package export

import (
	"strings"
	"testing"

	"github.com/hitoshi/edumap/internal/model"
	"github.com/hitoshi/edumap/internal/security"
)

func sampleCurriculum() *model.Curriculum {
	return &model.Curriculum{
		ID:                    "c-1",
		OriginalID:            "c-1",
		Version:               2,
		CourseTitle:           "Intro to Topology",
		Description:           "Open sets, continuity and compactness.",
		TargetAudience:        "Undergraduate",
		Difficulty:            model.DifficultyBeginner,
		TotalDuration:         "12 Weeks",
		PedagogicalPhilosophy: "Learning by proof.",
		LearningOutcomes: []model.LearningOutcome{
			{Level: model.OutcomeKnowledge, Outcome: "Define a topology"},
		},
		Modules: []model.Module{
			{
				Title:               "Open Sets",
				Duration:            "5 Hours",
				PedagogicalStrategy: "Socratic seminar",
				Objectives:          []string{"Recognise open sets"},
				Topics:              []string{"Metric spaces"},
				KeyConcepts:         []model.KeyConcept{{Concept: "Basis", Explanation: "Generates a topology"}},
				Resources: []model.Resource{
					{Title: "Topology", Author: "James Munkres", Type: model.ResourceReading, Description: "Classic text"},
					{Title: "Lecture 1", URL: "https://example.com/lecture-1", Type: model.ResourceVideo, Description: "Intro"},
				},
				Assignments: []model.Assignment{
					{Title: "Quiz 1", Type: model.AssignmentQuiz, Deliverable: "Answers", SampleQuestions: []string{"Is the empty set open?"}},
				},
			},
			{Title: "Continuity", Duration: "4 Hours"},
		},
		Assessments: []model.AssessmentMethod{
			{Type: "Exam", Description: "Final | written", Weight: "40%", SampleConcepts: []string{"Compactness"}},
		},
		IndustryAlignment: model.IndustryAlignment{
			Skills:         []string{"Abstract reasoning"},
			JobRoles:       []string{"Researcher"},
			RelevanceScore: 72,
			Reasoning:      "Foundational.",
		},
		CreatedAt: "2026-03-01T09:30:00.000Z",
		ModelUsed: "gemini-3-flash-preview",
	}
}

// 章が表紙、ロードマップ、各モジュール、評価、リソースの順に並ぶことを検証
func TestSections_Order(t *testing.T) {
	got := Sections(sampleCurriculum())

	want := []string{
		"Intro to Topology",
		"Roadmap",
		"Module 1: Open Sets",
		"Module 2: Continuity",
		"Assessments",
		"Resources",
	}
	if len(got) != len(want) {
		t.Fatalf("sections = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Title != w {
			t.Errorf("sections[%d].Title = %q, want %q", i, got[i].Title, w)
		}
	}
}

func TestMarkdown_Content(t *testing.T) {
	md := Markdown(sampleCurriculum())

	for _, want := range []string{
		"# Intro to Topology",
		"**Difficulty:** Beginner",
		"**Version:** 2",
		"> Learning by proof.",
		"- **Knowledge**: Define a topology",
		"1. Open Sets (5 Hours)",
		"**Relevance Score:** 72",
		"## Module 1: Open Sets",
		"- **Basis**: Generates a topology",
		"- **Quiz 1** (Quiz): Answers",
		"  - Is the empty set open?",
		"| Exam | 40% | Final \\| written |",
		"**Exam** concepts: Compactness",
		"[Lecture 1](https://example.com/lecture-1) (Video): Intro",
		"[Topology](https://scholar.google.com/scholar?q=Topology%20James%20Munkres%20Classic%20text) by James Munkres (Reading)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

// 章の順序: 表紙 → ロードマップ → 各モジュール → 評価 → リソース
func TestMarkdown_SectionOrder(t *testing.T) {
	md := Markdown(sampleCurriculum())

	if !strings.HasPrefix(md, "# Intro to Topology\n") {
		t.Fatalf("markdown should start with the cover heading, got %q", md[:min(len(md), 40)])
	}

	// 行頭の見出しだけを対象にする("### Resources"などのモジュール内小見出しと区別する)
	headings := []string{
		"\n## Roadmap\n",
		"\n## Module 1: Open Sets\n",
		"\n## Module 2: Continuity\n",
		"\n## Assessments\n",
		"\n## Resources\n",
	}
	prev := 0
	for _, h := range headings {
		idx := strings.Index(md, h)
		if idx < 0 {
			t.Fatalf("heading %q not found", strings.TrimSpace(h))
		}
		if idx < prev {
			t.Errorf("heading %q at %d appears before the previous section (%d)", strings.TrimSpace(h), idx, prev)
		}
		prev = idx
	}

	var titles []string
	for _, s := range Sections(sampleCurriculum()) {
		titles = append(titles, s.Title)
	}
	want := []string{"Intro to Topology", "Roadmap", "Module 1: Open Sets", "Module 2: Continuity", "Assessments", "Resources"}
	if strings.Join(titles, "|") != strings.Join(want, "|") {
		t.Errorf("section titles = %v, want %v", titles, want)
	}
}

func TestMarkdown_EmptyCollections(t *testing.T) {
	c := &model.Curriculum{CourseTitle: "Empty", Version: 1}

	md := Markdown(c)

	if !strings.Contains(md, "No assessments defined.") {
		t.Error("missing empty assessments notice")
	}
	if !strings.Contains(md, "No resources listed.") {
		t.Error("missing empty resources notice")
	}
}

func TestExporter_HTML(t *testing.T) {
	e := NewExporter(security.NewContentSanitizer())
	c := sampleCurriculum()
	c.Description = "Open sets <script>alert('x')</script>"

	out, err := e.HTML(c)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	html := string(out)

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Intro to Topology</title>",
		"page-break-after: always",
		"<h1>Intro to Topology</h1>",
		"<h2>Module 1: Open Sets</h2>",
		"<table>",
		`href="https://example.com/lecture-1"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if strings.Contains(html, "<script") {
		t.Error("html contains a script element")
	}
	if n := strings.Count(html, `<section class="page">`); n != 6 {
		t.Errorf("page sections = %d, want 6", n)
	}
}

func TestExporter_Render(t *testing.T) {
	e := NewExporter(security.NewContentSanitizer())

	md, err := e.Render(sampleCurriculum(), FormatMarkdown)
	if err != nil {
		t.Fatalf("Render(md) error = %v", err)
	}
	if !strings.HasPrefix(string(md), "# Intro to Topology") {
		t.Errorf("Render(md) = %q", md[:20])
	}

	if _, err := e.Render(sampleCurriculum(), Format("pdf")); err == nil {
		t.Error("Render(pdf) should fail")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"html", FormatHTML, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if FormatHTML.ContentType() != "text/html; charset=utf-8" || FormatMarkdown.Extension() != ".md" {
		t.Error("unexpected format metadata")
	}
}
