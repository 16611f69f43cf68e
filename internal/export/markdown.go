// Package export はカリキュラムを配布用の文書(Markdown、印刷用HTML)に変換する。
// 文書は表紙、ロードマップ、モジュールごとの章、評価方法、リソース一覧の順に構成される。
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hitoshi/edumap/internal/model"
	"github.com/hitoshi/edumap/internal/resource"
)

// Section は文書の1章。HTML出力では章ごとに改ページする。
type Section struct {
	Title    string
	Markdown string
}

// Sections はカリキュラムを章に分割したMarkdownを返す。
// フィールドの値は加工せずそのまま出力し、リソースのリンクはリゾルバーで解決する。
func Sections(c *model.Curriculum) []Section {
	sections := []Section{
		{Title: c.CourseTitle, Markdown: cover(c)},
		{Title: "Roadmap", Markdown: roadmap(c)},
	}
	for i, m := range c.Modules {
		sections = append(sections, Section{
			Title:    fmt.Sprintf("Module %d: %s", i+1, m.Title),
			Markdown: module(i+1, m, c.CourseTitle),
		})
	}
	sections = append(sections,
		Section{Title: "Assessments", Markdown: assessments(c)},
		Section{Title: "Resources", Markdown: resources(c)},
	)
	return sections
}

// Markdown はカリキュラム全体をMarkdown文書として返す。
func Markdown(c *model.Curriculum) string {
	sections := Sections(c)
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, strings.TrimRight(s.Markdown, "\n"))
	}
	return strings.Join(parts, "\n\n---\n\n") + "\n"
}

func cover(c *model.Curriculum) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.CourseTitle)
	if c.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", c.Description)
	}
	field(&b, "Target Audience", c.TargetAudience)
	field(&b, "Difficulty", string(c.Difficulty))
	field(&b, "Total Duration", c.TotalDuration)
	field(&b, "Version", strconv.Itoa(c.Version))
	field(&b, "Model", c.ModelUsed)
	field(&b, "Created", c.CreatedAt)
	return b.String()
}

func roadmap(c *model.Curriculum) string {
	var b strings.Builder
	b.WriteString("## Roadmap\n\n")
	if c.PedagogicalPhilosophy != "" {
		fmt.Fprintf(&b, "> %s\n\n", c.PedagogicalPhilosophy)
	}

	if len(c.LearningOutcomes) > 0 {
		b.WriteString("### Learning Outcomes\n\n")
		for _, o := range c.LearningOutcomes {
			fmt.Fprintf(&b, "- **%s**: %s\n", o.Level, o.Outcome)
		}
		b.WriteString("\n")
	}

	if len(c.Modules) > 0 {
		b.WriteString("### Modules\n\n")
		for i, m := range c.Modules {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, m.Title, m.Duration)
		}
		b.WriteString("\n")
	}

	ia := c.IndustryAlignment
	b.WriteString("### Industry Alignment\n\n")
	field(&b, "Relevance Score", strconv.FormatFloat(ia.RelevanceScore, 'f', -1, 64))
	field(&b, "Skills", strings.Join(ia.Skills, ", "))
	field(&b, "Job Roles", strings.Join(ia.JobRoles, ", "))
	if ia.Reasoning != "" {
		fmt.Fprintf(&b, "%s\n", ia.Reasoning)
	}
	return b.String()
}

func module(n int, m model.Module, subjectHint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Module %d: %s\n\n", n, m.Title)
	field(&b, "Duration", m.Duration)
	field(&b, "Strategy", m.PedagogicalStrategy)

	list(&b, "Objectives", m.Objectives)
	list(&b, "Topics", m.Topics)

	if len(m.KeyConcepts) > 0 {
		b.WriteString("### Key Concepts\n\n")
		for _, k := range m.KeyConcepts {
			fmt.Fprintf(&b, "- **%s**: %s\n", k.Concept, k.Explanation)
		}
		b.WriteString("\n")
	}

	if len(m.Resources) > 0 {
		b.WriteString("### Resources\n\n")
		for _, r := range m.Resources {
			fmt.Fprintf(&b, "- %s\n", resourceLine(r, subjectHint))
		}
		b.WriteString("\n")
	}

	if len(m.Assignments) > 0 {
		b.WriteString("### Assignments\n\n")
		for _, a := range m.Assignments {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", a.Title, a.Type, a.Deliverable)
			for _, q := range a.SampleQuestions {
				fmt.Fprintf(&b, "  - %s\n", q)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func assessments(c *model.Curriculum) string {
	var b strings.Builder
	b.WriteString("## Assessments\n\n")
	if len(c.Assessments) == 0 {
		b.WriteString("No assessments defined.\n")
		return b.String()
	}

	b.WriteString("| Type | Weight | Description |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, a := range c.Assessments {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(a.Type), cell(a.Weight), cell(a.Description))
	}
	b.WriteString("\n")

	for _, a := range c.Assessments {
		if len(a.SampleConcepts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "**%s** concepts: %s\n\n", a.Type, strings.Join(a.SampleConcepts, ", "))
	}
	return b.String()
}

func resources(c *model.Curriculum) string {
	var b strings.Builder
	b.WriteString("## Resources\n\n")

	byType := make(map[model.ResourceType][]model.Resource)
	var other []model.Resource
	for _, r := range c.Resources() {
		switch r.Type {
		case model.ResourceReading, model.ResourceVideo, model.ResourceTool, model.ResourceDataset:
			byType[r.Type] = append(byType[r.Type], r)
		default:
			other = append(other, r)
		}
	}

	empty := true
	for _, t := range model.ResourceTypes() {
		if len(byType[t]) == 0 {
			continue
		}
		empty = false
		fmt.Fprintf(&b, "### %s\n\n", t)
		for _, r := range byType[t] {
			fmt.Fprintf(&b, "- %s\n", resourceLine(r, c.CourseTitle))
		}
		b.WriteString("\n")
	}
	if len(other) > 0 {
		empty = false
		b.WriteString("### Other\n\n")
		for _, r := range other {
			fmt.Fprintf(&b, "- %s\n", resourceLine(r, c.CourseTitle))
		}
		b.WriteString("\n")
	}
	if empty {
		b.WriteString("No resources listed.\n")
	}
	return b.String()
}

// resourceLine はリソースを「[タイトル](URL) by 著者 (種別): 説明」の形で返す。
func resourceLine(r model.Resource, subjectHint string) string {
	line := fmt.Sprintf("[%s](%s)", r.Title, resource.Resolve(r, subjectHint))
	if r.Author != "" {
		line += " by " + r.Author
	}
	line += fmt.Sprintf(" (%s)", r.Type)
	if r.Description != "" {
		line += ": " + r.Description
	}
	return line
}

func field(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "**%s:** %s  \n", label, value)
}

func list(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// cell は表のセルで区切り文字として解釈される文字をエスケープする。
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
