package generation

import (
	"fmt"
	"strings"
)

const notSpecified = "(not specified)"

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

// BuildPrompt は生成モデルへの指示文を組み立てる。
// フォームの全項目、難易度ごとの方針、必須要件、添付画像の枚数を含む。
func BuildPrompt(req *Request, imageCount int) string {
	var b strings.Builder

	b.WriteString("Generate a high-fidelity academic curriculum for:\n")
	fmt.Fprintf(&b, "- Course Title: %s\n", req.Title)
	fmt.Fprintf(&b, "- Subject Area: %s\n", req.Subject)
	fmt.Fprintf(&b, "- Academic Level: %s\n", req.Level)
	fmt.Fprintf(&b, "- Course Difficulty: %s\n", req.Difficulty)
	fmt.Fprintf(&b, "- Target Duration: %s\n", orNotSpecified(req.Duration))
	fmt.Fprintf(&b, "- Core Goals: %s\n", req.Goals)
	fmt.Fprintf(&b, "- Industry Focus: %s\n", orNotSpecified(req.IndustryFocus))

	fmt.Fprintf(&b, "\nDIFFICULTY POLICY (%s):\n", req.Difficulty)
	b.WriteString("- If Beginner: use foundational language, assume no prior knowledge, focus on core definitions and simple applications.\n")
	b.WriteString("- If Intermediate: assume basic knowledge, focus on integrating concepts, case studies and practical implementation.\n")
	b.WriteString("- If Advanced: assume mastery of the basics, focus on theoretical depth, research-grade problems, complex system design and critical evaluation.\n")

	fmt.Fprintf(&b, "\nATTACHED SOURCE DATA: %d image(s) of a syllabus or book are attached.", imageCount)
	if imageCount > 0 {
		b.WriteString(" Strictly align the generated content with these images.")
	}
	b.WriteString("\n")

	b.WriteString("\nHARD REQUIREMENTS:\n")
	b.WriteString("1. TEXTBOOKS: every \"Reading\" resource must specify \"title\" and \"author\" of a real or highly probable academic text.\n")
	b.WriteString("2. VIDEOS: \"Video\" resources must name real or highly plausible lectures or educational series.\n")
	b.WriteString("3. ASSESSMENTS: every assessment must include a \"sampleConcepts\" array with 3-5 key concepts tested.\n")
	b.WriteString("4. MODULE ASSIGNMENTS: include 2-3 \"sampleQuestions\" for every Quiz or Test assignment.\n")
	b.WriteString("5. DURATION: every module must have an explicit duration (e.g. \"5 Hours\").\n")
	b.WriteString("6. OVERVIEW: the course description must cover what is taught, why it matters and how it is taught.\n")

	return b.String()
}
