package library

import (
	"strings"

	"github.com/hitoshi/edumap/internal/model"
)

// All はフィルタを無効にする値。
const All = "All"

// maxSubjects は科目フィルタの選択肢の上限("All"を含む)。
const maxSubjects = 8

// Filter はライブラリの検索条件。空文字と"All"は条件なしとして扱う。
type Filter struct {
	// Query はタイトルまたは説明に含まれる文字列（大文字小文字を区別しない）。
	Query string
	// Subject はタイトルに含まれる文字列（大文字小文字を区別しない）。
	Subject string
	// Level は対象者(targetAudience)と完全一致する文字列。
	Level string
}

func active(v string) bool {
	return v != "" && v != All
}

// Match はカリキュラムが条件に一致するかを返す。
func (f Filter) Match(c *model.Curriculum) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(c.CourseTitle), q) &&
			!strings.Contains(strings.ToLower(c.Description), q) {
			return false
		}
	}
	if active(f.Subject) && !strings.Contains(strings.ToLower(c.CourseTitle), strings.ToLower(f.Subject)) {
		return false
	}
	if active(f.Level) && c.TargetAudience != f.Level {
		return false
	}
	return true
}

// Apply は条件に一致するカリキュラムを元の順序で返す。
func (f Filter) Apply(list []model.Curriculum) []model.Curriculum {
	out := make([]model.Curriculum, 0, len(list))
	for i := range list {
		if f.Match(&list[i]) {
			out = append(out, list[i])
		}
	}
	return out
}

// Subjects は"All"とタイトルの先頭語(重複なし、出現順)を最大8件返す。
func Subjects(list []model.Curriculum) []string {
	subjects := []string{All}
	seen := map[string]bool{All: true}
	for _, c := range list {
		if len(subjects) == maxSubjects {
			break
		}
		first, _, _ := strings.Cut(c.CourseTitle, " ")
		if first == "" || seen[first] {
			continue
		}
		seen[first] = true
		subjects = append(subjects, first)
	}
	return subjects
}
