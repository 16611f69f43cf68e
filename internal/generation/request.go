package generation

import (
	"fmt"
	"strings"

	"github.com/hitoshi/edumap/internal/model"
)

// Request はカリキュラム生成のフォーム入力。
type Request struct {
	Title         string           `json:"title"`
	Subject       string           `json:"subject"`
	Level         string           `json:"level"`
	Difficulty    model.Difficulty `json:"difficulty"`
	Duration      string           `json:"duration"`
	Goals         string           `json:"goals"`
	IndustryFocus string           `json:"industryFocus"`
	Model         string           `json:"model"`
	// SourceImages はbase64エンコードされたJPEG画像。"data:image/jpeg;base64,"形式の接頭辞を含んでもよい。
	SourceImages []string `json:"sourceImages,omitempty"`
	// SourceImageURLs は取得して添付する画像のURL。
	SourceImageURLs []string `json:"sourceImageUrls,omitempty"`
}

// Validate は必須項目の有無と難易度の値を検証する。
// 期間(Duration)と産業分野(IndustryFocus)は空でもよく、プロンプトでは未指定として扱う。
func (r *Request) Validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"title", r.Title},
		{"subject", r.Subject},
		{"level", r.Level},
		{"goals", r.Goals},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if !r.Difficulty.Valid() {
		return fmt.Errorf("%w: difficulty must be Beginner, Intermediate or Advanced, got %q", ErrInvalidRequest, r.Difficulty)
	}
	return nil
}
