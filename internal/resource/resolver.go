// Package resource は教材リソースのリンクを解決する。
// URLが無い・不正なリソースには検索サイトのURLを導出し、リンク切れを表示しない。
package resource

import (
	"net/url"
	"strings"

	"github.com/hitoshi/edumap/internal/model"
)

const (
	youtubeSearchURL     = "https://www.youtube.com/results?search_query="
	scholarSearchURL     = "https://scholar.google.com/scholar?q="
	googleSearchURL      = "https://www.google.com/search?q="
	nptelSearchURL       = "https://nptel.ac.in/courses?search="
	springboardSearchURL = "https://springboard.infosys.com/search?q="
)

// placeholderURL は生成モデルがURL不明時に返すプレースホルダー。
const placeholderURL = "#"

// Resolve はリソースの遷移先URLを返す。
// 有効なURLを持つ場合はそのまま返し、そうでなければ種別ごとの検索URLを導出する。
// 同じ入力には常に同じURLを返す。subjectHintは科目名で、現在の導出規則では参照しない。
func Resolve(res model.Resource, subjectHint string) string {
	if HasUsableURL(res) {
		return res.URL
	}

	titleAuthor := res.Title
	if res.Author != "" {
		titleAuthor += " " + res.Author
	}
	query := encodeComponent(titleAuthor)
	fullQuery := encodeComponent(res.Title + " " + res.Author + " " + res.Description)

	switch res.Type {
	case model.ResourceVideo:
		if link := platformVideoLink(res); link != "" {
			return link
		}
		return youtubeSearchURL + query
	case model.ResourceReading:
		return scholarSearchURL + fullQuery
	case model.ResourceTool:
		return googleSearchURL + query + "+download"
	case model.ResourceDataset:
		return googleSearchURL + query + "+dataset"
	default:
		return googleSearchURL + fullQuery
	}
}

// platformVideoLink はタイトルと説明に教育プラットフォーム名が含まれる場合、
// そのプラットフォームの検索URLを返す。該当しない場合は空文字を返す。
func platformVideoLink(res model.Resource) string {
	combined := strings.ToLower(res.Title + " " + res.Description)

	switch {
	case strings.Contains(combined, "nptel"):
		return nptelSearchURL + encodeComponent(res.Title)
	case strings.Contains(combined, "springboard"), strings.Contains(combined, "infosys"):
		return springboardSearchURL + encodeComponent(res.Title)
	}
	return ""
}

// HasUsableURL はリソースのURLが空でなく、プレースホルダーでなく、http/httpsの絶対URLかを返す。
// 到達性は確認しない。
func HasUsableURL(res model.Resource) bool {
	raw := strings.TrimSpace(res.URL)
	if raw == "" || res.URL == placeholderURL {
		return false
	}
	return ValidURL(res.URL)
}

// ValidURL は文字列がホストを持つhttp/httpsの絶対URLかを返す。
// javascript:やmailto:などそれ以外のスキームは遷移先として扱わない。
func ValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}
	return u.Hostname() != ""
}

// Enrich は使えるURLを持たないリソースに導出URLを設定した新しいスライスを返す。
// 元のスライスは変更しない。
func Enrich(resources []model.Resource, subjectHint string) []model.Resource {
	out := make([]model.Resource, len(resources))
	for i, res := range resources {
		if !HasUsableURL(res) {
			res.URL = Resolve(res, subjectHint)
		}
		out[i] = res
	}
	return out
}

// EnrichCurriculum はカリキュラム内の全モジュールのリソースにEnrichを適用する。
func EnrichCurriculum(c *model.Curriculum, subjectHint string) {
	for i := range c.Modules {
		c.Modules[i].Resources = Enrich(c.Modules[i].Resources, subjectHint)
	}
}

// encodeComponent はクエリ文字列の値として文字列をエスケープする。空白は%20になる。
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
