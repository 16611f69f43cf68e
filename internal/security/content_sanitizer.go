package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// カリキュラムのHTMLエクスポート時、Markdownから変換したHTMLに適用される。
type ContentSanitizerService interface {
	// Sanitize は許可リストにないタグと属性を除去したHTMLを返す。
	// 同一入力に対して常に同一出力を返す(冪等)。
	Sanitize(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフなため共有して使用する。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はエクスポート文書用のポリシーを持つContentSanitizerServiceを生成する。
// ポリシーの内容:
//   - 見出し(h1〜h4)、段落、リスト、引用、コード、強調、表、区切り線を許可
//   - aタグはhttp/httpsの絶対URLのみ許可し、target="_blank"とrel="noopener noreferrer"を付与
//   - script, style, iframe, img等の埋め込み要素とon*イベント属性は除去
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h1", "h2", "h3", "h4",
		"p", "br", "hr",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
