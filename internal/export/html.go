package export

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hitoshi/edumap/internal/model"
	"github.com/hitoshi/edumap/internal/security"
)

// Format はエクスポート形式。
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat は形式名を解釈する。空の場合はMarkdownとする。
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unsupported export format: %q", s)
}

// ContentType は形式に対応するContent-Typeを返す。
func (f Format) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// Extension はファイル名の拡張子を返す。
func (f Format) Extension() string {
	if f == FormatHTML {
		return ".html"
	}
	return ".md"
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, "Times New Roman", serif; margin: 0 auto; max-width: 52rem; padding: 2rem; color: #1f2933; }
h1 { font-size: 2.2rem; border-bottom: 2px solid #1f2933; padding-bottom: .5rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #cbd2d9; padding: .4rem .6rem; text-align: left; vertical-align: top; }
blockquote { border-left: 4px solid #9aa5b1; margin-left: 0; padding-left: 1rem; color: #52606d; }
section.page { page-break-after: always; break-after: page; }
section.page:last-child { page-break-after: auto; break-after: auto; }
@media print { body { padding: 0; } a { color: inherit; } }
</style>
</head>
<body>
{{range .Sections}}<section class="page">
{{.}}</section>
{{end}}</body>
</html>
`))

// Exporter はカリキュラムを各形式の文書に変換する。
type Exporter struct {
	markdown  goldmark.Markdown
	sanitizer security.ContentSanitizerService
}

// NewExporter はGFM拡張付きのMarkdown変換器を持つExporterを生成する。
func NewExporter(sanitizer security.ContentSanitizerService) *Exporter {
	return &Exporter{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
		sanitizer: sanitizer,
	}
}

// Render は指定形式の文書を返す。
func (e *Exporter) Render(c *model.Curriculum, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return []byte(Markdown(c)), nil
	case FormatHTML:
		return e.HTML(c)
	}
	return nil, fmt.Errorf("unsupported export format: %q", format)
}

// HTML は章ごとにMarkdownをHTMLへ変換・サニタイズし、改ページ付きの印刷用文書として返す。
func (e *Exporter) HTML(c *model.Curriculum) ([]byte, error) {
	sections := Sections(c)
	rendered := make([]template.HTML, 0, len(sections))
	for _, s := range sections {
		var buf bytes.Buffer
		if err := e.markdown.Convert([]byte(s.Markdown), &buf); err != nil {
			return nil, fmt.Errorf("failed to render section %q: %w", s.Title, err)
		}
		rendered = append(rendered, template.HTML(e.sanitizer.Sanitize(buf.String())))
	}

	var out bytes.Buffer
	err := pageTemplate.Execute(&out, struct {
		Title    string
		Sections []template.HTML
	}{
		Title:    c.CourseTitle,
		Sections: rendered,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	return out.Bytes(), nil
}
