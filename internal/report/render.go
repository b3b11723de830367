package report

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ToHTML renders markdown as an HTML fragment.
func ToHTML(md []byte) string {
	return render(md, mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
}

// ToHTMLPage renders markdown as a standalone HTML document.
func ToHTMLPage(md []byte, title string) string {
	return render(md, mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank | mdhtml.CompletePage,
		Title: title,
	})
}

func render(md []byte, opts mdhtml.RendererOptions) string {
	renderer := mdhtml.NewRenderer(opts)
	ext := parser.CommonExtensions | parser.Attributes
	p := parser.NewWithExtensions(ext)
	doc := p.Parse(md)
	return string(markdown.Render(doc, renderer))
}

var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// ToPlainText renders markdown and strips the markup, for terminals.
func ToPlainText(md []byte) string {
	text := html.UnescapeString(StripHTMLTags(ToHTML(md)))
	return strings.TrimSpace(blankLinesRe.ReplaceAllString(text, "\n\n"))
}

func StripHTMLTags(htmlContent string) string {
	var result bytes.Buffer
	inTag := false

	for _, ch := range htmlContent {
		switch ch {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				result.WriteRune(ch)
			}
		}
	}

	return result.String()
}
