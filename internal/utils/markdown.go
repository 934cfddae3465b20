package utils

import (
	"bytes"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// renderer pairs a markdown dialect with the sanitizer its output goes through.
type renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

var (
	// Theses are long-form: tables, headings and task lists are allowed.
	thesisRenderer = renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
		),
		policy: bluemonday.UGCPolicy(),
	}

	// Comments get inline formatting, lists, quotes and links only.
	commentRenderer = renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
		),
		policy: commentPolicy(),
	}
)

func init() {
	for _, p := range []*bluemonday.Policy{thesisRenderer.policy, commentRenderer.policy} {
		p.AddTargetBlankToFullyQualifiedLinks(true)
		p.RequireNoReferrerOnLinks(true)
	}
}

func commentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.AllowElements("p", "br", "strong", "em", "del", "code", "pre", "blockquote", "ul", "ol", "li")
	return p
}

func (r renderer) render(source string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return html.EscapeString(source)
	}
	return EnhanceHTMLContent(string(r.policy.SanitizeBytes(buf.Bytes())))
}

// RenderThesis turns a pitch thesis into sanitized HTML. The stored text is
// never modified.
func RenderThesis(source string) string {
	return thesisRenderer.render(source)
}

// RenderComment is RenderThesis for comments, with a narrower element set.
func RenderComment(source string) string {
	return commentRenderer.render(source)
}
