package utils

import (
	"bytes"
	stdhtml "html"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Poll descriptions are short prose under the question. Headings, tables and
// raw HTML are dropped; their text survives.
var (
	descriptionMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	descriptionPolicy = newDescriptionPolicy()
	plainText         = newPlainTextPolicy()
)

func newDescriptionPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "del", "code", "pre", "blockquote", "ul", "ol", "li")
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireParseableURLs(true)
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

func newPlainTextPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

func renderDescription(source string) ([]byte, bool) {
	var buf bytes.Buffer
	if err := descriptionMarkdown.Convert([]byte(source), &buf); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// RenderMarkdown turns a poll description into sanitised HTML for the poll page.
func RenderMarkdown(source string) template.HTML {
	source = strings.TrimSpace(source)
	if source == "" {
		return ""
	}

	out, ok := renderDescription(source)
	if !ok {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return EnhanceHTMLContent(string(descriptionPolicy.SanitizeBytes(out)))
}

// DescriptionExcerpt is the description as one line of plain text, cut to at
// most max runes. Used on poll cards.
func DescriptionExcerpt(source string, max int) string {
	source = strings.TrimSpace(source)
	if source == "" || max <= 0 {
		return ""
	}

	text := source
	if out, ok := renderDescription(source); ok {
		text = stdhtml.UnescapeString(plainText.Sanitize(string(out)))
	}
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	cut := strings.TrimRight(string(runes[:max-1]), " ")
	return cut + "…"
}
