package query

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const snippetLen = 120

// plainText renders markdown down to the text a result list can show:
// formatting is stripped, block boundaries become single spaces.
func plainText(markdown string) string {
	md := goldmark.New()
	source := []byte(markdown)
	node := md.Parser().Parse(text.NewReader(source))

	var builder strings.Builder
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindText:
			builder.Write(n.(*ast.Text).Segment.Value(source))
			builder.WriteByte(' ')
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			// Code and raw HTML add noise to a snippet.
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(builder.String()), " ")
}

// snippet returns a short plain-text excerpt of markdown content centered
// on the first occurrence of query, falling back to the leading text when
// the match only lives in formatting that got stripped.
func snippet(markdown, query string) string {
	plain := plainText(markdown)
	if plain == "" {
		return ""
	}

	runes := []rune(plain)
	start := 0
	if query != "" {
		if idx := strings.Index(strings.ToLower(plain), strings.ToLower(query)); idx >= 0 {
			// Center the window on the match, in rune terms.
			before := len([]rune(plain[:idx]))
			start = before - snippetLen/2
			if start < 0 {
				start = 0
			}
		}
	}

	end := start + snippetLen
	if end > len(runes) {
		end = len(runes)
		if start = end - snippetLen; start < 0 {
			start = 0
		}
	}

	out := string(runes[start:end])
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out += "…"
	}
	return out
}
