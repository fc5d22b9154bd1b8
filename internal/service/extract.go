package service

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

type sourceKind string

const (
	sourcePlain    sourceKind = "plain"
	sourceMarkdown sourceKind = "markdown"
)

// detectKind decides how an uploaded file is read, by extension first
// and then by sniffing the leading bytes.
func detectKind(filename, contentType string, head []byte) (sourceKind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return sourceMarkdown, nil
	case ".txt", ".text":
		return sourcePlain, nil
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(head)
	}
	switch {
	case strings.HasPrefix(ct, "text/markdown"), strings.HasPrefix(ct, "text/x-markdown"):
		return sourceMarkdown, nil
	case strings.HasPrefix(ct, "text/plain"):
		return sourcePlain, nil
	}
	return "", fmt.Errorf("%w: unsupported file type %q", appErr.ErrInvalid, ct)
}

func extractText(kind sourceKind, raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: file is not valid utf-8", appErr.ErrInvalid)
	}
	if kind == sourceMarkdown {
		return markdownToText(raw), nil
	}
	return normalizeNewlines(string(raw)), nil
}

// markdownToText flattens markdown into plain paragraphs separated by a
// blank line, so the splitter's paragraph separator lines up with blocks.
func markdownToText(src []byte) string {
	reader := text.NewReader(src)
	doc := goldmark.New().Parser().Parse(reader)
	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if s := strings.TrimSpace(blockText(node, reader.Source())); s != "" {
			blocks = append(blocks, s)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func blockText(node ast.Node, source []byte) string {
	switch n := node.(type) {
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			b.Write(line.Value(source))
		}
		return strings.TrimRight(b.String(), "\n")
	case *ast.List, *ast.Blockquote, *ast.ListItem:
		var parts []string
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			if s := strings.TrimSpace(blockText(child, source)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case *ast.ThematicBreak:
		return ""
	default:
		return inlineText(node, source)
	}
}

// inlineText keeps soft line breaks as spaces and hard ones as newlines.
func inlineText(node ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			v := t.Segment.Value(source)
			if t.HardLineBreak() || t.SoftLineBreak() {
				v = bytes.TrimRight(v, " \t")
			}
			b.Write(v)
			if t.HardLineBreak() {
				b.WriteByte('\n')
			} else if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.AutoLink:
			b.Write(t.URL(source))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
