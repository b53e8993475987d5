package parser

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// HTMLExtractor handles HTML files and HTML-only mail parts. Block elements
// and <br> become line breaks so markers land at the start of a line.
type HTMLExtractor struct{}

func (p *HTMLExtractor) Extract(r io.Reader, filename string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	var buf strings.Builder
	renderText(&buf, root, false)
	return normalizeLines(buf.String()), nil
}

var (
	spaceRun     = regexp.MustCompile(`[ \t\r\n\f]+`)
	blankLineRun = regexp.MustCompile(`\n{3,}`)
)

func renderText(buf *strings.Builder, n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		if pre {
			buf.WriteString(n.Data)
		} else {
			buf.WriteString(spaceRun.ReplaceAllString(n.Data, " "))
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "head", "title", "noscript":
			return
		case "br":
			buf.WriteString("\n")
			return
		case "pre":
			pre = true
		}
	}

	sep := blockSeparator(n)
	if sep != "" {
		breakLine(buf)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(buf, c, pre)
	}
	if sep != "" {
		breakLine(buf)
		if sep == "\n\n" {
			buf.WriteString("\n")
		}
	}
}

// blockSeparator reports how a block element is set off from its
// neighbours: "\n\n" for paragraphs and headings, "\n" for other blocks.
func blockSeparator(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	switch n.Data {
	case "p", "h1", "h2", "h3", "h4", "h5", "h6":
		return "\n\n"
	case "div", "li", "tr", "table", "ul", "ol", "blockquote", "section",
		"article", "header", "footer", "pre", "hr", "dd", "dt", "dl":
		return "\n"
	}
	return ""
}

func breakLine(buf *strings.Builder) {
	s := buf.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		buf.WriteString("\n")
	}
}

// normalizeLines trims horizontal space around every line and collapses
// runs of blank lines to one.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Trim(line, " \t\u00a0")
	}
	s = strings.Join(lines, "\n")
	s = blankLineRun.ReplaceAllString(s, "\n\n")
	s = strings.TrimLeft(s, "\n")
	if s == "" {
		return ""
	}
	return strings.TrimRight(s, "\n") + "\n"
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
