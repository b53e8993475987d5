package parser

import (
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor handles Markdown files using goldmark. Leaf blocks keep
// their source lines; blocks are separated by a blank line.
type MarkdownExtractor struct{}

func (p *MarkdownExtractor) Extract(r io.Reader, filename string) (string, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var blocks []string
	collectBlocks(doc, src, &blocks)
	if len(blocks) == 0 {
		return "", nil
	}
	return strings.Join(blocks, "\n\n") + "\n", nil
}

// collectBlocks walks the AST depth first. Container blocks (lists, quotes)
// have no lines of their own, so their children are visited instead.
func collectBlocks(n ast.Node, src []byte, out *[]string) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() != ast.TypeBlock {
			continue
		}
		lines := c.Lines()
		if lines == nil || lines.Len() == 0 {
			collectBlocks(c, src, out)
			continue
		}
		var buf strings.Builder
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.WriteString(strings.TrimRight(string(line.Value(src)), "\r\n"))
			buf.WriteByte('\n')
		}
		if t := strings.TrimRight(buf.String(), "\n"); t != "" {
			*out = append(*out, t)
		}
	}
}
