package parser

import (
	"strings"
	"testing"
)

func TestHTMLExtractor_LineBreaks(t *testing.T) {
	input := `<html><head><title>t</title><style>p{}</style></head><body>
<p>■イベント名<br>春のお花見会</p>
<p>■日時<br>
  2026/04/01 10:00</p>
<div>■場所 公園</div>
<script>alert(1)</script>
</body></html>`
	p := &HTMLExtractor{}
	got, err := p.Extract(strings.NewReader(input), "notice.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "■イベント名\n春のお花見会\n\n■日時\n2026/04/01 10:00\n\n■場所 公園\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestHTMLExtractor_PreKeepsText(t *testing.T) {
	input := "<body><pre>■説明\n  indented\n</pre></body>"
	p := &HTMLExtractor{}
	got, err := p.Extract(strings.NewReader(input), "pre.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "■説明\nindented\n") {
		t.Errorf("expected pre content line by line, got %q", got)
	}
}

func TestHTMLExtractor_Empty(t *testing.T) {
	p := &HTMLExtractor{}
	got, err := p.Extract(strings.NewReader(""), "empty.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty body, got %q", got)
	}
}
