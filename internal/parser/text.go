package parser

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrTooLarge is returned when input exceeds an extractor's size limit.
var ErrTooLarge = errors.New("input exceeds size limit")

// TextExtractor handles plain text files. The body is returned byte for
// byte, line endings included. A body over MaxBytes (when positive) is
// rejected rather than cut.
type TextExtractor struct {
	MaxBytes int64
}

func (p *TextExtractor) Extract(r io.Reader, filename string) (string, error) {
	if p.MaxBytes > 0 {
		r = io.LimitReader(r, p.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filename, err)
	}
	if p.MaxBytes > 0 && int64(len(data)) > p.MaxBytes {
		return "", fmt.Errorf("%s: %w (%d bytes)", filename, ErrTooLarge, p.MaxBytes)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: body is not valid UTF-8", filename)
	}
	return string(data), nil
}
