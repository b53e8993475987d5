package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Mail is a decoded RFC 5322 message reduced to what the pipeline needs.
type Mail struct {
	MessageID string
	Subject   string
	From      string
	Date      time.Time
	Body      string
}

// ErrNoTextBody is returned when a message has neither a text/plain nor a
// text/html part.
var ErrNoTextBody = errors.New("message has no text body")

// ReadMail decodes a raw message. The first text/plain part is the body;
// without one, the first text/html part is converted to text.
func ReadMail(r io.Reader) (*Mail, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	m := &Mail{}
	m.MessageID, _ = mr.Header.MessageID()
	m.Subject, _ = mr.Header.Subject()
	m.Date, _ = mr.Header.Date()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		m.From = from[0].Address
	}

	var plain, htmlBody []byte
	var havePlain, haveHTML bool
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, fmt.Errorf("read part: %w", err)
		}
		if p == nil {
			continue
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		switch {
		case ct == "text/plain" && !havePlain:
			if plain, err = io.ReadAll(p.Body); err != nil {
				return nil, fmt.Errorf("read text part: %w", err)
			}
			havePlain = true
		case ct == "text/html" && !haveHTML:
			if htmlBody, err = io.ReadAll(p.Body); err != nil {
				return nil, fmt.Errorf("read html part: %w", err)
			}
			haveHTML = true
		}
	}

	switch {
	case havePlain:
		m.Body = string(plain)
	case haveHTML:
		text, err := (&HTMLExtractor{}).Extract(bytes.NewReader(htmlBody), "")
		if err != nil {
			return nil, err
		}
		m.Body = text
	default:
		return nil, ErrNoTextBody
	}
	return m, nil
}

// MailExtractor handles saved .eml messages.
type MailExtractor struct{}

func (p *MailExtractor) Extract(r io.Reader, filename string) (string, error) {
	m, err := ReadMail(r)
	if err != nil {
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(filename), err)
	}
	return m.Body, nil
}
