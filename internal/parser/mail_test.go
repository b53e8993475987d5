package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestReadMail_PlainText(t *testing.T) {
	raw := "From: Circle Square <notify@example.com>\r\n" +
		"To: me@example.com\r\n" +
		"Subject: =?UTF-8?B?44GK55+l44KJ44Gb?=\r\n" +
		"Message-ID: <abc@example.com>\r\n" +
		"Date: Wed, 01 Apr 2026 09:00:00 +0900\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: 8bit\r\n" +
		"\r\n" +
		"■イベント名 花見\r\n■日時 4/1 10:00\r\n"

	m, err := ReadMail(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Subject != "お知らせ" {
		t.Errorf("expected subject %q, got %q", "お知らせ", m.Subject)
	}
	if m.From != "notify@example.com" {
		t.Errorf("expected from %q, got %q", "notify@example.com", m.From)
	}
	if m.MessageID != "abc@example.com" {
		t.Errorf("expected message id %q, got %q", "abc@example.com", m.MessageID)
	}
	if !strings.HasPrefix(m.Body, "■イベント名 花見\r\n") {
		t.Errorf("expected body to start with the first marker line, got %q", m.Body)
	}
}

func TestReadMail_PrefersPlainOverHTML(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Subject: multi\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>■場所<br>html</p>\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"■場所\r\nplain\r\n" +
		"--XYZ--\r\n"

	m, err := ReadMail(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(m.Body, "plain") {
		t.Errorf("expected plain part, got %q", m.Body)
	}
}

func TestReadMail_HTMLOnly(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Subject: html\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><p>■場所<br>公園</p></body></html>\r\n"

	m, err := ReadMail(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Body != "■場所\n公園\n" {
		t.Errorf("expected %q, got %q", "■場所\n公園\n", m.Body)
	}
}

func TestReadMail_NoTextBody(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: image/png\r\n" +
		"\r\n" +
		"PNG\r\n"

	_, err := ReadMail(strings.NewReader(raw))
	if !errors.Is(err, ErrNoTextBody) {
		t.Errorf("expected ErrNoTextBody, got %v", err)
	}
}

func TestMailExtractor(t *testing.T) {
	raw := "From: a@example.com\r\nContent-Type: text/plain\r\n\r\n■説明\r\n本文\r\n"
	got, err := (&MailExtractor{}).Extract(strings.NewReader(raw), "notice.eml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "■説明\r\n本文\r\n" {
		t.Errorf("expected %q, got %q", "■説明\r\n本文\r\n", got)
	}
}
