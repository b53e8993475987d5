package mailbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer runs an in-memory IMAP server with the two label folders.
func startServer(t *testing.T) string {
	t.Helper()
	s := server.New(memory.New())
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go s.Serve(l)
	t.Cleanup(func() { s.Close() })

	c, err := client.Dial(l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Logout()
	if err := c.Login("username", "password"); err != nil {
		t.Fatalf("login: %v", err)
	}
	for _, name := range []string{"circle_square_notify", "processed"} {
		if err := c.Create(name); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	for _, body := range []string{
		"■イベント名 花見\r\n■日時 4/1 10:00\r\n",
		"no markers here\r\n",
	} {
		raw := "From: notify@example.com\r\nSubject: test\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n" + body
		if err := c.Append("circle_square_notify", nil, time.Now(), bytes.NewBufferString(raw)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return l.Addr().String()
}

func testConfig(addr string) Config {
	return Config{
		Addr:           addr,
		Username:       "username",
		Password:       "password",
		Label:          "circle_square_notify",
		ProcessedLabel: "processed",
		DialTimeout:    5 * time.Second,
	}
}

func TestClient_FetchAndAck(t *testing.T) {
	addr := startServer(t)
	ctx := context.Background()

	m, err := Dial(ctx, testConfig(addr), quietLogger())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer m.Close()

	if err := m.CheckLabels(ctx); err != nil {
		t.Fatalf("check labels: %v", err)
	}

	msgs, err := m.FetchUnread(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 unread messages, got %d", len(msgs))
	}
	if msgs[0].Body != "■イベント名 花見\r\n■日時 4/1 10:00\r\n" {
		t.Errorf("unexpected body %q", msgs[0].Body)
	}
	if msgs[0].From != "notify@example.com" {
		t.Errorf("expected from %q, got %q", "notify@example.com", msgs[0].From)
	}

	// Fetching again must not have marked anything read.
	again, err := m.FetchUnread(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(again) != 2 {
		t.Fatalf("expected peek fetch to leave 2 unread, got %d", len(again))
	}

	if err := m.Ack(ctx, msgs[0].UID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	remaining, err := m.FetchUnread(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(remaining) != 1 || remaining[0].UID != msgs[1].UID {
		t.Fatalf("expected only the unacked message to remain, got %+v", remaining)
	}
}

func TestClient_CheckLabelsMissing(t *testing.T) {
	addr := startServer(t)
	cfg := testConfig(addr)
	cfg.ProcessedLabel = "does_not_exist"

	m, err := Dial(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer m.Close()

	if err := m.CheckLabels(context.Background()); !errors.Is(err, ErrLabelNotFound) {
		t.Errorf("expected ErrLabelNotFound, got %v", err)
	}
}

func TestDial_BadCredentials(t *testing.T) {
	addr := startServer(t)
	cfg := testConfig(addr)
	cfg.Password = "wrong"
	if _, err := Dial(context.Background(), cfg, quietLogger()); err == nil {
		t.Error("expected login error")
	}
}
