package mailbox

import (
	"context"
	"errors"
	"testing"
)

func TestSession_RedialsAfterFailure(t *testing.T) {
	addr := startServer(t)
	ctx := context.Background()

	s := NewSession(testConfig(addr), quietLogger())
	defer s.Close()

	if err := s.CheckLabels(ctx); err != nil {
		t.Fatalf("check labels: %v", err)
	}
	msgs, err := s.FetchUnread(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 unread messages, got %d", len(msgs))
	}

	// Kill the connection underneath the session.
	s.mu.Lock()
	s.c.c.Logout()
	s.mu.Unlock()

	if _, err := s.FetchUnread(ctx); err == nil {
		t.Fatal("expected fetch on a dead connection to fail")
	}
	msgs, err = s.FetchUnread(ctx)
	if err != nil {
		t.Fatalf("fetch after redial: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("expected 2 unread messages after redial, got %d", len(msgs))
	}
}

func TestSession_MissingLabelKeepsConnection(t *testing.T) {
	addr := startServer(t)
	cfg := testConfig(addr)
	cfg.ProcessedLabel = "nope"

	s := NewSession(cfg, quietLogger())
	defer s.Close()

	if err := s.CheckLabels(context.Background()); !errors.Is(err, ErrLabelNotFound) {
		t.Fatalf("expected ErrLabelNotFound, got %v", err)
	}
	s.mu.Lock()
	kept := s.c != nil
	s.mu.Unlock()
	if !kept {
		t.Error("expected connection to survive a missing label")
	}
}

func TestSession_DialFailure(t *testing.T) {
	addr := startServer(t)
	cfg := testConfig(addr)
	cfg.Password = "wrong"

	s := NewSession(cfg, quietLogger())
	if err := s.CheckLabels(context.Background()); err == nil {
		t.Fatal("expected login failure")
	}
}
