package mailbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Session is a Client that dials lazily and redials after a command fails
// for any reason other than a missing label. IMAP servers drop idle
// connections, so a long-running poller should use a Session rather than a
// single Client.
type Session struct {
	cfg Config
	log *slog.Logger

	mu sync.Mutex
	c  *Client
}

func NewSession(cfg Config, log *slog.Logger) *Session {
	return &Session{cfg: cfg, log: log}
}

func (s *Session) client(ctx context.Context) (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return s.c, nil
	}
	c, err := Dial(ctx, s.cfg, s.log)
	if err != nil {
		return nil, err
	}
	s.c = c
	return c, nil
}

// drop discards c after a failure so the next call dials again.
func (s *Session) drop(c *Client, err error) {
	if err == nil || errors.Is(err, ErrLabelNotFound) || errors.Is(err, context.Canceled) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != c {
		return
	}
	s.log.Warn("imap session reset", "error", err)
	_ = c.Close()
	s.c = nil
}

func (s *Session) CheckLabels(ctx context.Context) error {
	c, err := s.client(ctx)
	if err != nil {
		return err
	}
	err = c.CheckLabels(ctx)
	s.drop(c, err)
	return err
}

func (s *Session) FetchUnread(ctx context.Context) ([]Message, error) {
	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	msgs, err := c.FetchUnread(ctx)
	s.drop(c, err)
	return msgs, err
}

func (s *Session) Ack(ctx context.Context, uid uint32) error {
	c, err := s.client(ctx)
	if err != nil {
		return err
	}
	err = c.Ack(ctx, uid)
	s.drop(c, err)
	return err
}

// Close logs out of the current connection, if any.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return nil
	}
	err := s.c.Close()
	s.c = nil
	return err
}
