// Package mailbox reads pending notifications from an IMAP account and
// records their processing. Gmail labels appear as IMAP folders, so moving a
// message between folders swaps its label.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/noticegest/internal/parser"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// ErrLabelNotFound is returned when a configured label folder is missing.
var ErrLabelNotFound = errors.New("label not found")

// Config holds connection and label settings.
type Config struct {
	Addr           string
	Username       string
	Password       string
	TLS            bool
	Label          string // pending notifications
	ProcessedLabel string // destination after delivery
	DialTimeout    time.Duration
}

// Message is one unread notification.
type Message struct {
	UID       uint32
	MessageID string
	Subject   string
	From      string
	Date      time.Time
	Body      string
}

// Client wraps a single IMAP session. The session is not safe for
// concurrent use, so every command runs under mu.
type Client struct {
	mu  sync.Mutex
	c   *client.Client
	cfg Config
	log *slog.Logger
}

// Dial connects and logs in.
func Dial(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 30 * time.Second
	}

	done := make(chan dialResult, 1)
	go func() {
		var c *client.Client
		var err error
		if cfg.TLS {
			c, err = client.DialTLS(cfg.Addr, nil)
		} else {
			c, err = client.Dial(cfg.Addr)
		}
		done <- dialResult{c, err}
	}()

	var res dialResult
	select {
	case res = <-done:
	case <-time.After(cfg.DialTimeout):
		abandonDial(done, log)
		return nil, fmt.Errorf("dial %s: timed out after %s", cfg.Addr, cfg.DialTimeout)
	case <-ctx.Done():
		abandonDial(done, log)
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Addr, res.err)
	}
	res.c.Timeout = cfg.DialTimeout

	if err := res.c.Login(cfg.Username, cfg.Password); err != nil {
		res.c.Logout()
		return nil, fmt.Errorf("login: %w", err)
	}
	log.Info("imap connected", "addr", cfg.Addr, "user", cfg.Username)
	return &Client{c: res.c, cfg: cfg, log: log}, nil
}

type dialResult struct {
	c   *client.Client
	err error
}

// abandonDial logs out a connection that completes after Dial gave up on it.
func abandonDial(done <-chan dialResult, log *slog.Logger) {
	go func() {
		res := <-done
		if res.err != nil {
			return
		}
		log.Debug("closing late imap connection")
		_ = res.c.Logout()
	}()
}

// CheckLabels verifies that both label folders exist.
func (m *Client) CheckLabels(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range []string{m.cfg.Label, m.cfg.ProcessedLabel} {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := m.folderExists(name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrLabelNotFound, name)
		}
	}
	return nil
}

func (m *Client) folderExists(name string) (bool, error) {
	ch := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- m.c.List("", name, ch)
	}()
	found := false
	for info := range ch {
		if info.Name == name {
			found = true
		}
	}
	if err := <-done; err != nil {
		return false, fmt.Errorf("list %s: %w", name, err)
	}
	return found, nil
}

// FetchUnread returns the unseen messages in the pending folder. Bodies are
// fetched with PEEK so reading them does not mark them seen.
func (m *Client) FetchUnread(ctx context.Context) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.c.Select(m.cfg.Label, false); err != nil {
		return nil, fmt.Errorf("select %s: %w", m.cfg.Label, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := m.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- m.c.UidFetch(seqset, items, ch)
	}()

	var out []Message
	for msg := range ch {
		lit := msg.GetBody(section)
		if lit == nil {
			m.log.Warn("message without body", "uid", msg.Uid)
			continue
		}
		mail, err := parser.ReadMail(lit)
		if err != nil {
			m.log.Warn("undecodable message", "uid", msg.Uid, "error", err)
			continue
		}
		out = append(out, Message{
			UID:       msg.Uid,
			MessageID: mail.MessageID,
			Subject:   mail.Subject,
			From:      mail.From,
			Date:      mail.Date,
			Body:      mail.Body,
		})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return out, nil
}

// Ack marks a delivered message as read and moves it to the processed
// label.
func (m *Client) Ack(ctx context.Context, uid uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.c.Select(m.cfg.Label, false); err != nil {
		return fmt.Errorf("select %s: %w", m.cfg.Label, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := m.c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("mark read %d: %w", uid, err)
	}
	if err := m.c.UidMove(seqset, m.cfg.ProcessedLabel); err != nil {
		return fmt.Errorf("move %d to %s: %w", uid, m.cfg.ProcessedLabel, err)
	}
	return nil
}

// Close logs out.
func (m *Client) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.c.Logout()
}
