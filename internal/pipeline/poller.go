package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dgallion1/noticegest/internal/mailbox"
)

// Source is the mail account the poller reads from.
type Source interface {
	CheckLabels(ctx context.Context) error
	FetchUnread(ctx context.Context) ([]mailbox.Message, error)
	Ack(ctx context.Context, uid uint32) error
}

// Submitter accepts jobs for processing.
type Submitter interface {
	Submit(job *Job) error
}

// PollResult summarizes one poll round.
type PollResult struct {
	Fetched     int `json:"fetched"`
	Completed   int `json:"completed"`
	Unparseable int `json:"unparseable"`
	Duplicates  int `json:"duplicates"`
	Failed      int `json:"failed"`
}

// Poller turns unread mail into jobs, one round at a time.
type Poller struct {
	src      Source
	sub      Submitter
	log      *slog.Logger
	interval time.Duration
	trigger  chan struct{}

	round sync.Mutex // one round at a time

	mu   sync.Mutex
	last PollResult
}

func NewPoller(src Source, sub Submitter, interval time.Duration, log *slog.Logger) *Poller {
	return &Poller{
		src:      src,
		sub:      sub,
		log:      log,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Poll runs one round: check labels, fetch unread mail, submit a job per
// message and wait for all of them to finish.
func (p *Poller) Poll(ctx context.Context) (PollResult, error) {
	p.round.Lock()
	defer p.round.Unlock()

	var res PollResult
	if err := p.src.CheckLabels(ctx); err != nil {
		p.log.Error("label check failed", "error", err)
		return res, err
	}

	msgs, err := p.src.FetchUnread(ctx)
	if err != nil {
		p.log.Error("fetch unread failed", "error", err)
		return res, err
	}
	res.Fetched = len(msgs)
	if len(msgs) == 0 {
		p.log.Debug("no unread notifications")
		p.setLast(res)
		return res, nil
	}

	jobs := make([]*Job, 0, len(msgs))
	for _, m := range msgs {
		job := NewJob(SourceIMAP, strconv.FormatUint(uint64(m.UID), 10), m.Body)
		job.Subject = m.Subject
		if m.MessageID != "" {
			job.SetIdentity(m.MessageID)
		}
		uid := m.UID
		job.SetAck(func(ctx context.Context) error {
			return p.src.Ack(ctx, uid)
		})
		if err := p.sub.Submit(job); err != nil {
			p.log.Warn("submit failed", "uid", uid, "error", err)
			res.Failed++
			continue
		}
		jobs = append(jobs, job)
	}

	for _, job := range jobs {
		select {
		case <-job.Done():
		case <-ctx.Done():
			return res, ctx.Err()
		}
		switch job.Snapshot().Status {
		case StatusCompleted:
			res.Completed++
		case StatusUnparseable:
			res.Unparseable++
		case StatusDupSkipped:
			res.Duplicates++
		default:
			res.Failed++
		}
	}

	p.log.Info("poll complete",
		"fetched", res.Fetched,
		"completed", res.Completed,
		"unparseable", res.Unparseable,
		"duplicates", res.Duplicates,
		"failed", res.Failed,
	)
	p.setLast(res)
	return res, nil
}

func (p *Poller) setLast(res PollResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = res
}

// Trigger requests a poll round outside the schedule. It reports false when
// a request is already pending.
func (p *Poller) Trigger() bool {
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Last returns the result of the most recent completed round.
func (p *Poller) Last() PollResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Run polls on every tick and on Trigger until ctx is done. A zero interval
// disables the schedule; rounds then only run on Trigger.
func (p *Poller) Run(ctx context.Context) {
	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-p.trigger:
		}
		p.Poll(ctx)
	}
}
