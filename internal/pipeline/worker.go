package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/noticegest/internal/notice"
)

// Sender delivers a parsed document downstream.
type Sender interface {
	Send(ctx context.Context, doc notice.Document, idempotencyKey string) error
}

// Worker processes a single notification job.
type Worker struct {
	sender     Sender
	ledger     *Ledger
	log        *slog.Logger
	maxRetries int
	backoff    func(attempt int) time.Duration
}

func NewWorker(sender Sender, ledger *Ledger, log *slog.Logger, maxRetries int) *Worker {
	if maxRetries <= 0 {
		maxRetries = MaxRetries
	}
	return &Worker{
		sender:     sender,
		ledger:     ledger,
		log:        log,
		maxRetries: maxRetries,
		backoff:    Backoff,
	}
}

// Process parses the job body, delivers the document and acknowledges the
// source message. Message state is only touched after a successful send.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "source", job.Source, "ref", job.Ref)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, ok := notice.Parse(job.Body())
	if !ok {
		log.Debug("no section markers, skipping")
		job.SetStatus(StatusUnparseable, "parsing")
		return
	}
	job.SetDocument(doc)

	// Phase 1.5: Dedup check
	fp := job.fingerprint()
	switch w.ledger.Claim(fp) {
	case AlreadyDelivered:
		log.Info("already delivered, acknowledging only")
		if err := w.ack(ctx, job); err != nil {
			log.Error("ack failed", "error", err)
			job.AddError(fmt.Sprintf("ack: %s", err))
			job.SetStatus(StatusFailed, "acking")
			return
		}
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	case InFlight:
		// The worker holding the claim acks the message.
		log.Info("same item is being delivered by another worker")
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	// Phase 2: Deliver
	job.SetStatus(StatusDelivering, "delivering")
	if err := w.deliver(ctx, job, doc, fp, log); err != nil {
		w.ledger.Release(fp)
		log.Error("delivery failed", "error", err)
		job.AddError(fmt.Sprintf("deliver: %s", err))
		job.SetStatus(StatusFailed, "delivering")
		return
	}
	w.ledger.Record(fp)
	log.Info("document delivered", "keys", len(doc))

	// Phase 3: Ack
	job.SetStatus(StatusAcking, "acking")
	if err := w.ack(ctx, job); err != nil {
		log.Error("ack failed", "error", err)
		job.AddError(fmt.Sprintf("ack: %s", err))
		job.SetStatus(StatusFailed, "acking")
		return
	}
	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) deliver(ctx context.Context, job *Job, doc notice.Document, idempotencyKey string, log *slog.Logger) error {
	var lastErr error
	for attempt := range w.maxRetries {
		job.IncrAttempts()
		lastErr = w.sender.Send(ctx, doc, idempotencyKey)
		if lastErr == nil || !IsRetryable(lastErr) || attempt == w.maxRetries-1 {
			break
		}
		log.Warn("retryable delivery error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (w *Worker) ack(ctx context.Context, job *Job) error {
	ack := job.ackFunc()
	if ack == nil {
		return nil
	}
	return ack(ctx)
}
