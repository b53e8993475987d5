package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/noticegest/internal/notice"
	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// JobStatus represents the state of a delivery job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusDelivering  JobStatus = "delivering"
	StatusAcking      JobStatus = "acking"
	StatusCompleted   JobStatus = "completed"
	StatusUnparseable JobStatus = "unparseable"
	StatusDupSkipped  JobStatus = "duplicate_skipped"
	StatusFailed      JobStatus = "failed"
)

// Terminal reports whether no further transition follows s.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusUnparseable, StatusDupSkipped, StatusFailed:
		return true
	}
	return false
}

// Job sources.
const (
	SourceIMAP   = "imap"
	SourceUpload = "upload"
)

// AckFunc records that the message behind a job has been handled. It runs
// only after the document was delivered (or found already delivered).
type AckFunc func(ctx context.Context) error

// Job tracks one notification body through parse, delivery and ack.
type Job struct {
	mu sync.Mutex

	ID      string `json:"job_id"`
	Source  string `json:"source"`
	Ref     string `json:"ref"`
	Subject string `json:"subject,omitempty"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Attempts int       `json:"attempts"`

	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	body     string
	doc      notice.Document
	ack      AckFunc
	errors   []string
	done     chan struct{}
	doneOnce sync.Once
}

// NewJob creates a queued job for body. ref identifies the source item (a
// mail UID or an upload filename). Mail jobs are identified by source and
// ref; every upload is its own item.
func NewJob(source, ref, body string) *Job {
	now := time.Now()
	j := &Job{
		ID:        newJobID(),
		Source:    source,
		Ref:       ref,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		body:      body,
		done:      make(chan struct{}),
	}
	identity := source + ":" + ref
	if source == SourceUpload {
		identity = j.ID
	}
	j.Fingerprint = Fingerprint(identity, body)
	return j
}

func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Fingerprint identifies one delivery of body from the source item named by
// identity. The same body arriving as two different items gets two
// fingerprints.
func Fingerprint(identity, body string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(identity+"\x00"+body))
}

// SetIdentity rebinds the fingerprint to identity, such as a Message-ID that
// outlives the mail UID.
func (j *Job) SetIdentity(identity string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Fingerprint = Fingerprint(identity, j.body)
}

// SetStatus updates job status atomically. Reaching a terminal status
// releases Done.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	j.mu.Unlock()

	if status.Terminal() {
		j.doneOnce.Do(func() {
			if j.done != nil {
				close(j.done)
			}
		})
	}
}

// Done is closed once the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// IncrAttempts counts one delivery attempt.
func (j *Job) IncrAttempts() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Attempts++
	j.UpdatedAt = time.Now()
}

// Body returns the notification body.
func (j *Job) Body() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.body
}

// SetDocument stores the parsed document.
func (j *Job) SetDocument(doc notice.Document) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.doc = doc
}

// SetAck attaches the acknowledgement for the job's source message.
func (j *Job) SetAck(ack AckFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ack = ack
}

func (j *Job) fingerprint() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Fingerprint
}

func (j *Job) ackFunc() AckFunc {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.ack
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string            `json:"job_id"`
	Source      string            `json:"source"`
	Ref         string            `json:"ref"`
	Subject     string            `json:"subject,omitempty"`
	Status      JobStatus         `json:"status"`
	Phase       string            `json:"phase"`
	Attempts    int               `json:"attempts"`
	Fingerprint string            `json:"fingerprint"`
	Document    map[string]string `json:"document,omitempty"`
	Errors      []string          `json:"errors"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	var doc map[string]string
	if j.doc != nil {
		doc = j.doc.Strings()
	}
	return JobSnapshot{
		ID:          j.ID,
		Source:      j.Source,
		Ref:         j.Ref,
		Subject:     j.Subject,
		Status:      j.Status,
		Phase:       j.Phase,
		Attempts:    j.Attempts,
		Fingerprint: j.Fingerprint,
		Document:    doc,
		Errors:      errs,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes finished jobs older than the TTL. Jobs still in flight are
// kept regardless of age.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}
