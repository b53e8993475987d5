package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/noticegest/internal/notice"
)

func TestFingerprint_Consistency(t *testing.T) {
	h1 := Fingerprint("imap:7", "■イベント名 花見\n")
	h2 := Fingerprint("imap:7", "■イベント名 花見\n")
	if h1 != h2 {
		t.Errorf("expected identical fingerprints, got %q and %q", h1, h2)
	}
	if len(h1) != 16 {
		t.Errorf("expected 16 hex chars, got %q", h1)
	}
}

func TestFingerprint_DifferentInputs(t *testing.T) {
	if Fingerprint("imap:1", "aaa") == Fingerprint("imap:1", "bbb") {
		t.Error("expected different fingerprints for different bodies")
	}
	if Fingerprint("imap:1", "aaa") == Fingerprint("imap:2", "aaa") {
		t.Error("expected different fingerprints for different items")
	}
}

func TestNewJob_FingerprintIdentity(t *testing.T) {
	a := NewJob(SourceIMAP, "10", "body")
	b := NewJob(SourceIMAP, "10", "body")
	if a.Fingerprint != b.Fingerprint {
		t.Error("expected the same mail item to keep its fingerprint")
	}
	if NewJob(SourceIMAP, "11", "body").Fingerprint == a.Fingerprint {
		t.Error("expected a different uid to change the fingerprint")
	}

	u1 := NewJob(SourceUpload, "notice.txt", "body")
	u2 := NewJob(SourceUpload, "notice.txt", "body")
	if u1.Fingerprint == u2.Fingerprint {
		t.Error("expected every upload to get its own fingerprint")
	}

	a.SetIdentity("<abc@example.com>")
	b.SetIdentity("<abc@example.com>")
	if a.Fingerprint != b.Fingerprint || a.Fingerprint != Fingerprint("<abc@example.com>", "body") {
		t.Errorf("expected message-id fingerprint, got %q and %q", a.Fingerprint, b.Fingerprint)
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob(SourceUpload, "notice.txt", "body")
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	id, err := uuid.Parse(job.ID)
	if err != nil {
		t.Fatalf("expected uuid job id, got %q: %v", job.ID, err)
	}
	if id.Version() != 7 {
		t.Errorf("expected uuid v7, got v%d", id.Version())
	}
	if job.Fingerprint != Fingerprint(job.ID, "body") {
		t.Errorf("expected upload fingerprint keyed by job id, got %q", job.Fingerprint)
	}
	if job.Body() != "body" {
		t.Errorf("expected body %q, got %q", "body", job.Body())
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob(SourceIMAP, "1", "body")

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusDelivering, "delivering"},
		{StatusAcking, "acking"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		snap := job.Snapshot()
		if snap.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, snap.Status)
		}
		if snap.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, snap.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after transition to %q", tr.status)
		}
	}
}

func TestJob_DoneClosesOnTerminal(t *testing.T) {
	job := NewJob(SourceIMAP, "1", "body")
	job.SetStatus(StatusParsing, "parsing")
	select {
	case <-job.Done():
		t.Fatal("expected Done to stay open for a non-terminal status")
	default:
	}

	job.SetStatus(StatusUnparseable, "parsing")
	select {
	case <-job.Done():
	default:
		t.Fatal("expected Done to be closed after terminal status")
	}

	// A second terminal transition must not panic on double close.
	job.SetStatus(StatusFailed, "shutdown")
}

func TestJobStatus_Terminal(t *testing.T) {
	terminal := map[JobStatus]bool{
		StatusQueued:      false,
		StatusParsing:     false,
		StatusDelivering:  false,
		StatusAcking:      false,
		StatusCompleted:   true,
		StatusUnparseable: true,
		StatusDupSkipped:  true,
		StatusFailed:      true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s: expected terminal=%v, got %v", status, want, got)
		}
	}
}

func TestJob_SnapshotCopiesState(t *testing.T) {
	job := NewJob(SourceUpload, "a.txt", "body")
	job.AddError("first")
	job.IncrAttempts()
	job.SetDocument(notice.Document{notice.KeyName: " 花見\n"})

	snap := job.Snapshot()
	if snap.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", snap.Attempts)
	}
	if len(snap.Errors) != 1 || snap.Errors[0] != "first" {
		t.Errorf("expected errors [first], got %v", snap.Errors)
	}
	if snap.Document["event_name"] != " 花見\n" {
		t.Errorf("expected document event_name, got %v", snap.Document)
	}

	snap.Errors[0] = "mutated"
	if job.Snapshot().Errors[0] != "first" {
		t.Error("expected snapshot errors to be a copy")
	}
}

func TestJobStore_CleanupKeepsInFlight(t *testing.T) {
	store := NewJobStore(time.Millisecond)

	done := NewJob(SourceUpload, "done.txt", "a")
	done.SetStatus(StatusCompleted, "done")
	running := NewJob(SourceUpload, "running.txt", "b")
	running.SetStatus(StatusDelivering, "delivering")

	store.Put(done)
	store.Put(running)
	time.Sleep(5 * time.Millisecond)
	store.Cleanup()

	if store.Get(done.ID) != nil {
		t.Error("expected finished job to be evicted")
	}
	if store.Get(running.ID) == nil {
		t.Error("expected in-flight job to be kept")
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get(strings.Repeat("0", 36)) != nil {
		t.Error("expected nil for unknown job")
	}
}
