package pipeline

import (
	"sync"
	"testing"
	"time"
)

func TestLedger_RecordAndSeen(t *testing.T) {
	l := NewLedger(time.Hour)
	fp := Fingerprint("imap:1", "body")
	if l.Seen(fp) {
		t.Fatal("expected unseen fingerprint")
	}
	l.Record(fp)
	if !l.Seen(fp) {
		t.Error("expected fingerprint to be seen after Record")
	}
	if l.Len() != 1 {
		t.Errorf("expected len 1, got %d", l.Len())
	}
}

func TestLedger_Expiry(t *testing.T) {
	l := NewLedger(10 * time.Millisecond)
	l.Record("a")
	time.Sleep(25 * time.Millisecond)

	if l.Seen("a") {
		t.Error("expected expired fingerprint to be unseen")
	}
	l.Cleanup()
	if l.Len() != 0 {
		t.Errorf("expected len 0 after cleanup, got %d", l.Len())
	}
}

func TestLedger_Claim(t *testing.T) {
	l := NewLedger(time.Hour)
	if got := l.Claim("a"); got != Claimed {
		t.Fatalf("expected Claimed, got %d", got)
	}
	if got := l.Claim("a"); got != InFlight {
		t.Errorf("expected InFlight for a held claim, got %d", got)
	}

	l.Release("a")
	if got := l.Claim("a"); got != Claimed {
		t.Errorf("expected Claimed after release, got %d", got)
	}

	l.Record("a")
	if got := l.Claim("a"); got != AlreadyDelivered {
		t.Errorf("expected AlreadyDelivered after record, got %d", got)
	}
}

func TestLedger_ClaimIsExclusive(t *testing.T) {
	l := NewLedger(time.Hour)
	var wg sync.WaitGroup
	var mu sync.Mutex
	claimed := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Claim("same") == Claimed {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if claimed != 1 {
		t.Errorf("expected exactly one claim, got %d", claimed)
	}
}
