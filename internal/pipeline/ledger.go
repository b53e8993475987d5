package pipeline

import (
	"sync"
	"time"
)

// Ledger remembers the fingerprints of delivered items for a while, so a
// message whose ack failed after a successful send is not delivered again on
// the next poll. It also tracks deliveries in flight so two workers never
// send the same item at once.
type Ledger struct {
	mu       sync.Mutex
	seen     map[string]time.Time
	inFlight map[string]struct{}
	ttl      time.Duration
}

func NewLedger(ttl time.Duration) *Ledger {
	return &Ledger{
		seen:     make(map[string]time.Time),
		inFlight: make(map[string]struct{}),
		ttl:      ttl,
	}
}

// ClaimResult is the outcome of Claim.
type ClaimResult int

const (
	// Claimed: the caller owns the delivery and must Record or Release.
	Claimed ClaimResult = iota
	// AlreadyDelivered: the item was delivered within the TTL.
	AlreadyDelivered
	// InFlight: another caller is delivering the item right now.
	InFlight
)

// Claim atomically checks fingerprint and, when it is neither delivered nor
// in flight, marks it in flight for the caller.
func (l *Ledger) Claim(fingerprint string) ClaimResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	if at, ok := l.seen[fingerprint]; ok && time.Since(at) <= l.ttl {
		return AlreadyDelivered
	}
	if _, ok := l.inFlight[fingerprint]; ok {
		return InFlight
	}
	l.inFlight[fingerprint] = struct{}{}
	return Claimed
}

// Release gives up a claim after a failed delivery.
func (l *Ledger) Release(fingerprint string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, fingerprint)
}

// Record marks fingerprint as delivered now and ends any claim on it.
func (l *Ledger) Record(fingerprint string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, fingerprint)
	l.seen[fingerprint] = time.Now()
}

// Seen reports whether fingerprint was delivered within the TTL.
func (l *Ledger) Seen(fingerprint string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.seen[fingerprint]
	return ok && time.Since(at) <= l.ttl
}

// Len returns the number of remembered fingerprints.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// Cleanup drops expired fingerprints.
func (l *Ledger) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	for fp, at := range l.seen {
		if now.Sub(at) > l.ttl {
			delete(l.seen, fp)
		}
	}
}
