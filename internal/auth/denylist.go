package auth

import (
	"context"
	"sync"
	"time"
)

// Denylist records token ids revoked before their natural expiry.
//
// Entries only need to outlive the token they revoke: once until has passed,
// Validate rejects the token on its own.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryDenylist is a process-local Denylist. Revocations are lost on restart
// and are not shared between replicas; use RedisDenylist for that.
type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

var _ Denylist = (*MemoryDenylist)(nil)

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{revoked: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sweepLocked()
	d.revoked[tokenID] = until
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	until, ok := d.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !d.now().Before(until) {
		delete(d.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

// sweepLocked drops expired entries so the map stays bounded by the number of
// live revoked tokens. Caller holds d.mu.
func (d *MemoryDenylist) sweepLocked() {
	now := d.now()
	for id, until := range d.revoked {
		if !now.Before(until) {
			delete(d.revoked, id)
		}
	}
}

// Len reports how many revocations are currently held.
func (d *MemoryDenylist) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.revoked)
}
