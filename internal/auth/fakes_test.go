package auth

import (
	"context"
	"sync"

	"github.com/desertthunder/lenavs/internal/models"
)

type sourceReply struct {
	entitlement models.Entitlement
	err         error
	gate        chan struct{}
}

// fakeSource answers GetMe from a script, one reply per call; calls past the script get fallback.
type fakeSource struct {
	mu       sync.Mutex
	calls    int
	replies  []sourceReply
	fallback sourceReply
	started  chan int
}

func (f *fakeSource) GetMe(ctx context.Context) (models.Entitlement, error) {
	f.mu.Lock()
	n := f.calls
	f.calls++
	reply := f.fallback
	if n < len(f.replies) {
		reply = f.replies[n]
	}
	started := f.started
	f.mu.Unlock()

	if started != nil {
		started <- n
	}
	if reply.gate != nil {
		select {
		case <-reply.gate:
		case <-ctx.Done():
			return models.Entitlement{}, ctx.Err()
		}
	}
	return reply.entitlement, reply.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func ent(plan models.Plan, credits int) models.Entitlement {
	return models.Entitlement{Plan: plan, Credits: credits}
}
