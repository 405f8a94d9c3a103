package cache

import (
	"context"
	"sync"
)

type pendingKey struct{}

// Pending collects invalidations issued inside a transaction so they run
// only after it commits
type Pending struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

// DeferInvalidation returns a context that marks the transaction opened with
// it; invalidations issued against that transaction are queued on Pending
func DeferInvalidation(ctx context.Context) (context.Context, *Pending) {
	p := &Pending{}
	return context.WithValue(ctx, pendingKey{}, p), p
}

func pendingFrom(ctx context.Context) *Pending {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(pendingKey{}).(*Pending)
	return p
}

// AfterCommit queues fn when txCtx belongs to a deferred transaction and
// runs it with ctx right away otherwise
func AfterCommit(ctx, txCtx context.Context, fn func(context.Context)) {
	if p := pendingFrom(txCtx); p != nil {
		p.mu.Lock()
		p.fns = append(p.fns, fn)
		p.mu.Unlock()
		return
	}
	fn(ctx)
}

// Flush runs the queued invalidations once
func (p *Pending) Flush(ctx context.Context) {
	if p == nil {
		return
	}
	p.mu.Lock()
	fns := p.fns
	p.fns = nil
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ctx)
	}
}
