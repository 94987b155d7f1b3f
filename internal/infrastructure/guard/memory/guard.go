package memory

import (
	"context"
	"sync"
)

// Guard is an in-process IngestionGuard: one mutex per collection plus the
// set of collections that completed successfully.
type Guard struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	done  map[string]struct{}
}

func New() *Guard {
	return &Guard{
		locks: make(map[string]*sync.Mutex),
		done:  make(map[string]struct{}),
	}
}

func (g *Guard) RunOnce(ctx context.Context, collection string, fn func(context.Context) (int, error)) (bool, error) {
	lock := g.lockFor(collection)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if g.isDone(collection) {
		return true, nil
	}

	if _, err := fn(ctx); err != nil {
		return false, err
	}

	g.mu.Lock()
	g.done[collection] = struct{}{}
	g.mu.Unlock()
	return false, nil
}

func (g *Guard) lockFor(collection string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.locks[collection]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[collection] = lock
	}
	return lock
}

func (g *Guard) isDone(collection string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.done[collection]
	return ok
}
