// Package runguard enforces single-flight execution of the pipeline within a
// process.
//
// Every trigger (daily timer, backlog watcher, HTTP run-now, CLI) shares one
// Guard. A denied acquisition is not an error; callers report "already
// running" and do no work.
package runguard

import "sync"

// Guard owns the process-wide running flag.
type Guard struct {
	mu      sync.Mutex
	running bool
}

// New returns an idle guard.
func New() *Guard {
	return &Guard{}
}

// TryAcquire marks the guard running and returns true iff it was idle.
func (g *Guard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return false
	}
	g.running = true
	return true
}

// Release unconditionally clears the running flag.
func (g *Guard) Release() {
	g.mu.Lock()
	g.running = false
	g.mu.Unlock()
}

// Running reports whether a run currently holds the guard.
func (g *Guard) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Run executes fn while holding the guard. When the guard is already held it
// returns (false, nil) without calling fn. The guard is released on every exit
// path, including a panic inside fn, which is re-raised after release.
func (g *Guard) Run(fn func() error) (ran bool, err error) {
	if !g.TryAcquire() {
		return false, nil
	}
	defer g.Release()
	return true, fn()
}
