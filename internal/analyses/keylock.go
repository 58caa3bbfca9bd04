package analyses

import (
	"sync"

	"venture-backend/internal/businesses"
)

// runGuard provides per-(business, kind) mutual exclusion. A second run for
// the same pair is rejected rather than queued, so one request's reset can
// never interleave with another request's in-flight completion.
type runGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newRunGuard() *runGuard {
	return &runGuard{held: make(map[string]struct{})}
}

func guardKey(businessID string, kind businesses.AnalysisKind) string {
	return businessID + "|" + string(kind)
}

// acquire claims the pair. It returns a release func and true, or nil and
// false when the pair is already running.
func (g *runGuard) acquire(businessID string, kind businesses.AnalysisKind) (func(), bool) {
	key := guardKey(businessID, kind)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return nil, false
	}
	g.held[key] = struct{}{}
	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}
	return release, true
}

// busy reports whether the pair is currently running.
func (g *runGuard) busy(businessID string, kind businesses.AnalysisKind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[guardKey(businessID, kind)]
	return ok
}
