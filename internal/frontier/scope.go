package frontier

import (
	"errors"
	"sync"

	"github.com/alvmarrod/link-oracle/internal/domain"
)

var (
	errOutOfScope   = errors.New("domain out of crawl scope")
	errDepthLimit   = errors.New("depth limit exceeded")
	errNoHost       = errors.New("url has no resolvable host")
	errExcludedHost = errors.New("domain matches an excluded pattern")
)

// Scope enforces the frontier's drop policy: directives must stay within
// the registrable domains of the seeds and below the depth limit.
type Scope struct {
	maxDepth int
	depthOf  func(nodeID int64) int
	mu       sync.RWMutex
	roots    map[string]bool
}

// NewScope creates a scope policy. depthOf resolves a node id to its depth
// in the crawl tree.
func NewScope(maxDepth int, depthOf func(nodeID int64) int) *Scope {
	return &Scope{
		maxDepth: maxDepth,
		depthOf:  depthOf,
		roots:    make(map[string]bool),
	}
}

// AddRoot admits a registrable domain (derived from a seed URL's host) to
// the crawl scope.
func (s *Scope) AddRoot(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots[domain.ExtractRoot(host)] = true
}

// Accept returns nil when the directive may be queued, or the drop reason.
func (s *Scope) Accept(url string, nodeID int64) error {
	host, err := domain.Extract(url)
	if err != nil || host == "" {
		return errNoHost
	}

	if domain.IsExcluded(host) {
		return errExcludedHost
	}

	s.mu.RLock()
	inScope := s.roots[domain.ExtractRoot(host)]
	s.mu.RUnlock()
	if !inScope {
		return errOutOfScope
	}

	if s.depthOf != nil && s.depthOf(nodeID) > s.maxDepth {
		return errDepthLimit
	}

	return nil
}
