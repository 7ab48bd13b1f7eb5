package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/alvmarrod/link-oracle/internal/storage"
)

// ErrDoubleVisit is returned when a node that was already visited receives a
// second visit. This is a contract violation: node ids are handed out once
// per fetch directive, so a second visit means an invariant broke upstream.
var ErrDoubleVisit = errors.New("node already visited")

// ErrUnknownNode is returned when an id does not resolve to any node.
var ErrUnknownNode = errors.New("unknown node id")

// CrawlTree holds the crawl state in memory for fast access: an append-only
// arena of nodes indexed by id, each non-seed node carrying its single parent
// edge. Ids are allocated monotonically and never reused.
type CrawlTree struct {
	nodes   []*storage.Node // arena, index == node id
	visited int
	edges   int
	mu      sync.RWMutex
}

// NewCrawlTree creates an empty in-memory crawl tree.
func NewCrawlTree() *CrawlTree {
	return &CrawlTree{}
}

// CreateSeed allocates a new node with no incoming edge.
func (t *CrawlTree) CreateSeed(url string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	node := &storage.Node{
		ID:       int64(len(t.nodes)),
		URL:      url,
		ParentID: -1,
	}
	t.nodes = append(t.nodes, node)
	return node.ID
}

// RecordChild allocates a new unvisited node and its parent edge, carrying
// the raw link feature record and the scores predicted for it at creation.
func (t *CrawlTree) RecordChild(parentID int64, url string, link *storage.LinkRecord, predicted storage.Scores) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if parentID < 0 || parentID >= int64(len(t.nodes)) {
		return 0, fmt.Errorf("record child of %d: %w", parentID, ErrUnknownNode)
	}

	parent := t.nodes[parentID]
	node := &storage.Node{
		ID:              int64(len(t.nodes)),
		URL:             url,
		ParentID:        parentID,
		Link:            link,
		Depth:           parent.Depth + 1,
		PredictedScores: predicted.Clone(),
	}
	t.nodes = append(t.nodes, node)
	t.edges++
	return node.ID, nil
}

// RecordVisit marks a node visited with the observed outcome. Observed
// scores are write-once; predicted scores are frozen from here on.
func (t *CrawlTree) RecordVisit(id int64, ok bool, observed storage.Scores, responseSeq int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id < 0 || id >= int64(len(t.nodes)) {
		return fmt.Errorf("record visit of %d: %w", id, ErrUnknownNode)
	}

	node := t.nodes[id]
	if node.Visited {
		return fmt.Errorf("record visit of %d: %w", id, ErrDoubleVisit)
	}

	node.Visited = true
	node.OK = ok
	node.ObservedScores = observed.Clone()
	node.ResponseSeq = responseSeq
	t.visited++
	return nil
}

// IncomingLink returns the feature record of the node's single parent edge,
// or nil for a seed node (or an unknown id).
func (t *CrawlTree) IncomingLink(id int64) *storage.LinkRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if id < 0 || id >= int64(len(t.nodes)) {
		return nil
	}
	return t.nodes[id].Link
}

// Node returns a copy of the node with the given id.
func (t *CrawlTree) Node(id int64) (storage.Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if id < 0 || id >= int64(len(t.nodes)) {
		return storage.Node{}, false
	}

	node := *t.nodes[id]
	node.ObservedScores = t.nodes[id].ObservedScores.Clone()
	node.PredictedScores = t.nodes[id].PredictedScores.Clone()
	return node, true
}

// Depth returns the node's depth in the tree (0 for seeds).
func (t *CrawlTree) Depth(id int64) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if id < 0 || id >= int64(len(t.nodes)) {
		return 0
	}
	return t.nodes[id].Depth
}

// SetPredictedScores refreshes the predicted scores of a still-unvisited
// node. Visited nodes are left untouched and false is returned.
func (t *CrawlTree) SetPredictedScores(id int64, scores storage.Scores) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id < 0 || id >= int64(len(t.nodes)) {
		return false
	}

	node := t.nodes[id]
	if node.Visited {
		return false
	}

	node.PredictedScores = scores.Clone()
	return true
}

// PredictedScore returns the highest predicted category score of a node,
// or 0 when none is set. Used as the frontier priority source.
func (t *CrawlTree) PredictedScore(id int64) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if id < 0 || id >= int64(len(t.nodes)) {
		return 0
	}
	return t.nodes[id].PredictedScores.Max()
}

// Stats returns current tree statistics.
func (t *CrawlTree) Stats() (nodeCount, visitedCount, edgeCount int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.nodes), t.visited, t.edges
}

// Snapshot returns a deep copy of the whole tree for checkpointing.
func (t *CrawlTree) Snapshot(crawlID string) *storage.TreeSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	nodes := make([]*storage.Node, len(t.nodes))
	for i, n := range t.nodes {
		cp := *n
		cp.ObservedScores = n.ObservedScores.Clone()
		cp.PredictedScores = n.PredictedScores.Clone()
		nodes[i] = &cp
	}

	return &storage.TreeSnapshot{
		CrawlID: crawlID,
		Nodes:   nodes,
	}
}

// Restore replaces the tree contents with a snapshot (for resume).
func (t *CrawlTree) Restore(snap *storage.TreeSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes = make([]*storage.Node, len(snap.Nodes))
	t.visited = 0
	t.edges = 0
	for i, n := range snap.Nodes {
		cp := *n
		t.nodes[i] = &cp
		if cp.Visited {
			t.visited++
		}
		if cp.ParentID >= 0 {
			t.edges++
		}
	}
}
