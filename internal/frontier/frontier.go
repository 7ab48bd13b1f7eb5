// Package frontier holds the pending-request priority queue and its scope
// policy. The prioritization core only drives the Frontier interface; the
// queue in this package is the in-process implementation of it.
package frontier

import "github.com/alvmarrod/link-oracle/internal/storage"

// Directive is one queued fetch instruction.
type Directive struct {
	URL      string
	NodeID   int64
	Priority float64
}

// Frontier is the collaborator interface the prioritization core drives.
// Dequeue policy, politeness and duplicate suppression belong to the
// implementation behind it.
type Frontier interface {
	// Submit enqueues a fetch directive tagged with its crawl-tree node
	// id and annotated with the predicted score as priority hint.
	Submit(url string, nodeID int64, priorityHint float64)

	// NotifyOutcome reports the observed scores of a completed visit so
	// the dequeue policy can favour rewarding domains.
	NotifyOutcome(domain string, observed storage.Scores)

	// IteratePendingNodeIDs returns the node ids of every directive still
	// waiting to be fetched.
	IteratePendingNodeIDs() []int64

	// Reprioritize re-reads priorities for all pending directives after a
	// re-scoring pass refreshed predicted scores.
	Reprioritize()

	// Len returns the number of pending directives.
	Len() int
}
