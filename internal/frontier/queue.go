package frontier

import (
	"container/heap"
	"math/rand"
	"sync"

	"github.com/alvmarrod/link-oracle/internal/domain"
	"github.com/alvmarrod/link-oracle/internal/storage"
	"github.com/sirupsen/logrus"
)

// domainBoost weights the best observed reward of a directive's domain into
// its effective priority, so domains that already paid off are revisited
// ahead of equally-scored unknowns.
const domainBoost = 0.1

// Options configure a Queue.
type Options struct {
	// Epsilon is the probability of dequeuing a uniformly random pending
	// directive instead of the highest-priority one (exploration).
	Epsilon float64
	// Seed seeds the exploration and sampling RNG.
	Seed int64
	// Accept validates a directive before it is queued; a non-nil error
	// drops it. Nil accepts everything.
	Accept func(url string, nodeID int64) error
	// OnDrop is invoked synchronously from Submit for every directive
	// discarded unfetched, so the core can keep its tree consistent.
	OnDrop func(nodeID int64, reason string)
	// PriorityOf supplies the fresh priority of a pending directive
	// during Reprioritize.
	PriorityOf func(nodeID int64) float64
}

type item struct {
	Directive
	domain    string
	effective float64
	seq       int64
	index     int
}

// Queue is a thread-safe priority frontier with epsilon-greedy dequeue and
// per-URL duplicate suppression.
type Queue struct {
	mu         sync.Mutex
	cond       *sync.Cond
	items      itemHeap
	byNode     map[int64]*item
	seen       map[string]bool
	domainBest map[string]float64
	opts       Options
	rng        *rand.Rand
	seq        int64
	stopped    bool
}

// NewQueue creates an empty frontier queue.
func NewQueue(opts Options) *Queue {
	q := &Queue{
		byNode:     make(map[int64]*item),
		seen:       make(map[string]bool),
		domainBest: make(map[string]float64),
		opts:       opts,
		rng:        rand.New(rand.NewSource(opts.Seed)),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Submit enqueues a directive unless the queue is stopped, the URL was
// already submitted, or the Accept policy rejects it. Rejected and duplicate
// directives are reported through OnDrop before Submit returns.
func (q *Queue) Submit(url string, nodeID int64, priorityHint float64) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}

	if q.seen[url] {
		q.mu.Unlock()
		q.drop(nodeID, "duplicate url")
		return
	}
	q.seen[url] = true

	if q.opts.Accept != nil {
		if err := q.opts.Accept(url, nodeID); err != nil {
			q.mu.Unlock()
			q.drop(nodeID, err.Error())
			return
		}
	}

	host, _ := domain.Extract(url)
	q.seq++
	it := &item{
		Directive: Directive{URL: url, NodeID: nodeID, Priority: priorityHint},
		domain:    host,
		effective: priorityHint + domainBoost*q.domainBest[host],
		seq:       q.seq,
	}
	heap.Push(&q.items, it)
	q.byNode[nodeID] = it

	q.cond.Signal()
	q.mu.Unlock()
}

// drop reports a discarded directive. Runs outside the queue lock because
// the handler typically calls back into crawl state.
func (q *Queue) drop(nodeID int64, reason string) {
	logrus.Debugf("Frontier dropped node %d: %s", nodeID, reason)
	if q.opts.OnDrop != nil {
		q.opts.OnDrop(nodeID, reason)
	}
}

// Pop removes and returns the next directive to fetch. With probability
// epsilon it picks a uniformly random pending directive, otherwise the one
// with the highest effective priority. Blocks while the queue is empty and
// not stopped; returns false once stopped and drained.
func (q *Queue) Pop() (Directive, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.items.Len() > 0 {
			i := 0
			if q.opts.Epsilon > 0 && q.rng.Float64() < q.opts.Epsilon {
				i = q.rng.Intn(q.items.Len())
			}
			it := heap.Remove(&q.items, i).(*item)
			delete(q.byNode, it.NodeID)
			return it.Directive, true
		}

		if q.stopped {
			return Directive{}, false
		}

		q.cond.Wait()
	}
}

// NotifyOutcome records the observed reward of a visited domain. The value
// feeds the domain boost of directives submitted or reprioritized later.
func (q *Queue) NotifyOutcome(host string, observed storage.Scores) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if best := observed.Max(); best > q.domainBest[host] {
		q.domainBest[host] = best
	}
}

// IteratePendingNodeIDs returns a snapshot of the node ids still queued.
func (q *Queue) IteratePendingNodeIDs() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]int64, 0, len(q.byNode))
	for id := range q.byNode {
		ids = append(ids, id)
	}
	return ids
}

// Reprioritize re-reads every pending directive's priority through the
// PriorityOf source and rebuilds the heap in one pass.
func (q *Queue) Reprioritize() {
	if q.opts.PriorityOf == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, it := range q.byNode {
		it.Priority = q.opts.PriorityOf(it.NodeID)
		it.effective = it.Priority + domainBoost*q.domainBest[it.domain]
	}
	heap.Init(&q.items)
}

// Len returns the number of pending directives.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// IsEmpty returns true if the queue has no items
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Stop signals the queue to stop accepting new entries. Workers blocked on
// Pop() will drain remaining items, then receive false.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
	q.cond.Broadcast()
}

// itemHeap orders items by effective priority, highest first, FIFO on ties.
type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].effective != h[j].effective {
		return h[i].effective > h[j].effective
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
