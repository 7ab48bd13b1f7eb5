// Package crawler ties the prioritization core together: it owns the crawl
// tree, the online scorer, the replay buffer and the reward tracker, and it
// is the only writer of any of them. Visit events and periodic tasks all
// execute on one goroutine, so no component below needs coordination beyond
// what it already carries.
package crawler

import (
	"fmt"
	"math/rand"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alvmarrod/link-oracle/internal/config"
	"github.com/alvmarrod/link-oracle/internal/fetch"
	"github.com/alvmarrod/link-oracle/internal/frontier"
	"github.com/alvmarrod/link-oracle/internal/linkscore"
	"github.com/alvmarrod/link-oracle/internal/memory"
	"github.com/alvmarrod/link-oracle/internal/metrics"
	"github.com/alvmarrod/link-oracle/internal/pagescore"
	"github.com/alvmarrod/link-oracle/internal/replay"
	"github.com/alvmarrod/link-oracle/internal/storage"
)

// Controller is the single-owner orchestration loop.
type Controller struct {
	cfg     *config.Config
	tree    *memory.CrawlTree
	scorer  *linkscore.Scorer
	pages   *pagescore.Scorer
	buffer  *replay.Buffer
	rewards *metrics.MaxScores
	tracker *metrics.Tracker
	front   frontier.Frontier
	store   *storage.CheckpointStore // nil disables checkpointing

	events   chan *fetch.VisitEvent
	stopping chan struct{}
	stopOnce sync.Once
	rng      *rand.Rand

	seedIDs map[string]int64 // seed url -> node id

	responseCount int64
	rescoredAt    int64

	errMu sync.Mutex
	err   error
}

// NewController wires the orchestrator. The frontier must route its drop
// notifications to HandleDrop and its priority reads to PriorityOf.
func NewController(
	cfg *config.Config,
	tree *memory.CrawlTree,
	scorer *linkscore.Scorer,
	pages *pagescore.Scorer,
	front frontier.Frontier,
	store *storage.CheckpointStore,
	tracker *metrics.Tracker,
) *Controller {
	return &Controller{
		cfg:      cfg,
		tree:     tree,
		scorer:   scorer,
		pages:    pages,
		buffer:   replay.NewBuffer(time.Now().UnixNano()),
		rewards:  metrics.NewMaxScores(scorer.Categories()),
		tracker:  tracker,
		front:    front,
		store:    store,
		events:   make(chan *fetch.VisitEvent, 64),
		stopping: make(chan struct{}),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		seedIDs:  make(map[string]int64),
	}
}

// RegisterSeed allocates a seed node for a URL. Must be called before Run;
// the returned id tags the seed's fetch directive.
func (c *Controller) RegisterSeed(seedURL string) int64 {
	id := c.tree.CreateSeed(seedURL)
	c.seedIDs[seedURL] = id
	return id
}

// PriorityOf resolves a pending node's current priority for the frontier.
func (c *Controller) PriorityOf(nodeID int64) float64 {
	return c.tree.PredictedScore(nodeID)
}

// DepthOf resolves a pending node's tree depth for the frontier's scope
// policy.
func (c *Controller) DepthOf(nodeID int64) int {
	return c.tree.Depth(nodeID)
}

// HandleVisit delivers a visit outcome to the orchestration loop. Called
// from fetch workers; blocks only while the loop is busy, never after
// shutdown started.
func (c *Controller) HandleVisit(ev *fetch.VisitEvent) {
	select {
	case c.events <- ev:
	case <-c.stopping:
		logrus.Warnf("Visit event for node %d dropped during shutdown", ev.NodeID)
	}
}

// HandleDrop records a directive the frontier discarded unfetched, keeping
// the tree and replay set consistent with what was submitted. The frontier
// calls it synchronously from Submit, which only ever runs on the owner
// goroutine (or during sequential seeding before Run), so it may touch
// shared state directly.
func (c *Controller) HandleDrop(nodeID int64, reason string) {
	if nodeID < 0 {
		// Best effort only: without a node id there is nothing to
		// reconcile, so the event is dropped.
		logrus.Warnf("Dropped directive without node id (%s), ignoring", reason)
		return
	}

	zero := storage.ZeroScores(c.scorer.Categories())
	if err := c.tree.RecordVisit(nodeID, false, zero, c.responseCount); err != nil {
		c.fail(fmt.Errorf("drop of node %d: %w", nodeID, err))
		return
	}

	if c.tree.IncomingLink(nodeID) != nil {
		c.buffer.Add(nodeID)
	}
	c.tracker.IncrementRequestsDropped()
}

// Stop asks the loop to finish. The event in flight completes first; the
// final checkpoint is written before Run returns.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopping)
	})
}

// Run executes the orchestration loop until Stop is called or a contract
// violation surfaces. Returns non-nil when the crawl state can no longer be
// trusted or the final checkpoint failed.
func (c *Controller) Run() error {
	statsTicker := time.NewTicker(c.cfg.StatsInterval())
	defer statsTicker.Stop()
	checkpointTicker := time.NewTicker(c.cfg.CheckpointInterval())
	defer checkpointTicker.Stop()
	rescoreTicker := time.NewTicker(c.cfg.RescoreInterval())
	defer rescoreTicker.Stop()

	logrus.Infof("CRAWL %s: fit_domain_intercept=%v, converge=%v, replay_n=%d, eps=%v",
		c.cfg.CrawlID, c.cfg.FitDomainIntercept, c.cfg.Converge, c.cfg.ReplayN, c.cfg.Epsilon)

	for {
		select {
		case ev := <-c.events:
			c.handleVisit(ev)
		case <-statsTicker.C:
			c.printStats()
		case <-checkpointTicker.C:
			if err := c.checkpoint(storage.TimestampTag()); err != nil {
				// Periodic checkpoints are retried next interval.
				logrus.Warnf("Periodic checkpoint failed: %v", err)
			}
		case <-rescoreTicker.C:
			c.rescoreFrontier()
		case <-c.stopping:
			return c.shutdown()
		}
	}
}

// shutdown drains buffered events, writes the final checkpoint and reports
// the first error seen.
func (c *Controller) shutdown() error {
	for {
		select {
		case ev := <-c.events:
			c.handleVisit(ev)
		default:
			c.printStats()
			if err := c.checkpoint(storage.FinalTag); err != nil {
				logrus.Errorf("Final checkpoint failed: %v", err)
				c.fail(err)
			}
			return c.firstErr()
		}
	}
}

// handleVisit is the per-visit orchestration step.
func (c *Controller) handleVisit(ev *fetch.VisitEvent) {
	c.responseCount++

	nodeID := c.resolveNodeID(ev)

	ok := ev.OK
	var observed storage.Scores
	if ok {
		observed = c.pages.Score(ev.Doc)
	} else {
		observed = storage.ZeroScores(c.scorer.Categories())
	}

	if err := c.tree.RecordVisit(nodeID, ok, observed, c.responseCount); err != nil {
		c.fail(fmt.Errorf("visit of node %d: %w", nodeID, err))
		return
	}

	if ok {
		c.tracker.IncrementPagesFetched()
	} else {
		c.tracker.IncrementPagesFailed()
	}

	if ev.Host != "" {
		c.rewards.Update(ev.Host, observed)
		c.front.NotifyOutcome(ev.Host, observed)
	}

	c.train(nodeID, observed)

	if c.tree.IncomingLink(nodeID) != nil {
		c.buffer.Add(nodeID)
	}

	if !ok {
		// Failed pages yield no further expansion.
		return
	}

	c.expand(ev, nodeID)
}

// resolveNodeID maps a visit event to its tree node. Responses without a
// node id are seed responses: they resolve by URL, allocating a node on
// first sight.
func (c *Controller) resolveNodeID(ev *fetch.VisitEvent) int64 {
	if ev.NodeID >= 0 {
		return ev.NodeID
	}

	if id, ok := c.seedIDs[ev.URL]; ok {
		return id
	}

	logrus.Warnf("Response without node id for %s, allocating seed node", ev.URL)
	id := c.tree.CreateSeed(ev.URL)
	c.seedIDs[ev.URL] = id
	return id
}

// train runs one incremental classifier update: the fresh example from this
// visit's incoming link, plus a bounded uniform resample of past examples
// when replay is enabled and there is strictly more history than the replay
// count.
func (c *Controller) train(nodeID int64, observed storage.Scores) {
	link := c.tree.IncomingLink(nodeID)
	if link == nil {
		return // seed, no incoming link to learn from
	}

	categories := c.scorer.Categories()
	records := []*storage.LinkRecord{link}
	labels := make(map[string][]bool, len(categories))
	for _, cat := range categories {
		labels[cat] = []bool{observed[cat] >= 0.5}
	}

	if c.cfg.ReplayN > 0 {
		for _, pastID := range c.buffer.Sample(c.cfg.ReplayN) {
			pastLink := c.tree.IncomingLink(pastID)
			if pastLink == nil {
				continue
			}
			pastNode, found := c.tree.Node(pastID)
			if !found || pastNode.ObservedScores == nil {
				continue
			}
			records = append(records, pastLink)
			for _, cat := range categories {
				labels[cat] = append(labels[cat], pastNode.ObservedScores[cat] >= 0.5)
			}
		}
	}

	if err := c.scorer.Train(records, labels); err != nil {
		logrus.Errorf("Classifier update failed: %v", err)
		return
	}
	c.tracker.RecordTrainingBatch(len(records))
}

// expand extracts in-domain outbound links, scores them in one batch and
// grows the tree and the frontier by one child per link. Link order is
// shuffled so later replay sampling carries no extraction-order bias.
func (c *Controller) expand(ev *fetch.VisitEvent, nodeID int64) {
	base, err := url.Parse(ev.URL)
	if err != nil {
		logrus.Warnf("Unparseable response URL %s: %v", ev.URL, err)
		return
	}

	links := fetch.ExtractLinks(ev.Doc, base, ev.Host, c.cfg.MaxOutboundLinks)
	if len(links) == 0 {
		return
	}

	c.rng.Shuffle(len(links), func(i, j int) {
		links[i], links[j] = links[j], links[i]
	})

	predicted := c.scorer.Predict(links)
	c.tracker.AddLinksDiscovered(len(links))

	for i, link := range links {
		childID, err := c.tree.RecordChild(nodeID, link.URL, link, predicted[i])
		if err != nil {
			c.fail(fmt.Errorf("child of node %d: %w", nodeID, err))
			return
		}
		c.front.Submit(link.URL, childID, predicted[i].Max())
	}
}

// printStats logs crawl progress plus the per-category reward table.
func (c *Controller) printStats() {
	nodes, visited, edges := c.tree.Stats()
	logrus.Infof("Crawl tree: %d nodes (%d visited), %d edges, %d domains",
		nodes, visited, edges, c.rewards.Len())
	logrus.Info(c.tracker.LogProgress())

	sum := c.rewards.Sum()
	avg := c.rewards.Avg()

	categories := append([]string(nil), c.scorer.Categories()...)
	sort.Strings(categories)

	total := 0.0
	for _, cat := range categories {
		logrus.Infof("Reward %8.1f   %.4f   %s", sum[cat], avg[cat], cat)
		total += sum[cat]
	}
	logrus.Infof("Total reward: %.1f", total)
}

// checkpoint composes and persists one checkpoint unit: the tree snapshot
// and the model snapshot, both under the same tag. Runs inside the owner
// step, so it never observes a half-updated node or classifier.
func (c *Controller) checkpoint(tag string) error {
	if c.store == nil {
		return nil
	}

	logrus.Infof("Saving checkpoint %s/%s...", c.cfg.CrawlID, tag)

	treeSnap := c.tree.Snapshot(c.cfg.CrawlID)
	treeSnap.CreatedAt = time.Now()
	if err := c.store.SaveTree(c.cfg.CrawlID, tag, treeSnap); err != nil {
		return err
	}

	model, err := c.scorer.Snapshot()
	if err != nil {
		return err
	}
	if err := c.store.SaveModel(c.cfg.CrawlID, tag, model); err != nil {
		return err
	}

	c.tracker.IncrementCheckpoints()
	logrus.Info("Checkpoint saved")
	return nil
}

// fail records the first fatal error and initiates shutdown.
func (c *Controller) fail(err error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()

	logrus.Errorf("Contract violation: %v", err)
	c.Stop()
}

func (c *Controller) firstErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}
