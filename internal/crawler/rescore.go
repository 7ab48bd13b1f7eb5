package crawler

import (
	"github.com/sirupsen/logrus"

	"github.com/alvmarrod/link-oracle/internal/storage"
)

// rescoreFrontier refreshes the predicted scores of every link still pending
// in the frontier, then asks the frontier to reprioritize. It only runs once
// enough new signal accumulated: the threshold starts at the configured
// floor and scales with domain diversity, a proxy for classifier maturity.
func (c *Controller) rescoreFrontier() {
	threshold := int64(c.cfg.RescoreMinResponses)
	if domains := int64(c.rewards.Len()); domains > threshold {
		threshold = domains
	}

	interval := c.responseCount - c.rescoredAt
	if interval <= threshold {
		logrus.Infof("Fewer than %d classifier updates (%d); not re-classifying links", threshold, interval)
		return
	}

	pending := c.front.IteratePendingNodeIDs()
	logrus.Infof("Re-classifying links: %d pending...", len(pending))

	// One bounded pass: gather every pending incoming link, score the
	// whole batch in a single predict call, write the results back.
	ids := make([]int64, 0, len(pending))
	links := make([]*storage.LinkRecord, 0, len(pending))
	for _, id := range pending {
		link := c.tree.IncomingLink(id)
		if link == nil {
			continue // pending seed, nothing to re-score
		}
		ids = append(ids, id)
		links = append(links, link)
	}

	if len(links) > 0 {
		scores := c.scorer.Predict(links)
		for i, id := range ids {
			c.tree.SetPredictedScores(id, scores[i])
		}
		c.front.Reprioritize()
		c.tracker.RecordRescorePass(len(links))
		logrus.Infof("Re-classifying links: done (%d updated)", len(links))
	}

	c.rescoredAt = c.responseCount
}
