package storage

import "time"

// Scores maps a content category to a value in [0,1]. Values are either
// observed (ground truth from a fetched page) or predicted (classifier
// probability assigned to a link before fetching).
type Scores map[string]float64

// Clone returns an independent copy of the score map.
func (s Scores) Clone() Scores {
	if s == nil {
		return nil
	}
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Max returns the highest score across categories, or 0 for an empty map.
func (s Scores) Max() float64 {
	best := 0.0
	for _, v := range s {
		if v > best {
			best = v
		}
	}
	return best
}

// ZeroScores returns an all-zero score map over the given categories.
func ZeroScores(categories []string) Scores {
	out := make(Scores, len(categories))
	for _, c := range categories {
		out[c] = 0.0
	}
	return out
}

// LinkRecord is the raw feature record of a single hyperlink, produced by
// the extraction collaborator and stored on the parent edge of the node the
// link points to.
type LinkRecord struct {
	URL     string
	Text    string
	Domain  string
	Classes []string
	ElemID  string
	Rel     string
	Title   string
}

// Node is one page in the crawl tree, fetched or pending. Non-seed nodes
// carry exactly one incoming link record; seeds carry none.
type Node struct {
	ID       int64
	URL      string
	ParentID int64       // -1 for seed nodes
	Link     *LinkRecord // incoming link, nil for seed nodes
	Depth    int

	Visited bool
	OK      bool // undefined until visited

	ObservedScores  Scores // set exactly once, at visit time
	PredictedScores Scores // set at creation for non-seeds, refreshable until visited
	ResponseSeq     int64  // response sequence number, set at visit time
}

// TreeSnapshot is the serializable state of a crawl tree, one half of a
// checkpoint unit.
type TreeSnapshot struct {
	CrawlID   string
	CreatedAt time.Time
	Nodes     []*Node
}

// Metrics tracks crawl statistics for export on exit.
type Metrics struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	LinksDiscovered   int       `json:"links_discovered"`
	RequestsDropped   int       `json:"requests_dropped"`
	TrainingBatches   int       `json:"training_batches"`
	ExamplesTrained   int       `json:"examples_trained"`
	RescorePasses     int       `json:"rescore_passes"`
	LinksRescored     int       `json:"links_rescored"`
	Checkpoints       int       `json:"checkpoints"`
	TerminationReason string    `json:"termination_reason"`
}
