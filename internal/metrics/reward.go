package metrics

import "github.com/alvmarrod/link-oracle/internal/storage"

// MaxScores aggregates per-domain reward: for every domain it keeps the
// running maximum observed score per category. Entries are created lazily at
// zero and values only ever increase. It is owned by the orchestrator loop
// and needs no locking of its own.
type MaxScores struct {
	categories []string
	scores     map[string]storage.Scores // domain -> category -> max
}

// NewMaxScores creates a tracker over a fixed category set.
func NewMaxScores(categories []string) *MaxScores {
	return &MaxScores{
		categories: append([]string(nil), categories...),
		scores:     make(map[string]storage.Scores),
	}
}

// Update raises the domain's per-category maxima to the given scores,
// creating the domain entry at zero on first sight.
func (m *MaxScores) Update(domain string, scores storage.Scores) {
	cur, ok := m.scores[domain]
	if !ok {
		cur = storage.ZeroScores(m.categories)
		m.scores[domain] = cur
	}
	for k, v := range scores {
		if v > cur[k] {
			cur[k] = v
		}
	}
}

// Sum returns the per-category sum of domain maxima across all domains.
func (m *MaxScores) Sum() storage.Scores {
	out := storage.ZeroScores(m.categories)
	for _, domainScores := range m.scores {
		for _, k := range m.categories {
			out[k] += domainScores[k]
		}
	}
	return out
}

// Avg returns the per-category average of domain maxima across all domains.
func (m *MaxScores) Avg() storage.Scores {
	if len(m.scores) == 0 {
		return storage.ZeroScores(m.categories)
	}
	out := m.Sum()
	n := float64(len(m.scores))
	for k, v := range out {
		out[k] = v / n
	}
	return out
}

// Len returns the number of distinct domains seen so far.
func (m *MaxScores) Len() int {
	return len(m.scores)
}
