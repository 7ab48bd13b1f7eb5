package linkscore

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/alvmarrod/link-oracle/internal/storage"
)

// DefaultPositiveWeight is how much more impact positive examples make.
// Valuable pages are rare relative to ordinary links, so without the boost
// the classifiers would collapse to always-negative.
const DefaultPositiveWeight = 20.0

// Options configure a Scorer at construction.
type Options struct {
	// FitDomainIntercept adds a per-domain identity feature to the
	// vectorizer.
	FitDomainIntercept bool
	// Converge switches the optimizer to a decaying learning rate.
	Converge bool
	// PositiveWeight is the class-imbalance correction factor; 0 means
	// DefaultPositiveWeight.
	PositiveWeight float64
}

// Scorer holds one incremental binary classifier per content category, all
// sharing a single hashing vectorizer. The category set is fixed at
// construction.
type Scorer struct {
	vectorizer  *Vectorizer
	categories  []string
	classifiers map[string]*classifier
	opts        Options
}

// NewScorer creates a scorer over a fixed category set.
func NewScorer(categories []string, opts Options) *Scorer {
	if opts.PositiveWeight <= 0 {
		opts.PositiveWeight = DefaultPositiveWeight
	}

	clfs := make(map[string]*classifier, len(categories))
	for _, cat := range categories {
		clfs[cat] = newClassifier(opts.PositiveWeight, opts.Converge)
	}

	return &Scorer{
		vectorizer:  NewVectorizer(opts.FitDomainIntercept),
		categories:  append([]string(nil), categories...),
		classifiers: clfs,
		opts:        opts,
	}
}

// Categories returns the fixed category set.
func (s *Scorer) Categories() []string {
	return s.categories
}

// Predict returns per-category probabilities for each record. Categories
// whose classifier has received zero training updates answer exactly 0.5 for
// every input: an uninformative prior that keeps early exploration unbiased.
func (s *Scorer) Predict(records []*storage.LinkRecord) []storage.Scores {
	if len(records) == 0 {
		return nil
	}

	vectors := s.vectorizer.Transform(records)
	out := make([]storage.Scores, len(records))
	for i := range out {
		out[i] = make(storage.Scores, len(s.categories))
	}

	for _, cat := range s.categories {
		clf := s.classifiers[cat]
		if !clf.fitted() {
			for i := range out {
				out[i][cat] = 0.5
			}
			continue
		}
		for i, vec := range vectors {
			out[i][cat] = clf.predictProba(vec)
		}
	}
	return out
}

// Train performs a single incremental update per category from the batch.
// labels holds one boolean slice per category, aligned with records. Cost is
// proportional to the batch size, never to total crawl history.
func (s *Scorer) Train(records []*storage.LinkRecord, labels map[string][]bool) error {
	if len(records) == 0 {
		return nil
	}

	for cat, ys := range labels {
		if _, ok := s.classifiers[cat]; !ok {
			return fmt.Errorf("train: unknown category %q", cat)
		}
		if len(ys) != len(records) {
			return fmt.Errorf("train: category %q has %d labels for %d records", cat, len(ys), len(records))
		}
	}

	vectors := s.vectorizer.Transform(records)
	for cat, ys := range labels {
		s.classifiers[cat].partialFit(vectors, ys)
	}
	return nil
}

// gob snapshot types. Fields exported for encoding only.

type classifierState struct {
	Weights        map[uint32]float64
	Bias           float64
	Updates        int64
	Steps          int64
	PositiveWeight float64
	Converge       bool
}

type scorerState struct {
	Categories  []string
	UseDomain   bool
	Converge    bool
	PositiveWt  float64
	Classifiers map[string]classifierState
}

// Snapshot serializes the vectorizer and every per-category classifier as
// one unit.
func (s *Scorer) Snapshot() ([]byte, error) {
	state := scorerState{
		Categories:  s.categories,
		UseDomain:   s.opts.FitDomainIntercept,
		Converge:    s.opts.Converge,
		PositiveWt:  s.opts.PositiveWeight,
		Classifiers: make(map[string]classifierState, len(s.classifiers)),
	}
	for cat, clf := range s.classifiers {
		state.Classifiers[cat] = classifierState{
			Weights:        clf.weights,
			Bias:           clf.bias,
			Updates:        clf.updates,
			Steps:          clf.steps,
			PositiveWeight: clf.positiveWeight,
			Converge:       clf.converge,
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("failed to encode scorer snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore replaces the scorer state from a snapshot. The decode happens into
// a staging value first, so a corrupt snapshot never leaves the scorer
// partially restored.
func (s *Scorer) Restore(data []byte) error {
	var state scorerState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return fmt.Errorf("failed to decode scorer snapshot: %w", err)
	}

	clfs := make(map[string]*classifier, len(state.Classifiers))
	for cat, cs := range state.Classifiers {
		weights := cs.Weights
		if weights == nil {
			weights = make(map[uint32]float64)
		}
		clfs[cat] = &classifier{
			weights:        weights,
			bias:           cs.Bias,
			updates:        cs.Updates,
			steps:          cs.Steps,
			positiveWeight: cs.PositiveWeight,
			converge:       cs.Converge,
		}
	}

	s.categories = state.Categories
	s.classifiers = clfs
	s.opts = Options{
		FitDomainIntercept: state.UseDomain,
		Converge:           state.Converge,
		PositiveWeight:     state.PositiveWt,
	}
	s.vectorizer = NewVectorizer(state.UseDomain)
	return nil
}
