package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/link-oracle/internal/storage"
)

// Tracker holds and manages crawl metrics
type Tracker struct {
	mu   sync.Mutex
	data storage.Metrics
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
		},
	}
}

// IncrementPagesFetched increments the successful fetch counter
func (t *Tracker) IncrementPagesFetched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched++
}

// IncrementPagesFailed increments the failed fetch counter
func (t *Tracker) IncrementPagesFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFailed++
}

// AddLinksDiscovered adds to the discovered links counter
func (t *Tracker) AddLinksDiscovered(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksDiscovered += n
}

// IncrementRequestsDropped increments the dropped directive counter
func (t *Tracker) IncrementRequestsDropped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.RequestsDropped++
}

// RecordTrainingBatch records one classifier update of the given batch size
func (t *Tracker) RecordTrainingBatch(size int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.TrainingBatches++
	t.data.ExamplesTrained += size
}

// RecordRescorePass records one re-scoring pass over n pending links
func (t *Tracker) RecordRescorePass(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.RescorePasses++
	t.data.LinksRescored += n
}

// IncrementCheckpoints increments the checkpoint counter
func (t *Tracker) IncrementCheckpoints() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Checkpoints++
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason

	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress prints current metrics to console (for periodic updates)
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Pages: %d fetched, %d failed, %d dropped | Links: %d discovered, %d rescored | Training: %d batches (%d examples)",
		t.data.PagesFetched,
		t.data.PagesFailed,
		t.data.RequestsDropped,
		t.data.LinksDiscovered,
		t.data.LinksRescored,
		t.data.TrainingBatches,
		t.data.ExamplesTrained,
	)
}
