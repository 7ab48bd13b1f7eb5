package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alvmarrod/link-oracle/internal/metrics"
	"github.com/alvmarrod/link-oracle/internal/storage"
)

func TestMaxScoresAggregation(t *testing.T) {
	s := metrics.NewMaxScores([]string{"x", "y"})

	s.Update("foo", storage.Scores{"x": 0.1, "y": 0.3})
	s.Update("foo", storage.Scores{"x": 0.01, "y": 0.4})
	s.Update("bar", storage.Scores{"x": 0.8})

	assert.InDelta(t, 0.9, s.Sum()["x"], 1e-9)
	assert.InDelta(t, 0.4, s.Sum()["y"], 1e-9)
	assert.InDelta(t, 0.45, s.Avg()["x"], 1e-9)
	assert.InDelta(t, 0.2, s.Avg()["y"], 1e-9)
	assert.Equal(t, 2, s.Len())
}

func TestMaxScoresValuesOnlyIncrease(t *testing.T) {
	s := metrics.NewMaxScores([]string{"x"})

	s.Update("foo", storage.Scores{"x": 0.5})
	s.Update("foo", storage.Scores{"x": 0.2})
	assert.InDelta(t, 0.5, s.Sum()["x"], 1e-9)

	s.Update("foo", storage.Scores{"x": 0.7})
	assert.InDelta(t, 0.7, s.Sum()["x"], 1e-9)
}

func TestMaxScoresEmpty(t *testing.T) {
	s := metrics.NewMaxScores([]string{"x", "y"})

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, storage.Scores{"x": 0, "y": 0}, s.Sum())
	assert.Equal(t, storage.Scores{"x": 0, "y": 0}, s.Avg())
}

func TestMaxScoresLazyEntryAtZero(t *testing.T) {
	s := metrics.NewMaxScores([]string{"x", "y"})

	// A failed visit reports all-zero scores; the domain entry still
	// gets created.
	s.Update("foo", storage.Scores{"x": 0, "y": 0})
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, storage.Scores{"x": 0, "y": 0}, s.Sum())
}
