package replay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvmarrod/link-oracle/internal/replay"
)

func TestSampleRequiresStrictlyMoreHistoryThanCount(t *testing.T) {
	buf := replay.NewBuffer(1)

	buf.Add(10)
	buf.Add(11)
	assert.Nil(t, buf.Sample(2), "buffer not strictly larger than n yields nothing")

	buf.Add(12)
	got := buf.Sample(2)
	assert.Len(t, got, 2)
}

func TestSampleWithoutReplacement(t *testing.T) {
	buf := replay.NewBuffer(42)
	for id := int64(0); id < 50; id++ {
		buf.Add(id)
	}

	for trial := 0; trial < 20; trial++ {
		got := buf.Sample(10)
		require.Len(t, got, 10)

		seen := make(map[int64]bool, len(got))
		for _, id := range got {
			assert.False(t, seen[id], "id %d sampled twice", id)
			assert.GreaterOrEqual(t, id, int64(0))
			assert.Less(t, id, int64(50))
			seen[id] = true
		}
	}
}

func TestSampleCoversWholeBuffer(t *testing.T) {
	buf := replay.NewBuffer(7)
	for id := int64(0); id < 10; id++ {
		buf.Add(id)
	}

	seen := make(map[int64]bool)
	for trial := 0; trial < 200; trial++ {
		for _, id := range buf.Sample(3) {
			seen[id] = true
		}
	}
	assert.Len(t, seen, 10, "uniform sampling should eventually touch every id")
}

func TestAddIsIdempotent(t *testing.T) {
	buf := replay.NewBuffer(1)
	buf.Add(5)
	buf.Add(5)
	buf.Add(5)
	assert.Equal(t, 1, buf.Len())
}

func TestSampleZero(t *testing.T) {
	buf := replay.NewBuffer(1)
	buf.Add(1)
	buf.Add(2)
	assert.Nil(t, buf.Sample(0))
}
