// Package replay holds the experience-replay buffer. A single fresh example
// per classifier update is noisy and non-stationary because the frontier's
// composition drifts over the crawl; resampling a bounded number of past
// examples approximates an i.i.d. sample and stabilizes convergence at a
// cost proportional to the replay count, not to total history length.
package replay

import "math/rand"

// Buffer is a set of visited, non-seed node ids eligible for resampling.
type Buffer struct {
	ids []int64
	pos map[int64]int
	rng *rand.Rand
}

// NewBuffer creates an empty replay buffer seeded for reproducible sampling.
func NewBuffer(seed int64) *Buffer {
	return &Buffer{
		pos: make(map[int64]int),
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Add inserts a node id. Duplicate inserts are ignored.
func (b *Buffer) Add(id int64) {
	if _, ok := b.pos[id]; ok {
		return
	}
	b.pos[id] = len(b.ids)
	b.ids = append(b.ids, id)
}

// Len returns the number of buffered ids.
func (b *Buffer) Len() int {
	return len(b.ids)
}

// Sample returns n ids drawn uniformly without replacement. When n is zero
// or not smaller than the buffer size, nil is returned: replay only kicks in
// once there is strictly more history than the replay count.
func (b *Buffer) Sample(n int) []int64 {
	if n <= 0 || n >= len(b.ids) {
		return nil
	}

	// Partial Fisher-Yates over a scratch copy of the first n draws.
	picked := make([]int64, n)
	scratch := make(map[int]int64, n)
	limit := len(b.ids)
	for i := 0; i < n; i++ {
		j := i + b.rng.Intn(limit-i)

		vi, ok := scratch[i]
		if !ok {
			vi = b.ids[i]
		}
		vj, ok := scratch[j]
		if !ok {
			vj = b.ids[j]
		}

		picked[i] = vj
		scratch[j] = vi
		scratch[i] = vj
	}
	return picked
}
