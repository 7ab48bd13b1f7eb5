package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvmarrod/link-oracle/internal/storage"
)

func newTestStore(t *testing.T) *storage.CheckpointStore {
	t.Helper()
	store, err := storage.NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSnapshot(crawlID string) *storage.TreeSnapshot {
	return &storage.TreeSnapshot{
		CrawlID: crawlID,
		Nodes: []*storage.Node{
			{
				ID:       0,
				URL:      "https://example.com",
				ParentID: -1,
				Visited:  true,
				OK:       true,
				ObservedScores: storage.Scores{
					"login": 0.9,
				},
				ResponseSeq: 1,
			},
			{
				ID:       1,
				URL:      "https://example.com/login",
				ParentID: 0,
				Depth:    1,
				Link: &storage.LinkRecord{
					URL:  "https://example.com/login",
					Text: "Sign in",
				},
				PredictedScores: storage.Scores{"login": 0.7},
			},
		},
	}
}

func TestTreeSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)

	snap := sampleSnapshot("crawl-1")
	require.NoError(t, store.SaveTree("crawl-1", "100", snap))

	loaded, err := store.LoadTree("crawl-1", "100")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, "crawl-1", loaded.CrawlID)
	assert.Equal(t, int64(-1), loaded.Nodes[0].ParentID)
	assert.Equal(t, 0.9, loaded.Nodes[0].ObservedScores["login"])
	assert.Equal(t, "Sign in", loaded.Nodes[1].Link.Text)
	assert.Equal(t, 0.7, loaded.Nodes[1].PredictedScores["login"])
}

func TestModelBlobRoundTrip(t *testing.T) {
	store := newTestStore(t)

	blob := []byte{0x01, 0x02, 0x03, 0xff}
	require.NoError(t, store.SaveModel("crawl-1", "100", blob))

	loaded, err := store.LoadModel("crawl-1", "100")
	require.NoError(t, err)
	assert.Equal(t, blob, loaded)
}

func TestHalvesAreIndependentlyLoadable(t *testing.T) {
	store := newTestStore(t)

	// Only the model half exists under this tag.
	require.NoError(t, store.SaveModel("crawl-1", "100", []byte("model")))

	tree, err := store.LoadTree("crawl-1", "100")
	require.NoError(t, err)
	assert.Nil(t, tree)

	model, err := store.LoadModel("crawl-1", "100")
	require.NoError(t, err)
	assert.Equal(t, []byte("model"), model)
}

func TestLoadMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	tree, err := store.LoadTree("nope", "100")
	require.NoError(t, err)
	assert.Nil(t, tree)

	model, err := store.LoadModel("nope", "100")
	require.NoError(t, err)
	assert.Nil(t, model)
}

func TestFinalTagOverwrites(t *testing.T) {
	store := newTestStore(t)

	first := sampleSnapshot("crawl-1")
	require.NoError(t, store.SaveTree("crawl-1", storage.FinalTag, first))

	second := sampleSnapshot("crawl-1")
	second.Nodes = second.Nodes[:1]
	require.NoError(t, store.SaveTree("crawl-1", storage.FinalTag, second))

	loaded, err := store.LoadTree("crawl-1", storage.FinalTag)
	require.NoError(t, err)
	assert.Len(t, loaded.Nodes, 1)
}

func TestPeriodicTagsAreRetained(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveTree("crawl-1", "100", sampleSnapshot("crawl-1")))
	require.NoError(t, store.SaveTree("crawl-1", "200", sampleSnapshot("crawl-1")))
	require.NoError(t, store.SaveTree("crawl-1", storage.FinalTag, sampleSnapshot("crawl-1")))

	tags, err := store.ListTags("crawl-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"100", "200", storage.FinalTag}, tags)
}

func TestCrawlsAreIsolated(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveTree("crawl-1", "100", sampleSnapshot("crawl-1")))

	loaded, err := store.LoadTree("crawl-2", "100")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	tags, err := store.ListTags("crawl-2")
	require.NoError(t, err)
	assert.Empty(t, tags)
}
