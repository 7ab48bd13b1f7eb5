package storage

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// FinalTag names the checkpoint written on shutdown. It is overwritten in
// place; timestamped periodic checkpoints are retained and never overwritten.
const FinalTag = "final"

// CheckpointStore persists checkpoint units. A unit has two independently
// loadable halves: the tree snapshot and the model (vectorizer+classifier)
// snapshot, both tagged by crawl id plus either a timestamp or FinalTag.
type CheckpointStore struct {
	db *sql.DB
}

// NewCheckpointStore opens/creates the DB and initializes the schema
func NewCheckpointStore(dbPath string) (*CheckpointStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &CheckpointStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates tables and indices if they don't exist
func (s *CheckpointStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tree_snapshots (
		crawl_id TEXT NOT NULL,
		tag TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		data BLOB NOT NULL,
		PRIMARY KEY (crawl_id, tag)
	);

	CREATE TABLE IF NOT EXISTS model_snapshots (
		crawl_id TEXT NOT NULL,
		tag TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		data BLOB NOT NULL,
		PRIMARY KEY (crawl_id, tag)
	);

	CREATE INDEX IF NOT EXISTS idx_tree_crawl ON tree_snapshots(crawl_id);
	CREATE INDEX IF NOT EXISTS idx_model_crawl ON model_snapshots(crawl_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// TimestampTag returns the tag for a periodic checkpoint taken now.
func TimestampTag() string {
	return fmt.Sprintf("%d", time.Now().Unix())
}

// SaveTree persists one tree snapshot half under (crawlID, tag).
func (s *CheckpointStore) SaveTree(crawlID, tag string, snap *TreeSnapshot) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode tree snapshot: %w", err)
	}

	_, err := s.db.Exec(`
		INSERT INTO tree_snapshots (crawl_id, tag, data)
		VALUES (?, ?, ?)
		ON CONFLICT(crawl_id, tag) DO UPDATE SET
			data = EXCLUDED.data,
			created_at = CURRENT_TIMESTAMP
	`, crawlID, tag, buf.Bytes())

	if err != nil {
		return fmt.Errorf("failed to save tree snapshot: %w", err)
	}
	return nil
}

// LoadTree loads one tree snapshot half, or nil if absent.
func (s *CheckpointStore) LoadTree(crawlID, tag string) (*TreeSnapshot, error) {
	var data []byte
	err := s.db.QueryRow(`
		SELECT data FROM tree_snapshots WHERE crawl_id = ? AND tag = ?
	`, crawlID, tag).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tree snapshot: %w", err)
	}

	var snap TreeSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode tree snapshot: %w", err)
	}
	return &snap, nil
}

// SaveModel persists one model snapshot half under (crawlID, tag). The blob
// is opaque: the scorer owns its own encoding.
func (s *CheckpointStore) SaveModel(crawlID, tag string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO model_snapshots (crawl_id, tag, data)
		VALUES (?, ?, ?)
		ON CONFLICT(crawl_id, tag) DO UPDATE SET
			data = EXCLUDED.data,
			created_at = CURRENT_TIMESTAMP
	`, crawlID, tag, data)

	if err != nil {
		return fmt.Errorf("failed to save model snapshot: %w", err)
	}
	return nil
}

// LoadModel loads one model snapshot half, or nil if absent.
func (s *CheckpointStore) LoadModel(crawlID, tag string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`
		SELECT data FROM model_snapshots WHERE crawl_id = ? AND tag = ?
	`, crawlID, tag).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model snapshot: %w", err)
	}
	return data, nil
}

// ListTags returns the tags of all checkpoints stored for a crawl, oldest
// first.
func (s *CheckpointStore) ListTags(crawlID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT tag FROM tree_snapshots WHERE crawl_id = ? ORDER BY created_at ASC
	`, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoint tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}

// Close closes the database connection
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}
