package storage

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

// RunStore records pipeline runs and per-chat settings. Run records are
// write-only from the pipeline's point of view; nothing reads them back into
// detection or matching.
type RunStore interface {
	SaveAnalysis(run *AnalysisRun) error
	SaveRecommendation(run *RecommendationRun) error
	RecentRuns(limit int) ([]RunSummary, error)

	SetChatPersona(chatID int64, persona string) error
	GetChatPersona(chatID int64) (string, error)

	Close() error
}

// SQLiteStore implements RunStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions (the file exists once init has run)
	_ = os.Chmod(dbPath, 0600)

	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		persona TEXT NOT NULL,
		image_hash TEXT NOT NULL,
		item_count INTEGER NOT NULL,
		overall_style TEXT NOT NULL,
		confidence REAL NOT NULL,
		items_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create analysis_runs table: %w", err)
	}

	_, err = s.db.Exec(`
	CREATE TABLE IF NOT EXISTS recommendation_runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		persona TEXT NOT NULL,
		item_count INTEGER NOT NULL,
		query_count INTEGER NOT NULL,
		product_count INTEGER NOT NULL,
		used_mock INTEGER NOT NULL DEFAULT 0,
		queries_json TEXT NOT NULL,
		failures_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create recommendation_runs table: %w", err)
	}

	_, err = s.db.Exec(`
	CREATE TABLE IF NOT EXISTS chat_settings (
		chat_id INTEGER PRIMARY KEY,
		persona TEXT
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create chat_settings table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Fingerprint returns the hex blake2b-256 digest of an image.
func Fingerprint(image []byte) string {
	sum := blake2b.Sum256(image)
	return hex.EncodeToString(sum[:])
}
