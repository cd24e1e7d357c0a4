package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/raine/trendgal/internal/fashion"
)

// AnalysisRun is one detection run.
type AnalysisRun struct {
	ID           string
	Source       string
	Persona      string
	ImageHash    string
	OverallStyle string
	Confidence   float64
	Items        []fashion.DetectedItem
	CreatedAt    time.Time
}

// RecommendationRun is one synthesis and matching run.
type RecommendationRun struct {
	ID           string
	Source       string
	Persona      string
	ItemCount    int
	Queries      []fashion.SearchQuery
	ProductCount int
	UsedMock     bool
	Failures     []string
	CreatedAt    time.Time
}

// RunSummary is a row of the combined run history.
type RunSummary struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Source       string    `json:"source"`
	Persona      string    `json:"persona"`
	ItemCount    int       `json:"itemCount"`
	ProductCount int       `json:"productCount"`
	UsedMock     bool      `json:"usedMock"`
	CreatedAt    time.Time `json:"createdAt"`
}

const (
	KindAnalysis       = "analysis"
	KindRecommendation = "recommendation"
)

func (s *SQLiteStore) SaveAnalysis(run *AnalysisRun) error {
	items, err := json.Marshal(run.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO analysis_runs (id, source, persona, image_hash, item_count, overall_style, confidence, items_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.Persona, run.ImageHash, len(run.Items), run.OverallStyle, run.Confidence, string(items), createdAt(run.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save analysis run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveRecommendation(run *RecommendationRun) error {
	queries, err := json.Marshal(run.Queries)
	if err != nil {
		return fmt.Errorf("failed to marshal queries: %w", err)
	}
	failures := run.Failures
	if failures == nil {
		failures = []string{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("failed to marshal failures: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO recommendation_runs (id, source, persona, item_count, query_count, product_count, used_mock, queries_json, failures_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.Persona, run.ItemCount, len(run.Queries), run.ProductCount, run.UsedMock, string(queries), string(failuresJSON), createdAt(run.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save recommendation run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs of either kind, newest first.
func (s *SQLiteStore) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, 'analysis', source, persona, item_count, 0, 0, created_at FROM analysis_runs
		UNION ALL
		SELECT id, 'recommendation', source, persona, item_count, product_count, used_mock, created_at FROM recommendation_runs
		ORDER BY 8 DESC, 1
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		var millis int64
		if err := rows.Scan(&r.ID, &r.Kind, &r.Source, &r.Persona, &r.ItemCount, &r.ProductCount, &r.UsedMock, &millis); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreatedAt = time.UnixMilli(millis).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func createdAt(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixMilli()
}
