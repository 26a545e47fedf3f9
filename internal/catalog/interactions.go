// Package catalog defines the celestial object catalog, the observer profile,
// and the sources a catalog can be loaded from.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/onnwee/skyrank/internal/tracing"
)

// InteractionStore provides aggregate engagement per object.
type InteractionStore interface {
	// Interactions returns one aggregated record per object in category.
	Interactions(ctx context.Context, category Category) ([]InteractionRecord, error)
}

// InteractionRecorder is an InteractionStore that also accepts new
// engagement.
type InteractionRecorder interface {
	InteractionStore
	Record(ctx context.Context, r InteractionRecord) error
}

// PostgresInteractionStore aggregates rows of the object_interactions table.
type PostgresInteractionStore struct {
	db *sql.DB
}

// NewPostgresInteractionStore creates a store over an open database handle.
func NewPostgresInteractionStore(db *sql.DB) *PostgresInteractionStore {
	return &PostgresInteractionStore{db: db}
}

// Interactions sums raw counts per object. The trending score is the mean of
// the recorded scores, clamped to 0-100 by the table constraint.
func (s *PostgresInteractionStore) Interactions(ctx context.Context, category Category) (records []InteractionRecord, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "object_interactions", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT object_id,
		       COALESCE(SUM(views), 0), COALESCE(SUM(clicks), 0), COALESCE(SUM(favorites), 0),
		       COALESCE(SUM(views + clicks + favorites), 0),
		       COALESCE(AVG(trending_score), 0)
		FROM object_interactions
		WHERE category = $1
		GROUP BY object_id
		ORDER BY object_id
	`

	rows, err := s.db.QueryContext(ctx, query, string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r := InteractionRecord{Category: category}
		if err := rows.Scan(&r.ObjectID, &r.Views, &r.Clicks, &r.Favorites, &r.TotalInteractions, &r.TrendingScore); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		records = append(records, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interactions: %w", err)
	}
	return records, nil
}

// Record inserts one engagement row.
func (s *PostgresInteractionStore) Record(ctx context.Context, r InteractionRecord) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "object_interactions", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO object_interactions (category, object_id, views, clicks, favorites, trending_score)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err = s.db.ExecContext(ctx, query,
		string(r.Category), r.ObjectID, r.Views, r.Clicks, r.Favorites, r.TrendingScore,
	); err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}
	return nil
}

// InMemoryInteractionStore is an in-memory InteractionStore. Records for the
// same object are merged on insert.
type InMemoryInteractionStore struct {
	mu      sync.RWMutex
	records map[Category]map[int]InteractionRecord
}

// NewInMemoryInteractionStore creates a store seeded with records.
func NewInMemoryInteractionStore(records ...InteractionRecord) *InMemoryInteractionStore {
	s := &InMemoryInteractionStore{records: make(map[Category]map[int]InteractionRecord)}
	for _, r := range records {
		_ = s.Record(context.Background(), r)
	}
	return s
}

// Record merges r into the aggregate for its object. Counts are summed and
// the most recent trending score wins.
func (s *InMemoryInteractionStore) Record(_ context.Context, r InteractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.records[r.Category]
	if !ok {
		byID = make(map[int]InteractionRecord)
		s.records[r.Category] = byID
	}
	total := r.TotalInteractions
	if total == 0 {
		total = r.Views + r.Clicks + r.Favorites
	}
	cur := byID[r.ObjectID]
	cur.Category = r.Category
	cur.ObjectID = r.ObjectID
	cur.Views += r.Views
	cur.Clicks += r.Clicks
	cur.Favorites += r.Favorites
	cur.TotalInteractions += total
	cur.TrendingScore = r.TrendingScore
	byID[r.ObjectID] = cur
	return nil
}

// Interactions returns a copy of the aggregates ordered by object id.
func (s *InMemoryInteractionStore) Interactions(_ context.Context, category Category) ([]InteractionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.records[category]
	result := make([]InteractionRecord, 0, len(byID))
	for _, r := range byID {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ObjectID < result[j].ObjectID })
	return result, nil
}

// LoadAllInteractions gathers the records of every category from store.
func LoadAllInteractions(ctx context.Context, store InteractionStore) ([]InteractionRecord, error) {
	var all []InteractionRecord
	for _, c := range Categories {
		recs, err := store.Interactions(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("%s interactions: %w", c, err)
		}
		all = append(all, recs...)
	}
	return all, nil
}
