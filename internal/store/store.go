package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a topic does not exist.
var ErrNotFound = errors.New("topic not found")

// Topic is a scored entity.
type Topic struct {
	ID         string  `db:"id" json:"id"`
	Name       string  `db:"name" json:"name"`
	Category   string  `db:"category" json:"category"`
	OpenAlexID *string `db:"openalex_id" json:"openalex_id,omitempty"`

	// Impact and Activity hold raw composites after a single-topic
	// computation and percentile ranks in [0,100] after a batch run.
	Impact   float64 `db:"impact" json:"impact"`
	Activity float64 `db:"activity" json:"activity"`

	Metrics     *Metrics  `db:"-" json:"metrics,omitempty"`
	MetricsJSON string    `db:"metrics" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Metrics is the per-topic snapshot of fetched signal values. It is
// owned by the scoring engine and mutated in place on every computation.
type Metrics struct {
	OpenAlex  OpenAlexMetrics  `json:"openalex"`
	Wikipedia WikipediaMetrics `json:"wikipedia"`

	// LastError and BackoffUntil are shared across all sources: one
	// backoff clock per topic, set on any fetch failure.
	LastError    *string    `json:"last_error,omitempty"`
	BackoffUntil *time.Time `json:"backoff_until,omitempty"`
	ScoredAt     *time.Time `json:"scored_at,omitempty"`
}

// OpenAlexMetrics caches citation and works counts.
type OpenAlexMetrics struct {
	CitedByCount    int64      `json:"cited_by_count"`
	WorksCount      int64      `json:"works_count"`
	WorksLast12M    int64      `json:"works_last_12m"`
	TotalsFetchedAt *time.Time `json:"totals_fetched_at,omitempty"`
	RecentFetchedAt *time.Time `json:"recent_fetched_at,omitempty"`
}

// WikipediaMetrics caches the resolved article title and page views.
type WikipediaMetrics struct {
	Title     *string    `json:"title,omitempty"`
	Views12M  int64      `json:"views_12m"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

// EnsureMetrics lazily initializes the metrics snapshot.
func (t *Topic) EnsureMetrics() *Metrics {
	if t.Metrics == nil {
		t.Metrics = &Metrics{}
	}
	return t.Metrics
}

// ListOpts controls topic listing.
type ListOpts struct {
	Category string
	Limit    int
}

// Store is the persistence interface.
type Store interface {
	CreateTopic(ctx context.Context, t *Topic) error
	GetTopic(ctx context.Context, id string) (*Topic, error)
	ListTopics(ctx context.Context, opts ListOpts) ([]Topic, error)
	SaveTopic(ctx context.Context, t *Topic) error
	DeleteTopic(ctx context.Context, id string) error

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateTopic(ctx context.Context, t *Topic) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.MetricsJSON = marshalMetrics(t.Metrics)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topics (id, name, category, openalex_id, impact, activity, metrics, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.Category, t.OpenAlexID, t.Impact, t.Activity,
		t.MetricsJSON, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create topic %q: %w", t.Name, err)
	}
	return nil
}

func (s *SQLiteStore) GetTopic(ctx context.Context, id string) (*Topic, error) {
	var t Topic
	err := s.db.GetContext(ctx, &t, "SELECT * FROM topics WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get topic %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get topic %s: %w", id, err)
	}
	unmarshalMetrics(&t)
	return &t, nil
}

func (s *SQLiteStore) ListTopics(ctx context.Context, opts ListOpts) ([]Topic, error) {
	query := "SELECT * FROM topics WHERE 1=1"
	var args []any

	if opts.Category != "" {
		query += " AND category = ?"
		args = append(args, opts.Category)
	}

	// Deterministic order so batch runs are reproducible.
	query += " ORDER BY created_at, id"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	var topics []Topic
	if err := s.db.SelectContext(ctx, &topics, query, args...); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	for i := range topics {
		unmarshalMetrics(&topics[i])
	}
	return topics, nil
}

func (s *SQLiteStore) SaveTopic(ctx context.Context, t *Topic) error {
	t.UpdatedAt = time.Now().UTC()
	t.MetricsJSON = marshalMetrics(t.Metrics)

	res, err := s.db.ExecContext(ctx, `
		UPDATE topics SET name = ?, category = ?, openalex_id = ?,
			impact = ?, activity = ?, metrics = ?, updated_at = ?
		WHERE id = ?
	`, t.Name, t.Category, t.OpenAlexID, t.Impact, t.Activity,
		t.MetricsJSON, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("save topic %s: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("save topic %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) DeleteTopic(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM topics WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete topic %s: %w", id, err)
	}
	return nil
}

func marshalMetrics(m *Metrics) string {
	if m == nil {
		return "{}"
	}
	data, _ := json.Marshal(m)
	return string(data)
}

func unmarshalMetrics(t *Topic) {
	if t.MetricsJSON == "" || t.MetricsJSON == "{}" {
		return
	}
	var m Metrics
	if err := json.Unmarshal([]byte(t.MetricsJSON), &m); err == nil {
		t.Metrics = &m
	}
}
