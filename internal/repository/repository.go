package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/twin"
)

const schema = `
CREATE TABLE IF NOT EXISTS health_history (
	id             UUID PRIMARY KEY,
	cycle          TEXT NOT NULL DEFAULT '',
	recorded_at    TIMESTAMPTZ NOT NULL,
	overall_health INTEGER NOT NULL,
	score          DOUBLE PRECISION NOT NULL DEFAULT 0,
	model_health   INTEGER NOT NULL DEFAULT 100,
	status         TEXT NOT NULL DEFAULT '',
	details        TEXT NOT NULL DEFAULT '',
	degraded       BOOLEAN NOT NULL DEFAULT FALSE,
	pillars        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS health_history_recorded_at ON health_history (recorded_at DESC);
`

// HistoryRecord is one published snapshot as stored in Postgres.
type HistoryRecord struct {
	ID            string         `db:"id" json:"id"`
	Cycle         string         `db:"cycle" json:"cycle"`
	RecordedAt    time.Time      `db:"recorded_at" json:"recorded_at"`
	OverallHealth int            `db:"overall_health" json:"overall_health"`
	Score         float64        `db:"score" json:"score"`
	ModelHealth   int            `db:"model_health" json:"model_health"`
	Status        string         `db:"status" json:"status"`
	Details       string         `db:"details" json:"details"`
	Degraded      bool           `db:"degraded" json:"degraded"`
	Pillars       types.JSONText `db:"pillars" json:"pillars"`
}

// NewHistoryRecord flattens a snapshot into a row.
func NewHistoryRecord(s twin.State) (HistoryRecord, error) {
	pillars, err := json.Marshal(s.Pillars)
	if err != nil {
		return HistoryRecord{}, fmt.Errorf("encode pillars: %w", err)
	}
	rec := HistoryRecord{
		ID:            uuid.NewString(),
		Cycle:         s.Cycle,
		RecordedAt:    s.Timestamp,
		OverallHealth: s.OverallHealth,
		ModelHealth:   twin.MaxHealth,
		Pillars:       types.JSONText(pillars),
	}
	if m := s.Model; m != nil {
		rec.Score = m.Score
		rec.ModelHealth = m.HealthScore
		rec.Status = m.Status
		rec.Details = m.Details
		rec.Degraded = m.Degraded()
	}
	return rec, nil
}

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

func (r *Repos) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *Repos) InsertHistory(ctx context.Context, rec HistoryRecord) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO health_history
		(id, cycle, recorded_at, overall_health, score, model_health, status, details, degraded, pillars)
		VALUES (:id, :cycle, :recorded_at, :overall_health, :score, :model_health, :status, :details, :degraded, :pillars)`, rec)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// ListHistory returns the most recent records, newest first.
func (r *Repos) ListHistory(ctx context.Context, limit int) ([]HistoryRecord, error) {
	out := []HistoryRecord{}
	err := r.db.SelectContext(ctx, &out, `SELECT id, cycle, recorded_at, overall_health, score, model_health,
		status, details, degraded, pillars FROM health_history ORDER BY recorded_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return out, nil
}

// HistoryRecorder stores every published snapshot.
type HistoryRecorder struct {
	repos *Repos
}

func NewHistoryRecorder(repos *Repos) *HistoryRecorder { return &HistoryRecorder{repos: repos} }

func (h *HistoryRecorder) Publish(ctx context.Context, s twin.State) error {
	rec, err := NewHistoryRecord(s)
	if err != nil {
		return err
	}
	return h.repos.InsertHistory(ctx, rec)
}
