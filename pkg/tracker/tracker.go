package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/modeshift-ai/modeshift/pkg/models"
)

// Tracker records and queries the per-call usage ledger.
type Tracker interface {
	// Record stores a usage record. A missing ID is filled in.
	Record(ctx context.Context, rec models.UsageRecord) error
	// Query returns usage records for a purpose since a given time. An empty
	// purpose matches all purposes.
	Query(ctx context.Context, purpose string, since time.Time) ([]models.UsageRecord, error)
	// TotalByPurpose returns total tokens consumed by a purpose since a given
	// time. Cached calls are excluded since they consumed no upstream tokens.
	TotalByPurpose(ctx context.Context, purpose string, since time.Time) (int64, error)
	// TotalByPurposeAndModel narrows TotalByPurpose to one model.
	TotalByPurposeAndModel(ctx context.Context, purpose, model string, since time.Time) (int64, error)
	// Summary returns aggregated usage grouped by purpose and model.
	Summary(ctx context.Context, purpose string) ([]models.UsageSummary, error)
	// CostReport aggregates non-cached usage since a given time and prices it
	// with the supplied per-1K rate lookup.
	CostReport(ctx context.Context, since time.Time, pricing PricingFunc) ([]models.CostReport, error)
	// Close releases resources.
	Close() error
}

// PricingFunc returns the input and output cost per 1K tokens for a model.
// Unknown models should report zero rates.
type PricingFunc func(provider, model string) (inPer1K, outPer1K float64)

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS usage_records (
	id TEXT PRIMARY KEY,
	purpose TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	cached INTEGER NOT NULL DEFAULT 0,
	fallback_used INTEGER NOT NULL DEFAULT 0,
	strategy TEXT NOT NULL DEFAULT '',
	latency_ms INTEGER NOT NULL DEFAULT 0,
	error_kind TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_usage_purpose_time ON usage_records(purpose, created_at);
CREATE INDEX IF NOT EXISTS idx_usage_model_time ON usage_records(provider, model, created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores a usage record.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO usage_records (id, purpose, provider, model, input_tokens, output_tokens, cached, fallback_used, strategy, latency_ms, error_kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Purpose, rec.Provider, rec.Model, rec.InputTokens, rec.OutputTokens,
		rec.Cached, rec.FallbackUsed, rec.Strategy, rec.LatencyMs, rec.ErrorKind, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// Query returns usage records for a purpose since a given time.
func (t *SQLiteTracker) Query(ctx context.Context, purpose string, since time.Time) ([]models.UsageRecord, error) {
	query := `SELECT id, purpose, provider, model, input_tokens, output_tokens, cached, fallback_used, strategy, latency_ms, error_kind, created_at
		 FROM usage_records WHERE created_at >= ?`
	args := []any{since}
	if purpose != "" {
		query += ` AND purpose = ?`
		args = append(args, purpose)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		if err := rows.Scan(&r.ID, &r.Purpose, &r.Provider, &r.Model, &r.InputTokens, &r.OutputTokens,
			&r.Cached, &r.FallbackUsed, &r.Strategy, &r.LatencyMs, &r.ErrorKind, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// TotalByPurpose returns total non-cached tokens for a purpose since a given time.
func (t *SQLiteTracker) TotalByPurpose(ctx context.Context, purpose string, since time.Time) (int64, error) {
	var total int64
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(input_tokens + output_tokens), 0) FROM usage_records
		 WHERE purpose = ? AND created_at >= ? AND cached = 0`,
		purpose, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total usage: %w", err)
	}
	return total, nil
}

// TotalByPurposeAndModel narrows TotalByPurpose to one model.
func (t *SQLiteTracker) TotalByPurposeAndModel(ctx context.Context, purpose, model string, since time.Time) (int64, error) {
	var total int64
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(input_tokens + output_tokens), 0) FROM usage_records
		 WHERE purpose = ? AND model = ? AND created_at >= ? AND cached = 0`,
		purpose, model, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total usage by model: %w", err)
	}
	return total, nil
}

// Summary returns aggregated usage grouped by purpose and model.
func (t *SQLiteTracker) Summary(ctx context.Context, purpose string) ([]models.UsageSummary, error) {
	query := `SELECT purpose, model, COUNT(*),
			SUM(CASE WHEN cached THEN 1 ELSE 0 END),
			SUM(CASE WHEN error_kind != '' THEN 1 ELSE 0 END),
			SUM(input_tokens), SUM(output_tokens)
		 FROM usage_records`
	var args []any
	if purpose != "" {
		query += ` WHERE purpose = ?`
		args = append(args, purpose)
	}
	query += ` GROUP BY purpose, model ORDER BY purpose, model`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		if err := rows.Scan(&s.Purpose, &s.Model, &s.RequestCount, &s.CacheHits, &s.Errors, &s.TotalInput, &s.TotalOutput); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// CostReport aggregates non-cached usage and prices it per row.
func (t *SQLiteTracker) CostReport(ctx context.Context, since time.Time, pricing PricingFunc) ([]models.CostReport, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT purpose, provider, model, COUNT(*), SUM(input_tokens), SUM(output_tokens)
		 FROM usage_records WHERE created_at >= ? AND cached = 0 AND error_kind = ''
		 GROUP BY purpose, provider, model ORDER BY purpose, provider, model`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("cost report: %w", err)
	}
	defer rows.Close()

	var reports []models.CostReport
	for rows.Next() {
		var r models.CostReport
		if err := rows.Scan(&r.Purpose, &r.Provider, &r.Model, &r.RequestCount, &r.InputTokens, &r.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan cost report: %w", err)
		}
		if pricing != nil {
			inRate, outRate := pricing(r.Provider, r.Model)
			r.EstimatedCost = float64(r.InputTokens)/1000*inRate + float64(r.OutputTokens)/1000*outRate
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
