package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/modeshift-ai/modeshift/pkg/models"
)

// Logger writes and queries audit entries in a dedicated SQLite database.
type Logger struct {
	db      *sql.DB
	cfg     models.AuditConfig
	done    chan struct{}
	wg      sync.WaitGroup
	include map[string]bool
	exclude map[string]bool
}

// New opens the audit SQLite database and creates the schema.
func New(cfg models.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	inc := make(map[string]bool)
	for _, v := range cfg.Include {
		inc[v] = true
	}
	exc := make(map[string]bool)
	for _, v := range cfg.ExcludePurposes {
		exc[v] = true
	}

	l := &Logger{
		db:      db,
		cfg:     cfg,
		done:    make(chan struct{}),
		include: inc,
		exclude: exc,
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS audit_log (
		request_id    TEXT PRIMARY KEY,
		purpose       TEXT NOT NULL,
		provider      TEXT NOT NULL,
		model         TEXT NOT NULL,
		prompt        TEXT,
		response      TEXT,
		strategy      TEXT,
		cached        INTEGER NOT NULL DEFAULT 0,
		fallback_used INTEGER NOT NULL DEFAULT 0,
		input_tokens  INTEGER,
		output_tokens INTEGER,
		latency_ms    INTEGER,
		error_kind    TEXT,
		created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_purpose ON audit_log(purpose)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_model ON audit_log(model)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`)
	return err
}

// Log inserts an audit entry, respecting include/exclude configuration.
// Prompt and response bodies are only stored when explicitly included and
// are truncated to the configured size cap.
func (l *Logger) Log(ctx context.Context, entry models.AuditEntry) error {
	if l == nil || l.db == nil {
		return nil
	}
	if l.exclude[entry.Purpose] {
		return nil
	}

	prompt := entry.Prompt
	response := entry.Response

	if !l.include["prompts"] {
		prompt = ""
	}
	if !l.include["responses"] {
		response = ""
	}

	if l.cfg.MaxBodySize > 0 {
		if len(prompt) > l.cfg.MaxBodySize {
			prompt = prompt[:l.cfg.MaxBodySize]
		}
		if len(response) > l.cfg.MaxBodySize {
			response = response[:l.cfg.MaxBodySize]
		}
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO audit_log
		(request_id, purpose, provider, model, prompt, response, strategy,
		 cached, fallback_used, input_tokens, output_tokens, latency_ms, error_kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.Purpose, entry.Provider, entry.Model,
		prompt, response, entry.Strategy,
		entry.Cached, entry.FallbackUsed,
		entry.InputTokens, entry.OutputTokens, entry.LatencyMs,
		entry.ErrorKind, entry.CreatedAt,
	)
	return err
}

// Query returns audit entries matching the given options.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error) {
	q := `SELECT request_id, purpose, provider, model, prompt, response, strategy,
		cached, fallback_used, input_tokens, output_tokens, latency_ms, error_kind, created_at
		FROM audit_log WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.Purpose != "" {
		q += " AND purpose = ?"
		args = append(args, opts.Purpose)
	}
	if opts.Model != "" {
		q += " AND model = ?"
		args = append(args, opts.Model)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var prompt, response, strategy, errorKind sql.NullString
		if err := rows.Scan(
			&e.RequestID, &e.Purpose, &e.Provider, &e.Model,
			&prompt, &response, &strategy,
			&e.Cached, &e.FallbackUsed,
			&e.InputTokens, &e.OutputTokens, &e.LatencyMs,
			&errorKind, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Prompt = prompt.String
		e.Response = response.String
		e.Strategy = strategy.String
		e.ErrorKind = errorKind.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns aggregate counts grouped by model and day.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT model, date(created_at) as day, count(*) as cnt
		 FROM audit_log GROUP BY model, day ORDER BY day DESC, model`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		var day sql.NullString
		if err := rows.Scan(&s.Model, &day, &s.Count); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM audit_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}
