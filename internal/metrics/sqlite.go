package metrics

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/taxdesk/answer-engine/internal/model"
)

// SQLiteSink stores metrics in a local SQLite database.
type SQLiteSink struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens the metrics store at the given path.
func NewSQLite(dsn string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "metrics: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "metrics: sqlite exec %s", pragma)
		}
	}
	return &SQLiteSink{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS search_metrics (
	id                 TEXT PRIMARY KEY,
	session_id         TEXT,
	query              TEXT NOT NULL,
	latency_ms         INTEGER NOT NULL,
	tokens_used        INTEGER NOT NULL,
	decision_mode      TEXT NOT NULL,
	conflict_score     REAL NOT NULL,
	top_domain         TEXT,
	evidence_count     INTEGER NOT NULL,
	whitelist_coverage REAL NOT NULL,
	cache_hit_rate     REAL NOT NULL,
	created_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_metrics_created_at ON search_metrics(created_at);
`

// Migrate creates the metrics table if needed.
func (s *SQLiteSink) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "metrics: sqlite migrate")
}

// SetClock overrides the time source. For tests.
func (s *SQLiteSink) SetClock(now func() time.Time) {
	s.now = now
}

// Record inserts one completed query. A missing ID or timestamp is
// filled in.
func (s *SQLiteSink) Record(ctx context.Context, m model.SearchMetrics) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_metrics
		 (id, session_id, query, latency_ms, tokens_used, decision_mode,
		  conflict_score, top_domain, evidence_count, whitelist_coverage,
		  cache_hit_rate, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.Query, m.LatencyMS, m.TokensUsed, string(m.DecisionMode),
		m.ConflictScore, m.TopDomain, m.EvidenceCount, m.WhitelistCoverage,
		m.CacheHitRate, m.CreatedAt,
	)
	return eris.Wrap(err, "metrics: sqlite record")
}

// Snapshot aggregates metrics recorded within the lookback window.
func (s *SQLiteSink) Snapshot(ctx context.Context, lookback time.Duration) (*model.PerformanceSnapshot, error) {
	since := s.now().UTC().Add(-lookback)

	var snap model.PerformanceSnapshot
	var avgLatency, avgTokens, conflictRate, overrideRate, hitRate sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        AVG(latency_ms),
		        AVG(tokens_used),
		        AVG(CASE WHEN decision_mode != 'gpt_draft' THEN 1.0 ELSE 0.0 END),
		        AVG(CASE WHEN decision_mode = 'web_override' THEN 1.0 ELSE 0.0 END),
		        AVG(cache_hit_rate)
		 FROM search_metrics WHERE created_at >= ?`, since,
	).Scan(&snap.Total, &avgLatency, &avgTokens, &conflictRate, &overrideRate, &hitRate)
	if err != nil {
		return nil, eris.Wrap(err, "metrics: sqlite snapshot")
	}

	snap.AvgLatencyMS = avgLatency.Float64
	snap.AvgTokens = avgTokens.Float64
	snap.ConflictRate = conflictRate.Float64
	snap.WebOverrideRate = overrideRate.Float64
	snap.CacheHitRate = hitRate.Float64
	snap.LookbackHours = int(lookback.Hours())
	snap.CollectedAt = s.now().UTC()
	return &snap, nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
