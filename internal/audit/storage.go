// Package audit records every trust decision in a local, optionally
// encrypted SQLite database and serves the query, purge, and export
// surfaces built on top of it.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gobwas/glob"
	_ "github.com/mutecomm/go-sqlcipher/v4" // SQLCipher driver for encrypted SQLite

	"github.com/agentwarden/warden/internal/logger"
	"github.com/agentwarden/warden/internal/trust"
)

var log = logger.New("audit")

// MinEncryptionKeyLength is the minimum required length for encryption
// keys.
const MinEncryptionKeyLength = 16

// MaxRecentMinutes caps the query window at 7 days.
const MaxRecentMinutes = 10080

// MaxRetentionDays caps the purge horizon.
const MaxRetentionDays = 36500

// sqliteTime is the canonical text form for stored timestamps, matching
// CURRENT_TIMESTAMP so lexical comparisons against datetime() work.
const sqliteTime = "2006-01-02 15:04:05"

// Storage is the audit database. SQLite supports a single writer;
// access is serialized by limiting the pool to one connection.
type Storage struct {
	conn      *sql.DB
	encrypted bool
}

// Record is one evaluated invocation.
type Record struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Profile   string    `json:"profile"`
	Tool      string    `json:"tool"`
	Command   string    `json:"command"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason"`
	Rule      string    `json:"rule,omitempty"`
	Marker    string    `json:"marker,omitempty"`
	Tier      string    `json:"tier,omitempty"`
}

// NewStorage opens (creating if needed) the audit database at dbPath.
// A non-empty encryptionKey enables SQLCipher; the key travels in the
// connection string, never through a PRAGMA statement.
func NewStorage(dbPath string, encryptionKey string) (*Storage, error) {
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")

	if encryptionKey != "" {
		if len(encryptionKey) < MinEncryptionKeyLength {
			return nil, fmt.Errorf("encryption key must be at least %d characters", MinEncryptionKeyLength)
		}
		params.Set("_pragma_key", encryptionKey)
	}

	dsn := dbPath + "?" + params.Encode()
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	encrypted := false
	if encryptionKey != "" {
		var result int
		if err := conn.QueryRowContext(context.Background(), "SELECT 1").Scan(&result); err != nil {
			conn.Close()
			return nil, fmt.Errorf("encryption key verification failed: %w", err)
		}
		encrypted = true
		log.Info("Audit database encryption enabled")
	}

	s := &Storage{conn: conn, encrypted: encrypted}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return s, nil
}

// IsEncrypted returns whether the database is encrypted.
func (s *Storage) IsEncrypted() bool {
	return s.encrypted
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.conn.Close()
}

func (s *Storage) initSchema() error {
	_, err := s.conn.ExecContext(context.Background(), schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	session_id TEXT,
	profile TEXT NOT NULL,
	tool TEXT NOT NULL,
	command TEXT NOT NULL,
	outcome TEXT NOT NULL,
	reason TEXT NOT NULL,
	rule TEXT,
	marker TEXT,
	tier TEXT
);
CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);
CREATE INDEX IF NOT EXISTS idx_decisions_session_id ON decisions(session_id);
CREATE INDEX IF NOT EXISTS idx_decisions_outcome ON decisions(outcome);
CREATE INDEX IF NOT EXISTS idx_decisions_reason ON decisions(reason);
`

// RecordDecision stores one evaluation.
func (s *Storage) RecordDecision(ctx context.Context, sessionID, profile string, tool trust.Tool, command string, d trust.Decision) error {
	return s.Insert(ctx, Record{
		SessionID: sessionID,
		Profile:   profile,
		Tool:      string(tool),
		Command:   command,
		Outcome:   d.Outcome.String(),
		Reason:    string(d.Reason),
		Rule:      d.Rule,
		Marker:    d.Marker,
		Tier:      string(d.Tier),
	})
}

// Insert stores a record; a zero timestamp means now.
func (s *Storage) Insert(ctx context.Context, r Record) error {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO decisions (timestamp, session_id, profile, tool, command, outcome, reason, rule, marker, tier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ts.UTC().Format(sqliteTime), strPtr(r.SessionID), r.Profile, r.Tool, r.Command,
		r.Outcome, r.Reason, strPtr(r.Rule), strPtr(r.Marker), strPtr(r.Tier))
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// Query selects audit records. The zero value means the last hour, up
// to 100 records, no filters.
type Query struct {
	// Minutes is the look-back window.
	Minutes int
	// Limit caps the number of returned records.
	Limit int
	// Profile, Tool, Outcome, and Reason filter by exact value.
	Profile string
	Tool    string
	Outcome string
	Reason  string
	// Command filters by glob pattern, e.g. "git *" or "*curl*".
	Command string
}

func (q *Query) normalize() {
	if q.Minutes <= 0 {
		q.Minutes = 60
	} else if q.Minutes > MaxRecentMinutes {
		q.Minutes = MaxRecentMinutes
	}
	if q.Limit <= 0 {
		q.Limit = 100
	}
}

// Recent returns matching records, newest first.
func (s *Storage) Recent(ctx context.Context, q Query) ([]Record, error) {
	q.normalize()

	var matcher glob.Glob
	if q.Command != "" {
		g, err := glob.Compile(q.Command)
		if err != nil {
			return nil, fmt.Errorf("invalid command filter %q: %w", q.Command, err)
		}
		matcher = g
	}

	where := []string{"timestamp > datetime('now', ?)"}
	args := []any{fmt.Sprintf("-%d minutes", q.Minutes)}
	for col, val := range map[string]string{
		"profile": q.Profile,
		"tool":    q.Tool,
		"outcome": q.Outcome,
		"reason":  q.Reason,
	} {
		if val != "" {
			where = append(where, col+" = ?")
			args = append(args, val)
		}
	}

	query := `
		SELECT id, timestamp, session_id, profile, tool, command, outcome, reason, rule, marker, tier
		FROM decisions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY timestamp DESC, id DESC`
	// The glob is applied in Go, so the SQL limit can only be used when
	// no command filter narrows the rows further.
	if matcher == nil {
		query += " LIMIT ?"
		args = append(args, int64(q.Limit))
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if matcher != nil && !matcher.Match(r.Command) {
			continue
		}
		records = append(records, r)
		if len(records) >= q.Limit {
			break
		}
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var r Record
	var ts string
	var sessionID, rule, marker, tier *string
	if err := rows.Scan(&r.ID, &ts, &sessionID, &r.Profile, &r.Tool, &r.Command,
		&r.Outcome, &r.Reason, &rule, &marker, &tier); err != nil {
		return Record{}, fmt.Errorf("failed to scan decision row: %w", err)
	}
	r.Timestamp = parseSQLiteTime(ts)
	r.SessionID = derefStr(sessionID)
	r.Rule = derefStr(rule)
	r.Marker = derefStr(marker)
	r.Tier = derefStr(tier)
	return r, nil
}

// Stats holds aggregate counts over a window.
type Stats struct {
	Total         int64            `json:"total"`
	AutoApproved  int64            `json:"auto_approved"`
	Confirmations int64            `json:"confirmations"`
	ByReason      map[string]int64 `json:"by_reason,omitempty"`
}

// GetStats aggregates decisions over the last minutes.
func (s *Storage) GetStats(ctx context.Context, minutes int) (*Stats, error) {
	if minutes <= 0 {
		minutes = 60
	} else if minutes > MaxRecentMinutes {
		minutes = MaxRecentMinutes
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT outcome, reason, COUNT(*)
		FROM decisions
		WHERE timestamp > datetime('now', ?)
		GROUP BY outcome, reason
	`, fmt.Sprintf("-%d minutes", minutes))
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{ByReason: map[string]int64{}}
	for rows.Next() {
		var outcome, reason string
		var count int64
		if err := rows.Scan(&outcome, &reason, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.Total += count
		if outcome == trust.AutoApprove.String() {
			stats.AutoApproved += count
		} else {
			stats.Confirmations += count
		}
		stats.ByReason[reason] += count
	}
	return stats, rows.Err()
}

// SessionSummary holds aggregate stats for one agent session.
type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	Profile       string    `json:"profile"`
	TotalCalls    int64     `json:"total_calls"`
	AutoApproved  int64     `json:"auto_approved"`
	Confirmations int64     `json:"confirmations"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
}

// GetSessions aggregates recent decisions per session, most recently
// active first.
func (s *Storage) GetSessions(ctx context.Context, minutes int, limit int) ([]SessionSummary, error) {
	if minutes <= 0 {
		minutes = 60
	} else if minutes > MaxRecentMinutes {
		minutes = MaxRecentMinutes
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT
			session_id,
			profile,
			COUNT(*) AS total_calls,
			COALESCE(SUM(CASE WHEN outcome = 'auto_approve' THEN 1 ELSE 0 END), 0) AS auto_approved,
			MIN(timestamp) AS first_seen,
			MAX(timestamp) AS last_seen
		FROM decisions
		WHERE session_id IS NOT NULL
		  AND timestamp > datetime('now', ?)
		GROUP BY session_id
		ORDER BY last_seen DESC
		LIMIT ?
	`, fmt.Sprintf("-%d minutes", minutes), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var ss SessionSummary
		var profile *string
		// Aggregate functions return strings in SQLite; scan and parse.
		var firstSeen, lastSeen string
		if err := rows.Scan(&ss.SessionID, &profile, &ss.TotalCalls, &ss.AutoApproved, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		ss.Profile = derefStr(profile)
		ss.Confirmations = ss.TotalCalls - ss.AutoApproved
		ss.FirstSeen = parseSQLiteTime(firstSeen)
		ss.LastSeen = parseSQLiteTime(lastSeen)
		sessions = append(sessions, ss)
	}
	return sessions, rows.Err()
}

// Purge deletes records older than the given number of days and
// returns how many were removed. days <= 0 is a no-op.
func (s *Storage) Purge(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	if days > MaxRetentionDays {
		days = MaxRetentionDays
	}

	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM decisions WHERE timestamp <= datetime('now', ?)`,
		fmt.Sprintf("-%d days", days))
	if err != nil {
		return 0, fmt.Errorf("failed to purge old decisions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get purged row count: %w", err)
	}
	if deleted > 0 {
		log.Info("Purged %d audit records (retention: %d days)", deleted, days)
	}
	return deleted, nil
}

// sqliteDateFormats lists the datetime formats SQLite uses for
// text-stored timestamps, tried in order.
var sqliteDateFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
}

func parseSQLiteTime(s string) time.Time {
	for _, layout := range sqliteDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ io.Closer = (*Storage)(nil)
