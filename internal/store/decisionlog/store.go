// Package decisionlog keeps an append-only SQLite log of every live and
// paper trading decision, including the signal bundle and execution outcome.
package decisionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"alphadesk/internal/types"

	_ "github.com/glebarez/go-sqlite"
)

// Entry is one logged decision for one ticker.
type Entry struct {
	ID         int64                `json:"id"`
	TS         int64                `json:"ts"`
	Ticker     string               `json:"ticker"`
	Action     string               `json:"action"`
	Quantity   int                  `json:"quantity"`
	Confidence float64              `json:"confidence"`
	Reasoning  string               `json:"reasoning"`
	Policy     string               `json:"policy"`
	Mode       string               `json:"mode"`
	Signals    types.SignalBundle   `json:"signals,omitempty"`
	Order      *types.OrderSpec     `json:"order,omitempty"`
	Execution  *types.ExecutionResult `json:"execution,omitempty"`
}

// Query filters List results.
type Query struct {
	Ticker string
	Action string
	Limit  int
	Offset int
}

// Store wraps the SQLite handle.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("decision log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			ticker TEXT NOT NULL,
			action TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			confidence REAL NOT NULL,
			reasoning TEXT,
			policy TEXT,
			mode TEXT,
			signals_json TEXT,
			order_json TEXT,
			execution_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_ticker_ts ON decisions(ticker, ts DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensuring decision log schema failed: %w", err)
		}
	}
	return nil
}

// Append writes one entry. TS defaults to now when unset.
func (s *Store) Append(ctx context.Context, entry Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, fmt.Errorf("decision log store is closed")
	}
	if entry.TS == 0 {
		entry.TS = time.Now().Unix()
	}
	signalsJSON := marshalOrEmpty(entry.Signals)
	orderJSON := marshalOrEmpty(entry.Order)
	execJSON := marshalOrEmpty(entry.Execution)

	res, err := s.db.ExecContext(ctx, `INSERT INTO decisions
		(ts, ticker, action, quantity, confidence, reasoning, policy, mode, signals_json, order_json, execution_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.TS, entry.Ticker, entry.Action, entry.Quantity, entry.Confidence,
		entry.Reasoning, entry.Policy, entry.Mode, signalsJSON, orderJSON, execJSON)
	if err != nil {
		return 0, fmt.Errorf("appending decision failed: %w", err)
	}
	return res.LastInsertId()
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, q Query) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("decision log store is closed")
	}
	if q.Limit <= 0 {
		q.Limit = 100
	}
	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if q.Ticker != "" {
		where = append(where, "ticker = ?")
		args = append(args, strings.ToUpper(q.Ticker))
	}
	if q.Action != "" {
		where = append(where, "action = ?")
		args = append(args, q.Action)
	}
	query := "SELECT id, ts, ticker, action, quantity, confidence, reasoning, policy, mode, signals_json, order_json, execution_json FROM decisions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var reasoning, policy, mode sql.NullString
		var signalsJSON, orderJSON, execJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Ticker, &e.Action, &e.Quantity, &e.Confidence,
			&reasoning, &policy, &mode, &signalsJSON, &orderJSON, &execJSON); err != nil {
			return nil, err
		}
		e.Reasoning = reasoning.String
		e.Policy = policy.String
		e.Mode = mode.String
		if signalsJSON.String != "" {
			_ = json.Unmarshal([]byte(signalsJSON.String), &e.Signals)
		}
		if orderJSON.String != "" {
			_ = json.Unmarshal([]byte(orderJSON.String), &e.Order)
		}
		if execJSON.String != "" {
			_ = json.Unmarshal([]byte(execJSON.String), &e.Execution)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func marshalOrEmpty(v any) string {
	if v == nil {
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return ""
	}
	return string(raw)
}
