// Package gormstore persists backtest runs, their daily records and the
// per-day analyst signals in SQLite via gorm.
package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RunModel is one completed backtest.
type RunModel struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	StartDate      string         `gorm:"size:10" json:"start_date"`
	EndDate        string         `gorm:"size:10" json:"end_date"`
	Tickers        datatypes.JSON `json:"tickers"`
	InitialCash    float64        `json:"initial_cash"`
	FinalValue     float64        `json:"final_value"`
	TotalReturnPct float64        `json:"total_return_pct"`
	SharpeRatio    float64        `json:"sharpe_ratio"`
	SortinoRatio   float64        `json:"sortino_ratio"`
	MaxDrawdownPct float64        `json:"max_drawdown_pct"`
	WinRatePct     float64        `json:"win_rate_pct"`
	ReportPath     string         `json:"report_path,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (RunModel) TableName() string { return "backtest_runs" }

// RecordModel is one ticker-day outcome inside a run.
type RecordModel struct {
	ID            uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID         string  `gorm:"size:36;index" json:"run_id"`
	Day           string  `gorm:"size:10;index" json:"day"`
	Ticker        string  `gorm:"size:12;index" json:"ticker"`
	Action        string  `gorm:"size:8" json:"action"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
	Shares        int     `json:"shares"`
	PositionValue float64 `json:"position_value"`
	Cash          float64 `json:"cash"`
	TotalValue    float64 `json:"total_value"`
	BullishCount  int     `json:"bullish_count"`
	BearishCount  int     `json:"bearish_count"`
	NeutralCount  int     `json:"neutral_count"`
}

func (RecordModel) TableName() string { return "backtest_records" }

// SignalModel is one analyst signal captured during a run.
type SignalModel struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID      string  `gorm:"size:36;index" json:"run_id"`
	Day        string  `gorm:"size:10" json:"day"`
	Ticker     string  `gorm:"size:12;index" json:"ticker"`
	Analyst    string  `gorm:"size:48" json:"analyst"`
	Direction  string  `gorm:"size:8" json:"direction"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (SignalModel) TableName() string { return "backtest_signals" }

// Store wraps the gorm handle.
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: db path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RunModel{}, &RecordModel{}, &SignalModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little read parallelism for the HTTP layer without
	// inviting lock contention.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun inserts or updates a run header.
func (s *Store) SaveRun(ctx context.Context, run *RunModel) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	if run.ID == "" {
		return fmt.Errorf("gorm store: run id is required")
	}
	return s.db.WithContext(ctx).Save(run).Error
}

// AppendRecords bulk-inserts daily records for a run.
func (s *Store) AppendRecords(ctx context.Context, records []RecordModel) error {
	if s == nil || s.db == nil || len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(records, 200).Error
}

// AppendSignals bulk-inserts analyst signals for a run.
func (s *Store) AppendSignals(ctx context.Context, signals []SignalModel) error {
	if s == nil || s.db == nil || len(signals) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(signals, 200).Error
}

// GetRun loads one run header by id.
func (s *Store) GetRun(ctx context.Context, id string) (*RunModel, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	var run RunModel
	if err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunModel, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	var runs []RunModel
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// ListRecords returns the daily records of one run ordered by day.
func (s *Store) ListRecords(ctx context.Context, runID string) ([]RecordModel, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	var records []RecordModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("day ASC, ticker ASC").Find(&records).Error
	return records, err
}

// ListSignals returns the captured analyst signals of one run.
func (s *Store) ListSignals(ctx context.Context, runID string, ticker string) ([]SignalModel, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	q := s.db.WithContext(ctx).Where("run_id = ?", runID)
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	var signals []SignalModel
	err := q.Order("day ASC").Find(&signals).Error
	return signals, err
}

// TickersJSON packs a ticker list for the run header.
func TickersJSON(tickers []string) datatypes.JSON {
	raw, _ := json.Marshal(tickers)
	return datatypes.JSON(raw)
}
