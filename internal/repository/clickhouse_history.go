package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"FXBias/internal/domain/models"
	domrepo "FXBias/internal/domain/repository"
	pkgch "FXBias/pkg/clickhouse"
	applogger "FXBias/pkg/logger"
	"FXBias/pkg/util"
)

// CHHistoryStore keeps one row per (date, currency). Re-saving a day
// replaces its rows once ReplacingMergeTree merges; reads use FINAL.
type CHHistoryStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.HistoryRepository = (*CHHistoryStore)(nil)

func NewCHHistoryStore(ch *pkgch.Client, table string, l *applogger.Logger) *CHHistoryStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHHistoryStore{db: ch.DB(), table: table, l: l}
}

// HistorySchema returns the DDL for the snapshot table.
func HistorySchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    date        Date,
    currency    LowCardinality(String),
    sigma_score Float64,
    final_score Float64,
    direction   LowCardinality(String),
    payload     String,
    updated_at  DateTime64(3)
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY (date, currency)`, database, table),
	}
}

type historyRow struct {
	Date       time.Time
	Currency   string
	SigmaScore float64
	FinalScore float64
	Direction  string
	Payload    string
}

func (s *CHHistoryStore) SaveSnapshot(ctx context.Context, snap models.HistoricalSnapshot) error {
	start := time.Now()
	rows, err := snapshotRows(snap)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (date, currency, sigma_score, final_score, direction, payload, updated_at)", s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Date, r.Currency, r.SigmaScore, r.FinalScore, r.Direction, r.Payload, now); err != nil {
			_ = tx.Rollback()
			s.l.Error("clickhouse save_snapshot exec error",
				applogger.String("table", s.table),
				applogger.String("date", snap.Date),
				applogger.String("currency", r.Currency),
				applogger.Error(err),
			)
			return fmt.Errorf("insert snapshot row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.l.Info("clickhouse save_snapshot ok",
		applogger.String("table", s.table),
		applogger.String("date", snap.Date),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// ListSnapshots returns up to limit days, newest first. limit <= 0 means all.
func (s *CHHistoryStore) ListSnapshots(ctx context.Context, limit int) (models.HistoricalData, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT date, currency, sigma_score, final_score, direction, payload
        FROM %[1]s FINAL
        ORDER BY date DESC, currency ASC`, s.table)
	args := []any{}
	if limit > 0 {
		q = fmt.Sprintf(`
        SELECT date, currency, sigma_score, final_score, direction, payload
        FROM %[1]s FINAL
        WHERE date IN (SELECT DISTINCT date FROM %[1]s ORDER BY date DESC LIMIT ?)
        ORDER BY date DESC, currency ASC`, s.table)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse list_snapshots query error",
			applogger.String("table", s.table),
			applogger.Int("limit", limit),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []historyRow
	for rows.Next() {
		var r historyRow
		if err := rows.Scan(&r.Date, &r.Currency, &r.SigmaScore, &r.FinalScore, &r.Direction, &r.Payload); err != nil {
			s.l.Error("clickhouse list_snapshots scan error", applogger.String("table", s.table), applogger.Error(err))
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	h, err := assembleSnapshots(out, limit)
	if err != nil {
		return nil, err
	}
	s.l.Info("clickhouse list_snapshots ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(out)),
		applogger.Int("days", len(h)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return h, nil
}

func snapshotRows(snap models.HistoricalSnapshot) ([]historyRow, error) {
	date, ok := util.ParseDay(snap.Date)
	if !ok {
		return nil, fmt.Errorf("invalid snapshot date %q", snap.Date)
	}
	codes := make([]string, 0, len(snap.Data))
	for code, a := range snap.Data {
		if a != nil {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	rows := make([]historyRow, 0, len(codes))
	for _, code := range codes {
		a := snap.Data[code]
		b, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encode %s analysis: %w", code, err)
		}
		rows = append(rows, historyRow{
			Date:       date,
			Currency:   code,
			SigmaScore: a.SigmaScore,
			FinalScore: a.FinalScore(),
			Direction:  string(a.Direction),
			Payload:    string(b),
		})
	}
	return rows, nil
}

// assembleSnapshots groups rows by day, newest first, keeping at most limit days.
func assembleSnapshots(rows []historyRow, limit int) (models.HistoricalData, error) {
	byDay := make(map[string]models.AnalysisData)
	for _, r := range rows {
		day := util.Day(r.Date)
		var a models.CurrencyAnalysis
		if err := json.Unmarshal([]byte(r.Payload), &a); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", day, r.Currency, err)
		}
		if a.Scores == nil {
			a.Scores = make(map[models.Indicator]models.Score)
		}
		if byDay[day] == nil {
			byDay[day] = make(models.AnalysisData)
		}
		byDay[day][r.Currency] = &a
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	if limit > 0 && len(days) > limit {
		days = days[:limit]
	}

	out := make(models.HistoricalData, 0, len(days))
	for _, d := range days {
		out = append(out, models.HistoricalSnapshot{Date: d, Data: byDay[d]})
	}
	return out, nil
}
