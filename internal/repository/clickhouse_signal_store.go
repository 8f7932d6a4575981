package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Tradia/internal/domain/models"
	domrepo "Tradia/internal/domain/repository"
	pkgch "Tradia/pkg/clickhouse"
	applogger "Tradia/pkg/logger"
	"Tradia/pkg/util"
)

// SignalSchemaStatements are the DDL statements for the signal tables.
var SignalSchemaStatements = []string{
	`CREATE DATABASE IF NOT EXISTS tradia`,
	`CREATE TABLE IF NOT EXISTS tradia.bars_15m (
        ts DateTime, symbol String,
        open Float64, high Float64, low Float64, close Float64, volume Float64
    ) ENGINE = MergeTree ORDER BY (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS tradia.bars_1h (
        ts DateTime, symbol String,
        open Float64, high Float64, low Float64, close Float64, volume Float64
    ) ENGINE = MergeTree ORDER BY (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS tradia.bars_1d (
        ts DateTime, symbol String,
        open Float64, high Float64, low Float64, close Float64, volume Float64
    ) ENGINE = MergeTree ORDER BY (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS tradia.signals (
        id String, created_at DateTime,
        ticker String, company_name String, sector String,
        timeframe String, direction String,
        price_at_signal Float64, target_price Float64, stop_loss Float64,
        ml_proba Float64, stars UInt8, rank UInt16, top_pick UInt8,
        horizon_days UInt16, window_tag String,
        strategy_tags Array(String), candle_tags Array(String),
        support Float64, resistance Float64,
        ind_names Array(String), ind_values Array(Float64)
    ) ENGINE = MergeTree ORDER BY (created_at, ticker)`,
	`CREATE TABLE IF NOT EXISTS tradia.outcomes (
        id String, signal_id String, status String,
        deadline DateTime, target_met_at Nullable(DateTime), created_at DateTime
    ) ENGINE = MergeTree ORDER BY (signal_id, created_at)`,
}

const signalColumns = `id, created_at, ticker, company_name, sector, timeframe, direction,
        price_at_signal, target_price, stop_loss, ml_proba, stars, rank, top_pick,
        horizon_days, window_tag, strategy_tags, candle_tags, support, resistance,
        ind_names, ind_values`

// CHSignalStore implements SignalStore backed by ClickHouse.
type CHSignalStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHSignalStore(ch *pkgch.Client) *CHSignalStore {
	return &CHSignalStore{client: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHSignalStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init ensures the database and tables exist.
func (s *CHSignalStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, SignalSchemaStatements)
}

func (s *CHSignalStore) InsertSignal(ctx context.Context, sig *models.Signal) error {
	q := fmt.Sprintf("INSERT INTO tradia.signals (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", signalColumns)

	indNames := make([]string, 0, len(sig.Indicators))
	indValues := make([]float64, 0, len(sig.Indicators))
	for name, v := range sig.Indicators {
		indNames = append(indNames, name)
		indValues = append(indValues, v)
	}

	topPick := uint8(0)
	if sig.TopPick {
		topPick = 1
	}

	_, err := s.db.ExecContext(ctx, q,
		sig.ID, sig.CreatedAt,
		sig.Ticker, sig.CompanyName, sig.Sector,
		sig.Timeframe, sig.Direction,
		sig.PriceAtSignal, sig.TargetPrice, sig.StopLoss,
		sig.MLProba, uint8(sig.Stars), uint16(sig.Rank), topPick,
		uint16(sig.HorizonDays), sig.WindowTag,
		sig.StrategyTags, sig.CandleTags,
		sig.Support, sig.Resistance,
		indNames, indValues,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("insert signal failed",
				applogger.String("ticker", sig.Ticker), applogger.Error(err))
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (s *CHSignalStore) InsertOutcome(ctx context.Context, o *models.Outcome) error {
	q := `INSERT INTO tradia.outcomes (id, signal_id, status, deadline, target_met_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, o.ID, o.SignalID, o.Status, o.Deadline, o.TargetMetAt, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// UpdateOutcome appends a new outcome version; readers pick the latest row.
func (s *CHSignalStore) UpdateOutcome(ctx context.Context, o *models.Outcome) error {
	updated := *o
	updated.CreatedAt = time.Now().UTC()
	return s.InsertOutcome(ctx, &updated)
}

func (s *CHSignalStore) LatestSignals(ctx context.Context, limit int, onlyTop bool) ([]models.Signal, error) {
	q := fmt.Sprintf("SELECT %s FROM tradia.signals", signalColumns)
	if onlyTop {
		q += " WHERE top_pick = 1"
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	return s.querySignals(ctx, q, limit)
}

func (s *CHSignalStore) TopSignals(ctx context.Context, limit int) ([]models.Signal, error) {
	q := fmt.Sprintf(`SELECT %s FROM tradia.signals
        WHERE top_pick = 1
        ORDER BY created_at DESC, rank ASC LIMIT ?`, signalColumns)
	return s.querySignals(ctx, q, limit)
}

func (s *CHSignalStore) SignalsByDay(ctx context.Context, day string, onlyTop bool, limit int) ([]models.Signal, error) {
	d, ok := util.ParseDay(day)
	if !ok {
		return nil, fmt.Errorf("invalid day %q, want YYYY-MM-DD", day)
	}
	from, to := util.DayBounds(d)
	q := fmt.Sprintf("SELECT %s FROM tradia.signals WHERE created_at >= ? AND created_at < ?", signalColumns)
	if onlyTop {
		q += " AND top_pick = 1"
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	return s.querySignals(ctx, q, from, to, limit)
}

func (s *CHSignalStore) SignalsByTicker(ctx context.Context, ticker string, limit int, topOnly bool) ([]models.Signal, error) {
	q := fmt.Sprintf("SELECT %s FROM tradia.signals WHERE ticker = ?", signalColumns)
	if topOnly {
		q += " AND top_pick = 1"
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	return s.querySignals(ctx, q, ticker, limit)
}

func (s *CHSignalStore) SignalByID(ctx context.Context, id string) (*models.Signal, error) {
	q := fmt.Sprintf("SELECT %s FROM tradia.signals WHERE id = ? LIMIT 1", signalColumns)
	signals, err := s.querySignals(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if len(signals) == 0 {
		return nil, sql.ErrNoRows
	}
	return &signals[0], nil
}

func (s *CHSignalStore) LatestOutcome(ctx context.Context, signalID string) (*models.Outcome, error) {
	q := `SELECT id, signal_id, status, deadline, target_met_at, created_at
        FROM tradia.outcomes
        WHERE signal_id = ?
        ORDER BY created_at DESC LIMIT 1`
	row := s.db.QueryRowContext(ctx, q, signalID)

	var o models.Outcome
	if err := row.Scan(&o.ID, &o.SignalID, &o.Status, &o.Deadline, &o.TargetMetAt, &o.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest outcome: %w", err)
	}
	return &o, nil
}

// OpenOutcomes returns the latest outcome row of every signal still pending.
func (s *CHSignalStore) OpenOutcomes(ctx context.Context) ([]models.Outcome, error) {
	q := `SELECT id, signal_id, status, deadline, target_met_at, created_at FROM (
            SELECT
                argMax(id, created_at) AS id,
                signal_id,
                argMax(status, created_at) AS status,
                argMax(deadline, created_at) AS deadline,
                argMax(target_met_at, created_at) AS target_met_at,
                max(created_at) AS created_at
            FROM tradia.outcomes
            GROUP BY signal_id
        ) WHERE status = 'PENDING'`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("open outcomes: %w", err)
	}
	defer rows.Close()

	var out []models.Outcome
	for rows.Next() {
		var o models.Outcome
		if err := rows.Scan(&o.ID, &o.SignalID, &o.Status, &o.Deadline, &o.TargetMetAt, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *CHSignalStore) Stats(ctx context.Context) (*models.StatsSummary, error) {
	summary := &models.StatsSummary{}

	row := s.db.QueryRowContext(ctx,
		`SELECT count(), countIf(top_pick = 1) FROM tradia.signals`)
	if err := row.Scan(&summary.Signals, &summary.TopPicks); err != nil {
		return nil, fmt.Errorf("stats signals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT status, count() FROM (
            SELECT signal_id, argMax(status, created_at) AS status
            FROM tradia.outcomes GROUP BY signal_id
        ) GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("stats outcomes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		switch status {
		case models.OutcomeMet:
			summary.Met = n
		case models.OutcomeNotMet:
			summary.NotMet = n
		case models.OutcomePending:
			summary.Pending = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if resolved := summary.Met + summary.NotMet; resolved > 0 {
		winRate := float64(summary.Met) / float64(resolved) * 100
		summary.WinRatePct = &winRate
	}

	var avgDays sql.NullFloat64
	row = s.db.QueryRowContext(ctx, `
        SELECT avg(dateDiff('day', s.created_at, o.target_met_at))
        FROM tradia.outcomes o
        INNER JOIN tradia.signals s ON s.id = o.signal_id
        WHERE o.status = 'MET' AND o.target_met_at IS NOT NULL`)
	if err := row.Scan(&avgDays); err == nil && avgDays.Valid {
		summary.AvgDaysToTarget = &avgDays.Float64
	}

	return summary, nil
}

func (s *CHSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHSignalStore) Close() error {
	return nil // connection pool managed by pkg/clickhouse
}

func (s *CHSignalStore) querySignals(ctx context.Context, q string, args ...interface{}) ([]models.Signal, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sig)
	}
	return out, rows.Err()
}

func scanSignal(rows *sql.Rows) (*models.Signal, error) {
	var (
		sig       models.Signal
		stars     uint8
		rank      uint16
		topPick   uint8
		horizon   uint16
		indNames  []string
		indValues []float64
	)
	err := rows.Scan(
		&sig.ID, &sig.CreatedAt,
		&sig.Ticker, &sig.CompanyName, &sig.Sector,
		&sig.Timeframe, &sig.Direction,
		&sig.PriceAtSignal, &sig.TargetPrice, &sig.StopLoss,
		&sig.MLProba, &stars, &rank, &topPick,
		&horizon, &sig.WindowTag,
		&sig.StrategyTags, &sig.CandleTags,
		&sig.Support, &sig.Resistance,
		&indNames, &indValues,
	)
	if err != nil {
		return nil, fmt.Errorf("scan signal: %w", err)
	}
	sig.Stars = int(stars)
	sig.Rank = int(rank)
	sig.TopPick = topPick == 1
	sig.HorizonDays = int(horizon)
	if len(indNames) == len(indValues) && len(indNames) > 0 {
		sig.Indicators = make(map[string]float64, len(indNames))
		for i, name := range indNames {
			sig.Indicators[name] = indValues[i]
		}
	}
	return &sig, nil
}

var _ domrepo.SignalStore = (*CHSignalStore)(nil)
