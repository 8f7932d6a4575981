package usecase

import (
	"context"
	"fmt"
	"time"

	"Tradia/pkg/logger"
	"Tradia/pkg/queue"
)

// ScanTickerMsgType is the queue message type for single-ticker scan jobs.
const ScanTickerMsgType = "scan_ticker"

// ScanTickerPayload is the queue payload for a single-ticker scan.
type ScanTickerPayload struct {
	Ticker string `json:"ticker"`
	Window string `json:"window"`
}

// ScanTickerJob processes queued single-ticker scans. It lets ad-hoc scans
// (API-triggered or backfills) flow through the same path as the periodic
// scanner, with the queue's retry and DLQ behavior.
type ScanTickerJob struct {
	scanner *Scanner
	logger  *logger.Logger
}

func NewScanTickerJob(scanner *Scanner, l *logger.Logger) *ScanTickerJob {
	return &ScanTickerJob{scanner: scanner, logger: l}
}

func (j *ScanTickerJob) Name() string { return "scan-ticker" }
func (j *ScanTickerJob) Type() string { return ScanTickerMsgType }

func (j *ScanTickerJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ScanTickerPayload](payload)
	if err != nil {
		return fmt.Errorf("scan job payload: %w", err)
	}
	if p.Ticker == "" {
		return fmt.Errorf("scan job: ticker empty")
	}
	window := p.Window
	if window == "" {
		window = WindowTag(time.Now().UTC())
	}

	sig, err := j.scanner.ScanTicker(ctx, p.Ticker, window)
	if err != nil {
		return err
	}
	if sig == nil {
		j.logger.Debug("queued scan found no setup", logger.String("ticker", p.Ticker))
		return nil
	}
	return j.scanner.proc.Process(ctx, sig)
}

var _ queue.Job = (*ScanTickerJob)(nil)
