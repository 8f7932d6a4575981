package middleware

import (
	"context"
	"fmt"
	"testing"
	"time"

	"Tradia/internal/domain/models"
)

type countingProc struct {
	calls int
	err   error
}

func (p *countingProc) Process(context.Context, *models.Trade) error {
	p.calls++
	return p.err
}

type nopMetrics struct{ errors []string }

func (m *nopMetrics) RecordSignalEmitted(string, string) {}
func (m *nopMetrics) RecordError(kind string)            { m.errors = append(m.errors, kind) }
func (m *nopMetrics) RecordLastPrice(string, float64)    {}
func (m *nopMetrics) RecordLatency(string, float64)      {}

func validTrade(sym string) *models.Trade {
	return &models.Trade{Symbol: sym, Timestamp: time.Now().Unix(), Price: 10, Volume: 1}
}

func TestPipelineForwardsValidTrade(t *testing.T) {
	proc := &countingProc{}
	p := NewPricePipeline(proc, &nopMetrics{})
	if err := p.Process(context.Background(), validTrade("AAPL")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if proc.calls != 1 {
		t.Fatalf("downstream not called")
	}
}

func TestPipelineRejectsInvalidTrade(t *testing.T) {
	proc := &countingProc{}
	m := &nopMetrics{}
	p := NewPricePipeline(proc, m)

	bad := []*models.Trade{
		nil,
		{Symbol: "", Timestamp: 1, Price: 1},
		{Symbol: "AAPL", Timestamp: 0, Price: 1},
		{Symbol: "AAPL", Timestamp: 1, Price: -1},
	}
	for i, tr := range bad {
		if err := p.Process(context.Background(), tr); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if proc.calls != 0 {
		t.Fatalf("invalid trades reached downstream")
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &countingProc{}
	p := NewPricePipeline(proc, &nopMetrics{}, WithMaxRPS(1))

	tr := validTrade("AAPL")
	_ = p.Process(context.Background(), tr)
	_ = p.Process(context.Background(), tr) // same second, throttled
	if proc.calls != 1 {
		t.Fatalf("expected 1 downstream call, got %d", proc.calls)
	}

	// a different symbol has its own budget
	_ = p.Process(context.Background(), validTrade("MSFT"))
	if proc.calls != 2 {
		t.Fatalf("other symbol should pass, got %d calls", proc.calls)
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &countingProc{err: fmt.Errorf("down")}
	p := NewPricePipeline(proc, &nopMetrics{}, WithBufferSize(4))

	if err := p.Process(context.Background(), validTrade("AAPL")); err == nil {
		t.Fatalf("expected downstream error")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("trade not buffered, buffer len %d", len(p.bufCh))
	}
}

func TestPipelineTransform(t *testing.T) {
	proc := &countingProc{}
	p := NewPricePipeline(proc, &nopMetrics{}, WithTransform(func(tr *models.Trade) *models.Trade {
		tr.Price = tr.Price * 2
		return tr
	}))
	tr := validTrade("AAPL")
	if err := p.Process(context.Background(), tr); err != nil {
		t.Fatalf("process: %v", err)
	}
	if tr.Price != 20 {
		t.Fatalf("transform not applied, price %v", tr.Price)
	}
}
