package usecase

import (
	"math"
	"testing"

	"Tradia/internal/domain/models"
)

func TestRiskReward(t *testing.T) {
	rewardPct, riskPct, rr := riskReward(100, 105, 97, models.DirectionLong)
	if rewardPct == nil || math.Abs(*rewardPct-5) > 1e-9 {
		t.Fatalf("unexpected reward %v", rewardPct)
	}
	if riskPct == nil || math.Abs(*riskPct-3) > 1e-9 {
		t.Fatalf("unexpected risk %v", riskPct)
	}
	if rr == nil || math.Abs(*rr-5.0/3.0) > 1e-9 {
		t.Fatalf("unexpected risk/reward %v", rr)
	}
}

func TestRiskRewardShort(t *testing.T) {
	rewardPct, riskPct, rr := riskReward(100, 95, 103, models.DirectionShort)
	if rewardPct == nil || math.Abs(*rewardPct-5) > 1e-9 {
		t.Fatalf("unexpected reward %v", rewardPct)
	}
	if riskPct == nil || math.Abs(*riskPct-3) > 1e-9 {
		t.Fatalf("unexpected risk %v", riskPct)
	}
	if rr == nil || math.Abs(*rr-5.0/3.0) > 1e-9 {
		t.Fatalf("unexpected risk/reward %v", rr)
	}
}

func TestRiskRewardZeroEntry(t *testing.T) {
	rewardPct, riskPct, rr := riskReward(0, 105, 97, models.DirectionLong)
	if rewardPct != nil || riskPct != nil || rr != nil {
		t.Fatalf("expected nils for zero entry")
	}
}

func TestRiskRewardStopAboveEntry(t *testing.T) {
	rewardPct, riskPct, rr := riskReward(100, 105, 101, models.DirectionLong)
	if rewardPct == nil || *rewardPct != 5 {
		t.Fatalf("reward should still be derived, got %v", rewardPct)
	}
	if riskPct != nil || rr != nil {
		t.Fatalf("non-positive risk should not produce a multiple")
	}
}

func TestInferDirection(t *testing.T) {
	if d := inferDirection(100, 95); d != models.DirectionShort {
		t.Fatalf("target below entry should infer short, got %q", d)
	}
	if d := inferDirection(100, 105); d != models.DirectionLong {
		t.Fatalf("target above entry should infer long, got %q", d)
	}
	if d := inferDirection(0, 95); d != models.DirectionLong {
		t.Fatalf("degenerate entry should default long, got %q", d)
	}
}
