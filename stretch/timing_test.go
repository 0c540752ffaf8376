package stretch

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-stretch/grain"
	"github.com/cwbudde/algo-stretch/resample"
)

func TestNewTimingRejectsUnsupportedAdjust(t *testing.T) {
	if _, err := NewTiming(resample.SampleRates{Input: 44100, Output: 44100}, 2); err != ErrUnsupportedHopAdjust {
		t.Fatalf("got err %v, want ErrUnsupportedHopAdjust", err)
	}
}

func TestNewTimingAdjustShiftsHopByOneBit(t *testing.T) {
	base, err := NewTiming(resample.SampleRates{Input: 44100, Output: 44100}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	up, err := NewTiming(resample.SampleRates{Input: 44100, Output: 44100}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if up.Log2SynthesisHop != base.Log2SynthesisHop+1 {
		t.Errorf("Log2SynthesisHop = %d, want %d", up.Log2SynthesisHop, base.Log2SynthesisHop+1)
	}
}

func TestMaxInputFrameCountSatisfiesInvariant(t *testing.T) {
	rates := []resample.SampleRates{
		{Input: 8000, Output: 8000},
		{Input: 44100, Output: 48000},
		{Input: 192000, Output: 192000},
	}

	for _, r := range rates {
		for _, adjust := range []int{-1, 0, 1} {
			timing, err := NewTiming(r, adjust)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := 8 * (1 << timing.Log2SynthesisHop)
			if got := timing.MaxInputFrameCount(); got < want {
				t.Errorf("rates=%+v adjust=%d: MaxInputFrameCount()=%d, want >= %d", r, adjust, got, want)
			}
		}
	}
}

func TestPrerollMovesPositionEarlierByRingDepth(t *testing.T) {
	timing, err := NewTiming(resample.SampleRates{Input: 48000, Output: 48000}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := grain.Request{Position: 100000, Speed: 1}
	timing.Preroll(&req)

	want := 100000.0 - float64(grain.RingSize-1)*float64(int(1)<<timing.Log2SynthesisHop)
	if math.Abs(req.Position-want) > 1e-9 {
		t.Errorf("Position = %v, want %v", req.Position, want)
	}
}

func TestNextAdvancesByUnitHopScaledBySpeed(t *testing.T) {
	timing, err := NewTiming(resample.SampleRates{Input: 44100, Output: 48000}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := grain.Request{Position: 0, Speed: 2}
	timing.Next(&req)

	want := 2 * float64(int(1)<<timing.Log2SynthesisHop) * (44100.0 / 48000.0)
	if math.Abs(req.Position-want) > 1e-9 {
		t.Errorf("Position = %v, want %v", req.Position, want)
	}
}
