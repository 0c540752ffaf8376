package resample

import (
	"math"
	"testing"
)

func TestNewExternalRejectsMisalignedLength(t *testing.T) {
	_, err := NewExternal(make([]float64, 5), 2, 0, 0)
	if err == nil {
		t.Fatal("want error for length not divisible by channel count")
	}
}

func TestNewExternalClampsMuteRegion(t *testing.T) {
	ext, err := NewExternal(make([]float64, 20), 2, 3, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ext.UnmutedBegin != 3 {
		t.Errorf("UnmutedBegin = %d, want 3", ext.UnmutedBegin)
	}

	if ext.UnmutedEnd != ext.UnmutedBegin {
		t.Errorf("UnmutedEnd = %d, want clamped to UnmutedBegin (%d)", ext.UnmutedEnd, ext.UnmutedBegin)
	}
}

func TestRunAdditiveUnitRatioCopiesSamples(t *testing.T) {
	internal := NewInternal(10, 1)
	internal.FrameCount = 10

	src := make([]float64, 10)
	for i := range src {
		src[i] = float64(i + 1)
	}

	external, err := NewExternal(src, 1, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	Run(Bilinear, Additive, internal, external, 1, 1)

	got := internal.Unpadded()
	for i, want := range src {
		if math.Abs(got[i]-want) > 1e-9 {
			t.Errorf("frame %d = %v, want %v", i, got[i], want)
		}
	}
}

func TestRunMultiplicativeMutesOutsideUnmutedRange(t *testing.T) {
	internal := NewInternal(10, 1)
	internal.FrameCount = 10

	for i := 0; i < internal.FrameCount; i++ {
		internal.rowAt(Padding + i)[0] = 1
	}

	dst := make([]float64, 10)
	external, err := NewExternal(dst, 1, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	Run(Bilinear, Multiplicative, internal, external, 1, 1)

	for i := 0; i < 2; i++ {
		if dst[i] != 0 {
			t.Errorf("muted head frame %d = %v, want 0", i, dst[i])
		}
	}

	for i := 8; i < 10; i++ {
		if dst[i] != 0 {
			t.Errorf("muted tail frame %d = %v, want 0", i, dst[i])
		}
	}

	for i := 2; i < 8; i++ {
		if math.Abs(dst[i]-1) > 1e-9 {
			t.Errorf("unmuted frame %d = %v, want ~1", i, dst[i])
		}
	}
}

func TestResampleReturnsErrWouldTruncateWhenExternalTooSmall(t *testing.T) {
	internal := NewInternal(1000, 1)
	internal.FrameCount = 1000

	dst := make([]float64, 4)
	external, err := NewExternal(dst, 1, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := Resample(Bilinear, Multiplicative, internal, external, 1, 1, false, nil); err != ErrWouldTruncate {
		t.Fatalf("got err %v, want ErrWouldTruncate", err)
	}
}

func TestResampleAlignEndLandsWithinTolerance(t *testing.T) {
	internal := NewInternal(100, 1)
	internal.FrameCount = 100

	for i := 0; i < internal.FrameCount; i++ {
		internal.rowAt(Padding + i)[0] = float64(i)
	}

	dst := make([]float64, 200)
	external, err := NewExternal(dst, 1, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := Resample(Bilinear, Multiplicative, internal, external, 0.5, 0.5, true, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(internal.Offset) > 1e-2 {
		t.Errorf("internal.Offset = %v, want within alignEnd tolerance", internal.Offset)
	}
}

func TestResampleLandedBadlyLogsAndResetsOffset(t *testing.T) {
	internal := NewInternal(10, 1)
	internal.FrameCount = 10

	dst := make([]float64, 10)
	external, err := NewExternal(dst, 1, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var logged string
	logf := func(msg string) { logged = msg }

	// A steep 4 -> 0.5 ramp: round(2*10/4.5) = 4 frames advance the
	// internal position by 4*2.25 = 9, one frame short of 10, which is
	// beyond the 0.5*1.1 tolerance.
	if err := Resample(Bilinear, Multiplicative, internal, external, 4, 0.5, false, logf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if logged == "" {
		t.Error("want landed-badly diagnostic to be logged")
	}

	if internal.Offset != 0 {
		t.Errorf("internal.Offset = %v, want reset to 0 after landing badly", internal.Offset)
	}
}

func TestOperationsSetupForceOutDisablesInput(t *testing.T) {
	var ops Operations

	if _, err := ops.Setup(SampleRates{Input: 44100, Output: 44100}, 2, ForceOut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ops.Input.Active {
		t.Error("Input.Active = true, want false for ForceOut")
	}

	if !ops.Output.Active {
		t.Error("Output.Active = false, want true for ForceOut")
	}
}

func TestOperationsSetupForceInDisablesOutput(t *testing.T) {
	var ops Operations

	if _, err := ops.Setup(SampleRates{Input: 44100, Output: 44100}, 0.5, ForceIn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ops.Output.Active {
		t.Error("Output.Active = true, want false for ForceIn")
	}

	if !ops.Input.Active {
		t.Error("Input.Active = false, want true for ForceIn")
	}
}

func TestOperationsSetupUnitRatioDisablesBoth(t *testing.T) {
	var ops Operations

	if _, err := ops.Setup(SampleRates{Input: 48000, Output: 48000}, 1, AutoInOut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ops.Input.Active || ops.Output.Active {
		t.Errorf("got %+v, want both sides inactive for unit ratio", ops)
	}

	if ops.Input.Ratio != 1 || ops.Output.Ratio != 1 {
		t.Errorf("got %+v, want both ratios reset to 1", ops)
	}
}

func TestOperationsSetupAutoInOutPicksCheaperSide(t *testing.T) {
	var up Operations
	if _, err := up.Setup(SampleRates{Input: 44100, Output: 44100}, 2, AutoInOut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if up.Output.Active {
		t.Error("pitching up: Output.Active = true, want false (output side disabled when resampleRatio > 1)")
	}

	if !up.Input.Active {
		t.Error("pitching up: Input.Active = false, want true")
	}

	var down Operations
	if _, err := down.Setup(SampleRates{Input: 44100, Output: 44100}, 0.5, AutoInOut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if down.Input.Active {
		t.Error("pitching down: Input.Active = true, want false (input side disabled when resampleRatio < 1)")
	}

	if !down.Output.Active {
		t.Error("pitching down: Output.Active = false, want true")
	}
}

func TestOperationsSetupUnknownModeReturnsError(t *testing.T) {
	var ops Operations

	_, err := ops.Setup(SampleRates{Input: 44100, Output: 44100}, 1.5, ResampleMode(99))
	if err != ErrUnknownMode {
		t.Fatalf("got err %v, want ErrUnknownMode", err)
	}
}

func TestOperationsSetupReturnsResidualForInactiveOutput(t *testing.T) {
	var ops Operations

	residual, err := ops.Setup(SampleRates{Input: 44100, Output: 48000}, 1, AutoIn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := 44100.0 / 48000.0
	if math.Abs(residual-want) > 1e-12 {
		t.Errorf("residual = %v, want %v", residual, want)
	}
}
