package progress

import (
	"sync"
	"testing"
	"time"
)

var defaultWeights = Weights{Init: 10, Fetch: 30, Encode: 40, Concat: 20}

type recorder struct {
	mu     sync.Mutex
	values []int
}

func (r *recorder) sink(p int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, p)
}

func (r *recorder) all() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.values))
	copy(out, r.values)
	return out
}

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		w       Weights
		wantErr bool
	}{
		{"default split", defaultWeights, false},
		{"alternate split", Weights{Init: 5, Fetch: 45, Encode: 45, Concat: 5}, false},
		{"sums to 99", Weights{Init: 10, Fetch: 30, Encode: 40, Concat: 19}, true},
		{"sums to 101", Weights{Init: 10, Fetch: 30, Encode: 40, Concat: 21}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewRejectsBadMultiplier(t *testing.T) {
	if _, err := New(defaultWeights, 0, nil); err == nil {
		t.Fatal("expected error for zero multiplier")
	}
	if _, err := New(defaultWeights, -1, nil); err == nil {
		t.Fatal("expected error for negative multiplier")
	}
}

func TestReportIsMonotonic(t *testing.T) {
	rec := &recorder{}
	e, err := New(defaultWeights, 2.0, rec.sink)
	if err != nil {
		t.Fatal(err)
	}

	e.report(10)
	e.report(5) // must be swallowed
	e.report(10)
	e.report(42)
	e.report(42)
	e.report(200) // clamped to 100

	if got := e.Value(); got != 100 {
		t.Fatalf("Value() = %d, want 100", got)
	}
	want := []int{10, 42, 100}
	got := rec.all()
	if len(got) != len(want) {
		t.Fatalf("sink saw %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sink saw %v, want %v", got, want)
		}
	}
}

func TestStartupAndFetchProgression(t *testing.T) {
	e, err := New(defaultWeights, 2.0, nil)
	if err != nil {
		t.Fatal(err)
	}

	e.StartupDone()
	if got := e.Value(); got != 10 {
		t.Fatalf("after startup: %d, want 10", got)
	}

	e.AssetFetched(1, 4)
	if got := e.Value(); got != 17 { // 10 + 30*1/4
		t.Fatalf("after 1/4 fetched: %d, want 17", got)
	}
	e.AssetFetched(4, 4)
	if got := e.Value(); got != 40 {
		t.Fatalf("after 4/4 fetched: %d, want 40", got)
	}
}

func TestInterpolateNeverPassesSliceCap(t *testing.T) {
	floor, ceil := 40.0, 60.0
	expected := 10 * time.Second

	tests := []struct {
		elapsed time.Duration
		max     float64
	}{
		{0, floor},
		{5 * time.Second, floor + 0.5*(ceil-floor)},
		{10 * time.Second, floor + 0.99*(ceil-floor)},
		{time.Hour, floor + 0.99*(ceil-floor)},
	}
	for _, tt := range tests {
		got := interpolate(floor, ceil, tt.elapsed, expected)
		if got > tt.max+1e-9 {
			t.Errorf("interpolate(elapsed=%v) = %.3f, want <= %.3f", tt.elapsed, got, tt.max)
		}
		if got < floor {
			t.Errorf("interpolate(elapsed=%v) = %.3f, below floor %.1f", tt.elapsed, got, floor)
		}
	}
}

func TestSegmentEncodeSnapsToSliceBound(t *testing.T) {
	e, err := New(defaultWeights, 2.0, nil)
	if err != nil {
		t.Fatal(err)
	}
	e.StartupDone()
	e.AssetFetched(2, 2) // 40

	// Huge tick so the timer never fires; only the snap moves the value.
	e.SetTickInterval(time.Hour)

	finish := e.StartSegmentEncode(0, 2, 5.0)
	finish()
	if got := e.Value(); got != 60 { // 40 + 40*1/2
		t.Fatalf("after segment 0: %d, want 60", got)
	}

	finish = e.StartSegmentEncode(1, 2, 5.0)
	finish()
	finish() // idempotent
	if got := e.Value(); got != 80 {
		t.Fatalf("after segment 1: %d, want 80", got)
	}
}

func TestSegmentEncodeInterpolatesWhileOutstanding(t *testing.T) {
	e, err := New(defaultWeights, 2.0, nil)
	if err != nil {
		t.Fatal(err)
	}
	e.StartupDone()
	e.AssetFetched(1, 1) // 40
	e.SetTickInterval(2 * time.Millisecond)

	// expected encode time = 0.02s * 2.0 = 40ms; wait well past it so the
	// interpolation saturates at 99% of the slice.
	finish := e.StartSegmentEncode(0, 1, 0.02)
	time.Sleep(120 * time.Millisecond)

	v := e.Value()
	if v <= 40 {
		t.Fatalf("no interpolation progress: %d", v)
	}
	if v >= 80 {
		t.Fatalf("interpolation reached slice bound %d before completion", v)
	}

	finish()
	if got := e.Value(); got != 80 {
		t.Fatalf("after finish: %d, want 80", got)
	}
}

func TestConcatTicksCapAt99(t *testing.T) {
	rec := &recorder{}
	e, err := New(defaultWeights, 2.0, rec.sink)
	if err != nil {
		t.Fatal(err)
	}
	e.report(95)
	e.SetTickInterval(time.Millisecond)

	finish := e.StartConcat()
	time.Sleep(50 * time.Millisecond)
	finish()

	if got := e.Value(); got != 99 {
		t.Fatalf("concat reached %d, want 99", got)
	}
	for _, v := range rec.all() {
		if v == 100 {
			t.Fatal("concat ticker reported 100 before completion")
		}
	}

	e.Complete()
	if got := e.Value(); got != 100 {
		t.Fatalf("after Complete: %d, want 100", got)
	}
}

func TestFullRunSequenceIsMonotonic(t *testing.T) {
	rec := &recorder{}
	e, err := New(defaultWeights, 2.0, rec.sink)
	if err != nil {
		t.Fatal(err)
	}
	e.SetTickInterval(time.Millisecond)

	e.StartupDone()
	for i := 1; i <= 3; i++ {
		e.AssetFetched(i, 3)
	}
	for i := 0; i < 3; i++ {
		finish := e.StartSegmentEncode(i, 3, 0.01)
		time.Sleep(5 * time.Millisecond)
		finish()
	}
	finish := e.StartConcat()
	time.Sleep(5 * time.Millisecond)
	finish()
	e.Complete()

	values := rec.all()
	if len(values) == 0 || values[len(values)-1] != 100 {
		t.Fatalf("final value %v, want 100", values)
	}
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			t.Fatalf("sequence not strictly increasing at %d: %v", i, values)
		}
	}
}
