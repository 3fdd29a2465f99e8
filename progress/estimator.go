// Package progress maps pipeline position onto a single monotonically
// non-decreasing percentage. The encode phase has no native progress
// callback, so its slice is advanced by wall-clock interpolation against a
// predicted encode time and snapped to the exact slice bound on completion.
package progress

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Weights splits the run into fixed phase slices. The values are tuning
// constants, not domain law; they must sum to 100.
type Weights struct {
	Init   int
	Fetch  int
	Encode int
	Concat int
}

func (w Weights) Validate() error {
	if sum := w.Init + w.Fetch + w.Encode + w.Concat; sum != 100 {
		return fmt.Errorf("phase weights must sum to 100, got %d", sum)
	}
	return nil
}

// encodeBase is the percentage where the encode phase starts.
func (w Weights) encodeBase() float64 { return float64(w.Init + w.Fetch) }

// concatBase is the percentage where the concat phase starts.
func (w Weights) concatBase() float64 { return float64(w.Init + w.Fetch + w.Encode) }

// Estimator reports run progress for one pipeline run. Reported values are
// clamped so they never decrease, and 100 is only ever reported by Complete.
// The sink is invoked with the estimator's lock held and must not call back
// into it.
type Estimator struct {
	weights    Weights
	multiplier float64
	sink       func(percent int)

	tick time.Duration
	now  func() time.Time

	mu      sync.Mutex
	current int
}

// New creates an estimator. multiplier scales a segment's audio duration
// into its expected encode time (a conservative upper bound). sink receives
// every distinct percentage, in order.
func New(weights Weights, multiplier float64, sink func(percent int)) (*Estimator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if multiplier <= 0 {
		return nil, fmt.Errorf("encode time multiplier must be positive, got %g", multiplier)
	}
	if sink == nil {
		sink = func(int) {}
	}
	return &Estimator{
		weights:    weights,
		multiplier: multiplier,
		sink:       sink,
		tick:       250 * time.Millisecond,
		now:        time.Now,
	}, nil
}

// SetTickInterval overrides the timer interval used by the interpolating
// phases.
func (e *Estimator) SetTickInterval(d time.Duration) {
	if d > 0 {
		e.tick = d
	}
}

// Value returns the last reported percentage.
func (e *Estimator) Value() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// StartupDone marks engine load and script generation as finished.
func (e *Estimator) StartupDone() {
	e.report(e.weights.Init)
}

// AssetFetched advances the fetch slice discretely per completed segment.
func (e *Estimator) AssetFetched(done, total int) {
	if total <= 0 {
		return
	}
	frac := float64(done) / float64(total)
	e.report(int(float64(e.weights.Init) + float64(e.weights.Fetch)*frac))
}

// StartSegmentEncode begins time-based interpolation across the segment's
// encode slice. While the encode is outstanding the value rises smoothly
// toward, but never past, 99% of the slice; the returned finish func stops
// the timer and snaps to the slice's exact upper bound.
func (e *Estimator) StartSegmentEncode(index, total int, audioSeconds float64) (finish func()) {
	floor, ceil := e.encodeSlice(index, total)
	started := e.now()
	stop := make(chan struct{})

	go func() {
		t := time.NewTicker(e.tick)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				elapsed := e.now().Sub(started)
				e.report(int(interpolate(floor, ceil, elapsed, e.expected(audioSeconds))))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			e.report(int(math.Floor(ceil)))
		})
	}
}

// StartConcat advances in fixed single-percent steps on a timer, capped at
// 99. Only Complete may report 100.
func (e *Estimator) StartConcat() (finish func()) {
	e.report(int(e.weights.concatBase()))
	stop := make(chan struct{})

	go func() {
		t := time.NewTicker(e.tick)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				e.mu.Lock()
				next := e.current + 1
				e.mu.Unlock()
				if next > 99 {
					next = 99
				}
				e.report(next)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

// Complete snaps to 100. Called if and only if the run reached Done.
func (e *Estimator) Complete() {
	e.report(100)
}

func (e *Estimator) expected(audioSeconds float64) time.Duration {
	sec := audioSeconds * e.multiplier
	if sec <= 0 {
		sec = 1
	}
	return time.Duration(sec * float64(time.Second))
}

func (e *Estimator) encodeSlice(index, total int) (floor, ceil float64) {
	base := e.weights.encodeBase()
	span := float64(e.weights.Encode)
	if total <= 0 {
		return base, base + span
	}
	floor = base + span*float64(index)/float64(total)
	ceil = base + span*float64(index+1)/float64(total)
	return floor, ceil
}

// interpolate maps elapsed time onto [floor, floor+0.99*(ceil-floor)] so an
// outstanding operation is never reported as finished.
func interpolate(floor, ceil float64, elapsed, expected time.Duration) float64 {
	frac := float64(elapsed) / float64(expected)
	if frac > 0.99 {
		frac = 0.99
	}
	if frac < 0 {
		frac = 0
	}
	return floor + frac*(ceil-floor)
}

// report clamps to [current, 100] and forwards distinct values to the sink.
func (e *Estimator) report(p int) {
	if p > 100 {
		p = 100
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if p <= e.current {
		return
	}
	e.current = p
	e.sink(p)
}
