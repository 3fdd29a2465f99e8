// Package pipeline sequences one video run: fetch per-segment assets, encode
// one clip per segment, concatenate, and surface the final artifact or a
// terminal error. Phases only move forward and a failure in any phase aborts
// the remaining work; there is no partial output.
package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"shortreel/config"
	"shortreel/encode"
	"shortreel/engine"
	"shortreel/progress"
	"shortreel/types"
)

// ScriptGenerator is the external script-generation collaborator.
type ScriptGenerator interface {
	Generate(ctx context.Context, topic string) ([]types.Segment, error)
}

// AssetResolver fills image/audio/duration into every segment, reporting
// per-segment completion through onResolved.
type AssetResolver interface {
	ResolveAll(ctx context.Context, segments []types.Segment, onResolved func(done, total int)) ([]types.Segment, error)
}

// Pipeline builds videos. One Pipeline value may serve many runs; each run
// gets a fresh engine instance from the factory and owns it for the run's
// whole lifetime.
type Pipeline struct {
	cfg       *config.Config
	scripts   ScriptGenerator
	resolver  AssetResolver
	newEngine engine.Factory
}

func New(cfg *config.Config, scripts ScriptGenerator, resolver AssetResolver, newEngine engine.Factory) *Pipeline {
	return &Pipeline{cfg: cfg, scripts: scripts, resolver: resolver, newEngine: newEngine}
}

// run tracks the observable state of one in-flight run.
type run struct {
	mu      sync.Mutex
	phase   types.Phase
	percent int
	emit    func(types.Update)
}

func (r *run) setPhase(p types.Phase) {
	r.mu.Lock()
	r.phase = p
	u := types.Update{Phase: p, Percent: r.percent}
	r.mu.Unlock()
	r.emit(u)
}

func (r *run) setPercent(p int) {
	r.mu.Lock()
	r.percent = p
	u := types.Update{Phase: r.phase, Percent: p}
	r.mu.Unlock()
	r.emit(u)
}

// Run executes one full run for a topic. onProgress (optional) receives
// every phase change and every distinct percentage, in order, monotonic
// within the run. On failure the returned error is a *Error carrying the
// phase the run stopped in; no artifact is produced.
func (p *Pipeline) Run(ctx context.Context, topic string, onProgress func(types.Update)) (*types.Result, error) {
	if onProgress == nil {
		onProgress = func(types.Update) {}
	}
	started := time.Now()

	st := &run{phase: types.PhaseIdle, emit: onProgress}

	weights := progress.Weights{
		Init:   p.cfg.Progress.InitWeight,
		Fetch:  p.cfg.Progress.FetchWeight,
		Encode: p.cfg.Progress.EncodeWeight,
		Concat: p.cfg.Progress.ConcatWeight,
	}
	est, err := progress.New(weights, p.cfg.Progress.EncodeTimeMultiplier, st.setPercent)
	if err != nil {
		return nil, p.fail(st, err)
	}

	// The engine instance is owned by this run only. Released on every exit
	// path and never reused, so an abandoned run cannot corrupt a later one.
	eng := p.newEngine()
	defer eng.Release()

	st.setPhase(types.PhaseFetching)

	if err := eng.Load(ctx); err != nil {
		return nil, p.fail(st, &EngineLoadError{Err: err})
	}

	segments, err := p.scripts.Generate(ctx, topic)
	if err != nil {
		return nil, p.fail(st, &ScriptError{Err: err})
	}
	if len(segments) == 0 {
		return nil, p.fail(st, &ScriptError{Err: ErrNoSegments})
	}
	est.StartupDone()

	if err := ctx.Err(); err != nil {
		return nil, p.fail(st, err)
	}

	resolved, err := p.resolver.ResolveAll(ctx, segments, est.AssetFetched)
	if err != nil {
		return nil, p.fail(st, err)
	}
	for i := range resolved {
		if err := resolved[i].ValidateResolved(); err != nil {
			return nil, p.fail(st, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, p.fail(st, err)
	}

	// Encoding is strictly sequential: the engine instance is single-
	// threaded and stateful, and clips must share identical format
	// parameters for the stream-copy concat.
	st.setPhase(types.PhaseEncoding)
	encoder := encode.NewEncoder(eng, p.cfg.Video)
	for i := range resolved {
		if err := ctx.Err(); err != nil {
			return nil, p.fail(st, err)
		}
		finish := est.StartSegmentEncode(i, len(resolved), resolved[i].DurationSeconds)
		err := encoder.EncodeSegment(ctx, resolved[i])
		finish()
		if err != nil {
			return nil, p.fail(st, err)
		}
	}

	st.setPhase(types.PhaseConcatenating)
	finish := est.StartConcat()
	data, err := encode.NewConcatenator(eng).Run(ctx, len(resolved))
	finish()
	if err != nil {
		return nil, p.fail(st, &ConcatError{Err: err})
	}
	if len(data) == 0 {
		return nil, p.fail(st, ErrEmptyOutput)
	}

	st.setPhase(types.PhaseDone)
	est.Complete()

	elapsed := time.Since(started).Seconds()
	log.Printf("[pipeline] ✅ video ready: %d bytes in %.1fs", len(data), elapsed)

	return &types.Result{
		Data:     data,
		MimeType: "video/mp4",
		Summary: types.Summary{
			ProcessingTimeSeconds: elapsed,
			OutputSizeBytes:       len(data),
		},
	}, nil
}

func (p *Pipeline) fail(st *run, err error) error {
	st.mu.Lock()
	phase := st.phase
	st.mu.Unlock()
	st.setPhase(types.PhaseFailed)
	log.Printf("[pipeline] ❌ failed during %s: %v", phase, err)
	return &Error{Phase: phase, Err: err}
}
