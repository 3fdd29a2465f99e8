package pipeline

import (
	"errors"
	"fmt"

	"shortreel/types"
)

// Every failure is fatal to the run: no per-segment or per-phase retries.
// The caller may retry the whole run from idle.
var (
	// ErrNoSegments means the script service produced an empty segment list.
	ErrNoSegments = errors.New("script produced no segments")
	// ErrEmptyOutput means the engine reported success but the final
	// artifact had zero length.
	ErrEmptyOutput = errors.New("output artifact is empty")
)

// EngineLoadError means the engine could not be prepared for the run.
type EngineLoadError struct {
	Err error
}

func (e *EngineLoadError) Error() string { return fmt.Sprintf("load engine: %v", e.Err) }
func (e *EngineLoadError) Unwrap() error { return e.Err }

// ScriptError means the script service failed or returned an unusable script.
type ScriptError struct {
	Err error
}

func (e *ScriptError) Error() string { return fmt.Sprintf("generate script: %v", e.Err) }
func (e *ScriptError) Unwrap() error { return e.Err }

// ConcatError means joining the clips into the final artifact failed.
type ConcatError struct {
	Err error
}

func (e *ConcatError) Error() string { return fmt.Sprintf("concatenate clips: %v", e.Err) }
func (e *ConcatError) Unwrap() error { return e.Err }

// Error is the terminal failure of a run, carrying the phase it stopped in.
type Error struct {
	Phase types.Phase
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline failed during %s: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FailedPhase extracts the phase a run failed in, or "" if err is not a
// pipeline error.
func FailedPhase(err error) types.Phase {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Phase
	}
	return ""
}
