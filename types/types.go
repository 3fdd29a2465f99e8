package types

import "fmt"

// Segment is one narration unit of the video. Text and ImagePrompt are set
// when the script is generated; ImageURL, ImageData, Audio and
// DurationSeconds are filled exactly once by the asset resolver and never
// change after that.
type Segment struct {
	Index           int     `json:"index"`
	Text            string  `json:"text"`
	ImagePrompt     string  `json:"image_prompt"`
	ImageURL        string  `json:"image_url"`
	ImageData       []byte  `json:"-"`
	Audio           []byte  `json:"-"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Validate checks the fields a segment must have before resolution.
func (s *Segment) Validate() error {
	if s.Text == "" {
		return fmt.Errorf("segment %d: empty narration text", s.Index)
	}
	return nil
}

// ValidateResolved checks the fields the encoder depends on. A segment that
// fails here never reaches the encoding phase.
func (s *Segment) ValidateResolved() error {
	if err := s.Validate(); err != nil {
		return err
	}
	if len(s.Audio) == 0 {
		return fmt.Errorf("segment %d: no audio payload", s.Index)
	}
	if s.DurationSeconds <= 0 {
		return fmt.Errorf("segment %d: audio duration %.3fs is not positive", s.Index, s.DurationSeconds)
	}
	return nil
}

// Phase is one stage of the pipeline state machine. Transitions are strictly
// forward; Failed is terminal and reachable from any non-terminal phase.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseFetching      Phase = "fetching_assets"
	PhaseEncoding      Phase = "encoding"
	PhaseConcatenating Phase = "concatenating"
	PhaseDone          Phase = "done"
	PhaseFailed        Phase = "failed"
)

// Terminal reports whether the phase ends a run.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Update is one progress notification emitted during a run.
type Update struct {
	Phase   Phase `json:"phase"`
	Percent int   `json:"percent"`
}

// Summary describes a completed run.
type Summary struct {
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	OutputSizeBytes       int     `json:"output_size_bytes"`
}

// Result is the final artifact handed back to the caller.
type Result struct {
	Data     []byte  `json:"-"`
	MimeType string  `json:"mime_type"`
	Summary  Summary `json:"summary"`
}
