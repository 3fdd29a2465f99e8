// Package encode turns resolved segments into fixed-length clips and joins
// them into the final artifact, driving the engine through argv commands.
package encode

import (
	"context"
	"fmt"
	"log"

	"shortreel/config"
	"shortreel/engine"
	"shortreel/types"
)

// ClipError reports which segment's encode failed and why.
type ClipError struct {
	Index int
	Cause error
}

func (e *ClipError) Error() string {
	return fmt.Sprintf("encode segment %d: %v", e.Index, e.Cause)
}

func (e *ClipError) Unwrap() error { return e.Cause }

// Encoder converts one still image + one audio track into one clip whose
// length is exactly the segment's audio duration.
type Encoder struct {
	eng   engine.Engine
	video config.VideoConfig
}

func NewEncoder(eng engine.Engine, video config.VideoConfig) *Encoder {
	return &Encoder{eng: eng, video: video}
}

// EncodeSegment writes the segment's assets into the working store and
// produces temp{i}.mp4. The clip duration is driven by the probed audio
// duration, never by image display heuristics, so audio and video cannot
// drift.
func (e *Encoder) EncodeSegment(ctx context.Context, seg types.Segment) error {
	if err := seg.ValidateResolved(); err != nil {
		return &ClipError{Index: seg.Index, Cause: err}
	}

	if err := e.eng.WriteFile(engine.ImageFile(seg.Index), seg.ImageData); err != nil {
		return &ClipError{Index: seg.Index, Cause: err}
	}
	if err := e.eng.WriteFile(engine.AudioFile(seg.Index), seg.Audio); err != nil {
		return &ClipError{Index: seg.Index, Cause: err}
	}

	log.Printf("[encode] segment %d: %.2fs clip", seg.Index, seg.DurationSeconds)
	if err := e.eng.Execute(ctx, ClipArgs(e.video, seg.Index, seg.DurationSeconds)); err != nil {
		return &ClipError{Index: seg.Index, Cause: err}
	}
	return nil
}

// ClipArgs builds the per-segment encode command: loop the still image, bind
// the audio verbatim, hold for exactly the audio duration. Pixel format and
// codec flags are fixed so every clip is stream-copy compatible with the
// concat step.
func ClipArgs(v config.VideoConfig, index int, durationSeconds float64) []string {
	return []string{
		"-y",
		"-loop", "1",
		"-i", engine.ImageFile(index),
		"-i", engine.AudioFile(index),
		"-t", fmt.Sprintf("%.3f", durationSeconds),
		"-vf", fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
			v.Width, v.Height, v.Width, v.Height,
		),
		"-r", fmt.Sprintf("%d", v.FPS),
		"-c:v", "libx264",
		"-preset", v.Preset,
		"-tune", "stillimage",
		"-crf", fmt.Sprintf("%d", v.CRF),
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		engine.ClipFile(index),
	}
}
