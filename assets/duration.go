package assets

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tcolgate/mp3"
)

// DurationProber measures the playable duration of an audio payload in
// seconds. It sits behind an interface so a speech backend that reports
// duration itself can replace the decode.
type DurationProber interface {
	Probe(data []byte) (float64, error)
}

// MP3Prober walks the MP3 frame headers and sums per-frame durations. The
// result has sub-second precision and is authoritative for clip length.
type MP3Prober struct{}

func (MP3Prober) Probe(data []byte) (float64, error) {
	dec := mp3.NewDecoder(bytes.NewReader(data))

	var (
		frame   mp3.Frame
		skipped int
		total   float64
	)
	for {
		err := dec.Decode(&frame, &skipped)
		if err == io.EOF {
			break
		}
		if err != nil {
			// Trailing junk after valid frames (ID3 padding etc.) is fine;
			// an undecodable stream from the start is not.
			if total > 0 {
				break
			}
			return 0, fmt.Errorf("decode mp3: %w", err)
		}
		total += frame.Duration().Seconds()
	}

	if total <= 0 {
		return 0, fmt.Errorf("no decodable mp3 frames in %d bytes", len(data))
	}
	return total, nil
}
