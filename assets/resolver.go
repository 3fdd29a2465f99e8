package assets

import (
	"context"
	"fmt"
	"log"
	"sync"

	"shortreel/config"
	"shortreel/types"
)

// SegmentError reports which segment's asset fetch failed.
type SegmentError struct {
	Index int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d: %v", e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// Resolver fills in the image and audio assets of a segment list. Segments
// are independent, so resolution fans out concurrently; callers get the
// fully resolved list back only when every segment finished (the encoder
// needs contiguous indices).
type Resolver struct {
	images ImageSource
	speech SpeechSource
	prober DurationProber
}

// NewResolver wires the default collaborator clients.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		images: NewImageSearcher(cfg),
		speech: NewSpeechClient(cfg),
		prober: MP3Prober{},
	}
}

// NewResolverWith lets callers supply their own sources.
func NewResolverWith(images ImageSource, speech SpeechSource, prober DurationProber) *Resolver {
	return &Resolver{images: images, speech: speech, prober: prober}
}

// ResolveAll resolves every segment concurrently and waits for all of them.
// Each goroutine writes only its own index slot, so no locking is needed on
// the result slice. onResolved, if set, is called after each segment
// completes with (completed, total). If any segment fails the whole batch
// fails with a *SegmentError for the lowest failing index; no partially
// resolved list is ever returned.
func (r *Resolver) ResolveAll(ctx context.Context, segments []types.Segment, onResolved func(done, total int)) ([]types.Segment, error) {
	resolved := make([]types.Segment, len(segments))
	errs := make(chan *SegmentError, len(segments))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for i := range segments {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			seg, err := r.resolveOne(ctx, segments[i])
			if err != nil {
				errs <- &SegmentError{Index: i, Err: err}
				return
			}
			resolved[i] = seg

			mu.Lock()
			done++
			completed := done
			mu.Unlock()
			if onResolved != nil {
				onResolved(completed, len(segments))
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	var first *SegmentError
	for e := range errs {
		if first == nil || e.Index < first.Index {
			first = e
		}
	}
	if first != nil {
		return nil, first
	}
	return resolved, nil
}

func (r *Resolver) resolveOne(ctx context.Context, seg types.Segment) (types.Segment, error) {
	if err := seg.Validate(); err != nil {
		return seg, err
	}

	imageURL, imageData, err := r.images.Fetch(ctx, seg.ImagePrompt)
	if err != nil {
		return seg, fmt.Errorf("fetch image: %w", err)
	}
	seg.ImageURL = imageURL
	seg.ImageData = imageData

	audio, err := r.speech.Synthesize(ctx, seg.Text)
	if err != nil {
		return seg, fmt.Errorf("synthesize speech: %w", err)
	}
	seg.Audio = audio

	dur, err := r.prober.Probe(audio)
	if err != nil {
		return seg, fmt.Errorf("probe audio duration: %w", err)
	}
	seg.DurationSeconds = dur

	log.Printf("[assets] segment %d resolved: %.2fs audio, %d byte image", seg.Index, dur, len(imageData))
	return seg, nil
}
