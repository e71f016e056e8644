package chunker

import (
	"fmt"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// ErrNonMonotonicAudio is returned when an audio transcript's time
// intervals are not strictly increasing.
var ErrNonMonotonicAudio = fmt.Errorf("chunker: audio chunk time intervals are not monotonically increasing")

// AttachAudioContext is the chunker's role for audio transcripts (produced
// by the parser, not this package): attach section_path = filename to every
// chunk and verify the intervals are monotonically increasing.
func AttachAudioContext(chunks []docmodel.TextChunk, filename string) ([]docmodel.TextChunk, error) {
	out := make([]docmodel.TextChunk, len(chunks))
	var lastEnd float64
	for i, c := range chunks {
		if !c.IsAudio() {
			return nil, fmt.Errorf("chunker: chunk %d is not an audio chunk", c.ChunkID)
		}
		if i > 0 && *c.StartTime < lastEnd {
			return nil, ErrNonMonotonicAudio
		}
		lastEnd = *c.EndTime
		c.Context.SectionPath = filename
		out[i] = c
	}
	return out, nil
}
