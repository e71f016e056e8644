package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// AudioParser decodes WAV audio and produces a transcript as a sequence
// of time-stamped TextChunks. An MP3 (or any other non-WAV) file is not
// decoded: it yields a document with an empty transcript. It never sets Context — per the chunker's
// contract (section_path = filename, monotonic-interval verification) that
// belongs to the chunker, not the parser.
type AudioParser struct {
	// ModelPath is the ggml whisper model used for transcription. Left empty
	// in tests, where a ModelPath-less AudioParser degrades to an
	// empty-transcript document rather than failing.
	ModelPath string
}

func (p *AudioParser) Parse(ctx context.Context, path string) (docmodel.ParsedDocument, error) {
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	samples, err := p.loadSamples(path)
	if err != nil {
		return docmodel.ParsedDocument{}, fmt.Errorf("audio: decode: %w", err)
	}

	doc := docmodel.ParsedDocument{FileType: fileType}
	if p.ModelPath == "" || len(samples) == 0 {
		return doc, nil
	}

	model, err := whisper.New(p.ModelPath)
	if err != nil {
		return docmodel.ParsedDocument{}, fmt.Errorf("audio: load model: %w", err)
	}
	defer model.Close()

	wctx, err := model.NewContext()
	if err != nil {
		return docmodel.ParsedDocument{}, fmt.Errorf("audio: new context: %w", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return docmodel.ParsedDocument{}, fmt.Errorf("audio: transcribe: %w", err)
	}

	var chunks []docmodel.TextChunk
	for i := 0; ; i++ {
		seg, err := wctx.NextSegment()
		if err != nil {
			break
		}
		start := seg.Start.Seconds()
		end := seg.End.Seconds()
		chunks = append(chunks, docmodel.TextChunk{
			ChunkID:    i,
			Text:       strings.TrimSpace(seg.Text),
			TokenCount: wordCountEstimate(seg.Text),
			StartTime:  &start,
			EndTime:    &end,
		})
	}
	doc.Chunks = chunks
	return doc, nil
}

// loadSamples decodes a WAV file to mono float32 PCM at its native sample
// rate. whisper.cpp resamples to 16kHz internally when needed.
func (p *AudioParser) loadSamples(path string) ([]float32, error) {
	if strings.ToLower(filepath.Ext(path)) != ".wav" {
		// MP3 decoding requires a separate codec the pack has no precedent
		// for; degrade to an empty sample set rather than fabricate audio.
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm buffer: %w", err)
	}

	ints := buf.AsIntBuffer()
	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}

	frames := len(ints.Data) / channels
	samples := make([]float32, frames)
	maxAmplitude := float32(int(1) << (dec.BitDepth - 1))
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(ints.Data[i*channels+c])
		}
		samples[i] = (sum / float32(channels)) / maxAmplitude
	}
	return samples, nil
}

func wordCountEstimate(s string) int {
	return len(strings.Fields(s))
}
