package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"podcastSummarize/config"
	"podcastSummarize/core"
)

// Transcript is the transcriber output: ordered timestamped segments plus
// the concatenated full text.
type Transcript struct {
	Segments []core.Segment
	FullText string
}

// Transcriber converts an audio file into a transcript. Start times are
// guaranteed monotonically non-decreasing; minor overlap between segments
// is tolerated downstream but not corrected here.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}

// WhisperTranscriber calls the OpenAI audio transcription endpoint with
// verbose JSON output so segment timestamps are preserved.
type WhisperTranscriber struct {
	cli   *openai.Client
	model string
}

// NewWhisperTranscriber builds a transcriber from the configured endpoint.
func NewWhisperTranscriber(cfg *config.Config) *WhisperTranscriber {
	return &WhisperTranscriber{
		cli:   newOpenAIClient(cfg),
		model: cfg.OpenAI.WhisperModel,
	}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	resp, err := w.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Transcript{}, fmt.Errorf("transcription request: %w", err)
	}

	segs := make([]core.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segs = append(segs, core.Segment{Start: s.Start, End: s.End, Text: text})
	}
	if len(segs) == 0 {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return Transcript{}, fmt.Errorf("empty transcription result")
		}
		segs = append(segs, core.Segment{Start: 0, End: resp.Duration, Text: text})
	}

	// The API contract promises non-decreasing starts; enforce it anyway
	// so one misbehaving response cannot break the pause pass.
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })

	return Transcript{Segments: segs, FullText: joinSegments(segs)}, nil
}

func joinSegments(segs []core.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

// MockTranscriber fabricates fixed-length placeholder segments covering
// the audio duration. Used when no API key is configured.
type MockTranscriber struct {
	SegmentSeconds float64
}

func (m MockTranscriber) Transcribe(_ context.Context, audioPath string) (Transcript, error) {
	wave, err := core.LoadWAV(audioPath)
	if err != nil {
		return Transcript{}, err
	}
	segLen := m.SegmentSeconds
	if segLen <= 0 {
		segLen = 15.0
	}
	dur := wave.Duration()
	segs := make([]core.Segment, 0)
	for start := 0.0; start < dur; start += segLen {
		end := start + segLen
		if end > dur {
			end = dur
		}
		segs = append(segs, core.Segment{
			Start: start,
			End:   end,
			Text:  fmt.Sprintf("Placeholder transcript from %.0fs to %.0fs.", start, end),
		})
	}
	if len(segs) == 0 {
		return Transcript{}, fmt.Errorf("audio file %s has no samples", audioPath)
	}
	return Transcript{Segments: segs, FullText: joinSegments(segs)}, nil
}
