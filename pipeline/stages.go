package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"podcastSummarize/core"
	"podcastSummarize/metrics"
)

// stageAcquire resolves a remote reference to a local audio file.
func (p *Pipeline) stageAcquire(ctx context.Context, st core.PipelineState) core.PipelineState {
	if strings.TrimSpace(st.SourceRef) == "" {
		return st.Fail(core.MissingInput("acquire", "no source reference"))
	}
	acq, err := p.deps.Acquirer.Acquire(ctx, st.SourceRef)
	if err != nil {
		return st.Fail(core.ExternalFailure("acquire", err, "acquire %s", st.SourceRef))
	}
	st.AudioPath = acq.AudioPath
	st.Meta = acq.Meta
	if st.TranscriptID == "" {
		st.TranscriptID = core.TranscriptIDFromPath(acq.AudioPath)
	}
	return st
}

// stageTranscribe turns the audio file into ordered, indexed segments.
// OriginalIndex is assigned here, before anything downstream can re-sort.
func (p *Pipeline) stageTranscribe(ctx context.Context, st core.PipelineState) core.PipelineState {
	if st.AudioPath == "" {
		st.AudioPath = st.SourceRef
	}
	if strings.TrimSpace(st.AudioPath) == "" {
		return st.Fail(core.MissingInput("transcribe", "no audio path"))
	}
	if st.TranscriptID == "" {
		st.TranscriptID = core.TranscriptIDFromPath(st.AudioPath)
	}

	tr, err := p.deps.Transcriber.Transcribe(ctx, st.AudioPath)
	if err != nil {
		return st.Fail(core.ExternalFailure("transcribe", err, "transcribe %s", st.AudioPath))
	}
	for i := range tr.Segments {
		tr.Segments[i].OriginalIndex = i
	}
	st.Segments = tr.Segments
	st.Transcript = tr.FullText
	return st
}

// stageAnalyze runs feature extraction, text scoring, normalization and
// fusion over the segments. An unreadable audio file degrades to
// missing acoustic features rather than failing the request; the text
// side still works.
func (p *Pipeline) stageAnalyze(ctx context.Context, st core.PipelineState) core.PipelineState {
	if len(st.Segments) == 0 {
		return st.Fail(core.MissingInput("analyze", "no segments to analyze"))
	}

	wave, err := core.LoadWAV(st.AudioPath)
	if err != nil {
		st = st.Warn("audio unreadable, acoustic features marked missing: %v", err)
		wave = &core.Waveform{SampleRate: 16000}
	}

	st.Prosody = p.prosody.Extract(ctx, wave, st.Segments)
	metrics.SegmentsProcessed.Add(float64(len(st.Segments)))

	units := make([]string, len(st.Segments))
	for i, seg := range st.Segments {
		units[i] = seg.Text
	}
	importance, err := p.scorer.Score(ctx, st.Transcript, units)
	if err != nil {
		return st.Fail(core.ExternalFailure("analyze", err, "text importance scoring"))
	}
	st.Importance = importance

	st.Normalized, st.DroppedColumns = p.normalizer.Normalize(st.Prosody)
	for _, col := range st.DroppedColumns {
		st = st.Warn("feature column %s dropped: missing in too many segments", col)
	}

	st.Salience = p.fuser.Fuse(st.Segments, st.Normalized, st.Importance)
	return st
}

// stagePersist writes the salience table. Persistence is best-effort;
// the summary does not depend on it, so a store failure is a warning.
func (p *Pipeline) stagePersist(ctx context.Context, st core.PipelineState) core.PipelineState {
	if len(st.Salience) == 0 {
		return st
	}
	if err := p.deps.Salience.Save(ctx, st.TranscriptID, st.Salience); err != nil {
		return st.Warn("salience table not persisted: %v", err)
	}
	return st
}

// stageLive accepts an externally produced transcript and goes straight
// to the terminal: the short path does no feature extraction, chunking
// or summarization, it just hands the transcript back.
func (p *Pipeline) stageLive(_ context.Context, st core.PipelineState) core.PipelineState {
	st.Transcript = strings.TrimSpace(st.SourceRef)
	if st.Transcript == "" {
		return st.Fail(core.MissingInput("live", "empty live transcript"))
	}
	if st.TranscriptID == "" {
		st.TranscriptID = "live_" + uuid.New().String()[:8]
	}
	return st
}

// stageChunk splits the transcript into semantic chunks and selects the
// representative subset.
func (p *Pipeline) stageChunk(ctx context.Context, st core.PipelineState) core.PipelineState {
	if strings.TrimSpace(st.Transcript) == "" {
		return st.Fail(core.MissingInput("chunk", "no transcript"))
	}

	chunks, err := p.chunker.Chunk(ctx, st.Transcript)
	if err != nil {
		return st.Fail(core.ExternalFailure("chunk", err, "chunk transcript"))
	}
	if len(chunks) == 0 {
		return st.Fail(core.MissingInput("chunk", "transcript produced no chunks"))
	}

	words := len(strings.Fields(st.Transcript))
	reps, scored, err := p.selector.Select(ctx, st.Transcript, chunks, words)
	if err != nil {
		return st.Fail(core.ExternalFailure("chunk", err, "select representatives"))
	}
	st.Chunks = scored
	st.Representatives = reps
	return st
}

// stageIndex upserts the scored chunks into the vector store so the
// transcript becomes answerable. Index failure degrades the request to
// summary-only rather than failing it.
func (p *Pipeline) stageIndex(ctx context.Context, st core.PipelineState) core.PipelineState {
	n, err := p.deps.Vectors.Upsert(ctx, st.TranscriptID, st.Chunks)
	if err != nil {
		return st.Warn("chunks not indexed, questions unavailable for this transcript: %v", err)
	}
	metrics.ChunksIndexed.Add(float64(n))
	return st
}

// stageSummarize generates the final summary from the representative
// chunks.
func (p *Pipeline) stageSummarize(ctx context.Context, st core.PipelineState) core.PipelineState {
	if len(st.Representatives.Chunks) == 0 {
		return st.Fail(core.MissingInput("summarize", "no representative chunks"))
	}
	prompt := summaryPrompt(st)
	out, err := p.deps.Completer.Complete(ctx, prompt)
	if err != nil {
		return st.Fail(core.ExternalFailure("summarize", err, "generate summary"))
	}
	st.Summary = out
	return st
}

// stageAnswer retrieves the most similar indexed chunks for a question
// and generates a grounded answer.
func (p *Pipeline) stageAnswer(ctx context.Context, st core.PipelineState) core.PipelineState {
	if strings.TrimSpace(st.Question) == "" {
		return st.Fail(core.MissingInput("answer", "no question"))
	}
	if strings.TrimSpace(st.TranscriptID) == "" {
		return st.Fail(core.MissingInput("answer", "no transcript id"))
	}

	hits, err := p.deps.Vectors.Search(ctx, st.TranscriptID, st.Question, 5)
	if err != nil {
		return st.Fail(core.ExternalFailure("answer", err, "search transcript %s", st.TranscriptID))
	}
	if len(hits) == 0 {
		return st.Fail(core.MissingInput("answer", "transcript %s has no indexed chunks", st.TranscriptID))
	}

	out, err := p.deps.Completer.Complete(ctx, answerPrompt(st.Question, hits))
	if err != nil {
		return st.Fail(core.ExternalFailure("answer", err, "generate answer"))
	}
	st.Answer = out
	return st
}

// stageOutput is the shared terminal. It only reports; by the time the
// state arrives here the branch outcome is already decided.
func (p *Pipeline) stageOutput(_ context.Context, st core.PipelineState) core.PipelineState {
	fields := logrus.Fields{
		"transcript_id": st.TranscriptID,
		"segments":      len(st.Segments),
		"chunks":        len(st.Chunks),
		"warnings":      len(st.Warnings),
	}
	if st.Err != nil {
		p.log.WithFields(fields).WithError(st.Err).Warn("request failed")
	} else {
		p.log.WithFields(fields).Info("request completed")
	}
	return st
}
