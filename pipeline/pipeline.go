// Package pipeline wires the processing stages into a directed graph and
// drives one request's state through it. Stages are pure functions over
// PipelineState; the orchestrator owns sequencing, timing and the
// error-slot short-circuit.
package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"podcastSummarize/config"
	"podcastSummarize/core"
	"podcastSummarize/metrics"
	"podcastSummarize/processors"
	"podcastSummarize/services"
	"podcastSummarize/storage"
)

// Deps carries the injected collaborators. Every external service sits
// behind an interface so the pipeline runs against mocks without an API
// key.
type Deps struct {
	Config      *config.Config
	Acquirer    services.Acquirer
	Transcriber services.Transcriber
	Embedder    services.Embedder
	Completer   services.Completer
	Vectors     storage.VectorStore
	Salience    storage.SalienceStore
}

type stageFunc func(ctx context.Context, st core.PipelineState) core.PipelineState

type stage struct {
	run  stageFunc
	next string // empty means terminal
}

// terminalStage is where every branch ends, with or without an error.
const terminalStage = "output"

// StageStatus records one executed stage for the response trail.
type StageStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// Result is the orchestrator output: the final state plus the executed
// stage trail in order.
type Result struct {
	State  core.PipelineState
	Stages []StageStatus
}

// Pipeline is the stage graph plus its processing components. Safe for
// concurrent use; all per-request data lives on the PipelineState.
type Pipeline struct {
	deps Deps

	prosody    *processors.ProsodyExtractor
	scorer     *processors.TextImportanceScorer
	normalizer *processors.FeatureNormalizer
	fuser      *processors.SalienceFuser
	chunker    *processors.HybridChunker
	selector   *processors.AdaptiveSelector

	stages map[string]stage
	log    *logrus.Entry
}

// New assembles the pipeline from its dependencies.
func New(deps Deps) *Pipeline {
	cfg := deps.Config
	p := &Pipeline{
		deps:       deps,
		prosody:    processors.NewProsodyExtractor(cfg.Prosody),
		scorer:     processors.NewTextImportanceScorer(deps.Embedder),
		normalizer: processors.NewFeatureNormalizer(cfg.Normalizer),
		fuser:      processors.NewSalienceFuser(cfg.Salience),
		chunker:    processors.NewHybridChunker(cfg.Chunker, deps.Embedder),
		selector:   processors.NewAdaptiveSelector(cfg, deps.Embedder),
		log:        logrus.WithField("component", "pipeline"),
	}
	p.stages = map[string]stage{
		"acquire":    {run: p.stageAcquire, next: "transcribe"},
		"transcribe": {run: p.stageTranscribe, next: "analyze"},
		"analyze":    {run: p.stageAnalyze, next: "persist"},
		"persist":    {run: p.stagePersist, next: "chunk"},
		"live":       {run: p.stageLive, next: terminalStage},
		"chunk":      {run: p.stageChunk, next: "index"},
		"index":      {run: p.stageIndex, next: "summarize"},
		"summarize":  {run: p.stageSummarize, next: terminalStage},
		"answer":     {run: p.stageAnswer, next: terminalStage},
		terminalStage: {run: p.stageOutput},
	}
	return p
}

// Route maps a request's source onto its entry stage. The switch is
// exhaustive over the source enum; an unrecognized value is a request
// error, never a silent default.
func (p *Pipeline) Route(st core.PipelineState) (string, *core.PipelineError) {
	if st.IsQuestion {
		return "answer", nil
	}
	switch st.Source {
	case core.SourceAudio:
		return "transcribe", nil
	case core.SourceRemote:
		return "acquire", nil
	case core.SourceLive:
		return "live", nil
	default:
		return "", core.MissingInput("router", "unroutable source type %q", st.Source.String())
	}
}

// Run drives the state through the graph from its routed entry stage.
// Once the error slot is set the branch stops advancing and jumps to the
// terminal stage, so every request ends with exactly one terminal pass.
func (p *Pipeline) Run(ctx context.Context, st core.PipelineState) Result {
	name, rerr := p.Route(st)
	if rerr != nil {
		st = st.Fail(rerr)
		name = terminalStage
	}

	var trail []StageStatus
	for name != "" {
		s, ok := p.stages[name]
		if !ok {
			st = st.Fail(core.MissingInput(name, "stage not registered"))
			break
		}

		start := time.Now()
		st = s.run(ctx, st)
		failed := st.Err != nil
		metrics.ObserveStage(name, start, failed)

		status := "completed"
		if failed {
			status = "failed"
		}
		trail = append(trail, StageStatus{
			Name:      name,
			Status:    status,
			ElapsedMS: time.Since(start).Milliseconds(),
		})
		p.log.WithFields(logrus.Fields{
			"stage":   name,
			"status":  status,
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Info("stage finished")

		if failed && name != terminalStage {
			name = terminalStage
			continue
		}
		name = s.next
	}
	return Result{State: st, Stages: trail}
}
