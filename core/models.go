package core

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// SourceType identifies where the audio for a request comes from. It is
// fixed at request construction; the pipeline router switches on it
// exhaustively.
type SourceType int

const (
	SourceUnknown SourceType = iota
	SourceAudio              // local audio file, already on disk
	SourceRemote             // remote media reference, needs acquisition
	SourceLive               // live/streaming input, transcript-only path
)

func (s SourceType) String() string {
	switch s {
	case SourceAudio:
		return "audio"
	case SourceRemote:
		return "remote"
	case SourceLive:
		return "live"
	default:
		return "unknown"
	}
}

// ParseSourceType maps the wire value of a request onto the closed enum.
func ParseSourceType(v string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "audio":
		return SourceAudio, nil
	case "remote", "youtube", "link":
		return SourceRemote, nil
	case "live":
		return SourceLive, nil
	default:
		return SourceUnknown, fmt.Errorf("unknown source_type %q", v)
	}
}

// Segment is one timestamped unit of transcribed speech. Immutable once
// produced by the transcriber; OriginalIndex is assigned by the pipeline
// before feature extraction so document order survives later re-sorting.
type Segment struct {
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	Text          string  `json:"text"`
	OriginalIndex int     `json:"original_index"`
}

func (s Segment) Duration() float64 { return s.End - s.Start }

// Identity returns a stable key for joining persisted salience rows back
// to their segment (start/end/text, as stored in the salience table).
func (s Segment) Identity() string {
	h := md5.Sum([]byte(fmt.Sprintf("%.3f|%.3f|%s", s.Start, s.End, s.Text)))
	return hex.EncodeToString(h[:])
}

// MFCCCoefficients is the fixed length of the cepstral feature vector.
const MFCCCoefficients = 13

// Scalar feature column names shared by the extractor, normalizer and
// fusion engine. The MFCC vector column is handled separately because it
// is imputed and scaled per coefficient.
const (
	ColDuration     = "duration_s"
	ColWordCount    = "word_count"
	ColMeanPitch    = "mean_pitch"
	ColPitchStd     = "pitch_std"
	ColRMSEnergy    = "rms_energy"
	ColLoudnessDB   = "loudness_db"
	ColSpeakingRate = "speaking_rate"
	ColPauseBefore  = "pause_before_s"
	ColPauseAfter   = "pause_after_s"
)

// NormalizedColumns lists the acoustic columns the normalizer operates on,
// in fusion order.
var NormalizedColumns = []string{
	ColDuration, ColMeanPitch, ColPitchStd, ColRMSEnergy,
	ColLoudnessDB, ColSpeakingRate, ColPauseBefore, ColPauseAfter,
}

// Missing is the marker for a feature value that could not be computed
// (empty audio slice, unvoiced segment, boundary pause).
var Missing = math.NaN()

// IsMissing reports whether v carries the missing-value marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// ProsodicFeatures holds the per-segment acoustic measurements. Any field
// may be Missing when the audio span is empty or unvoiced; Duration and
// WordCount are always computable from text and timestamps.
type ProsodicFeatures struct {
	Duration     float64   `json:"duration_s"`
	WordCount    int       `json:"word_count"`
	MeanPitch    float64   `json:"mean_pitch"`
	PitchStd     float64   `json:"pitch_std"`
	RMSEnergy    float64   `json:"rms_energy"`
	LoudnessDB   float64   `json:"loudness_db"`
	SpeakingRate float64   `json:"speaking_rate"`
	PauseBefore  float64   `json:"pause_before_s"`
	PauseAfter   float64   `json:"pause_after_s"`
	MFCC         []float64 `json:"mfcc"`
}

// Scalar returns the named scalar column value.
func (p ProsodicFeatures) Scalar(col string) float64 {
	switch col {
	case ColDuration:
		return p.Duration
	case ColWordCount:
		return float64(p.WordCount)
	case ColMeanPitch:
		return p.MeanPitch
	case ColPitchStd:
		return p.PitchStd
	case ColRMSEnergy:
		return p.RMSEnergy
	case ColLoudnessDB:
		return p.LoudnessDB
	case ColSpeakingRate:
		return p.SpeakingRate
	case ColPauseBefore:
		return p.PauseBefore
	case ColPauseAfter:
		return p.PauseAfter
	default:
		return Missing
	}
}

// TextImportance holds the lexical and semantic importance signals for one
// unit. The embedding similarity is authoritative; TF-IDF similarity is
// kept for diagnostics only.
type TextImportance struct {
	TFIDFSimilarity     float64 `json:"tfidf_document_similarity"`
	EmbeddingSimilarity float64 `json:"embedding_document_similarity"`
	ImportanceScore     float64 `json:"text_importance_score"`
}

// NormalizedFeatures is one row after imputation and z-scoring. Columns
// dropped for the run (missing-rate above threshold) are simply absent
// from Scalars; MFCC is nil when dropped.
type NormalizedFeatures struct {
	Scalars map[string]float64 `json:"scalars"`
	MFCC    []float64          `json:"mfcc,omitempty"`
}

// SalienceRow is the persisted per-segment record: segment identity plus
// the fused score and the signals that produced it.
type SalienceRow struct {
	SegmentID     string         `json:"segment_id"`
	Start         float64        `json:"start"`
	End           float64        `json:"end"`
	Text          string         `json:"text"`
	OriginalIndex int            `json:"original_index"`
	Importance    TextImportance `json:"importance"`
	FinalSalience float64        `json:"final_salience_score"`
}

// Chunk is a semantically coherent multi-sentence grouping produced by the
// chunker, independent of segment boundaries. Never mutated after
// creation; ordering by OriginalIndex reconstructs document order.
type Chunk struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	Embedding     []float32 `json:"-"`
	OriginalIndex int       `json:"original_index"`
	WordCount     int       `json:"word_count"`
	Salience      float64   `json:"salience"`
}

// RepresentativeSet is the budget-constrained, rank-selected,
// order-restored subset of chunks used for downstream summarization.
type RepresentativeSet struct {
	Chunks []Chunk `json:"chunks"`
}

// Text joins the representative chunks in document order.
func (r RepresentativeSet) Text() string {
	parts := make([]string, 0, len(r.Chunks))
	for _, c := range r.Chunks {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, " ")
}

// Hit is one vector-search result handed to the answer terminal.
type Hit struct {
	Score         float64 `json:"score"`
	Text          string  `json:"text"`
	OriginalIndex int     `json:"original_index"`
	Salience      float64 `json:"salience"`
}

// SourceMeta is descriptive metadata from acquisition, used only for
// prompt context downstream.
type SourceMeta struct {
	Title   string `json:"title"`
	Channel string `json:"channel"`
}

// PipelineState is the single record threaded through the orchestrator.
// Each stage consumes a snapshot and returns an updated copy; the
// orchestrator owns the one mutable slot between stage invocations. It is
// never shared across concurrent requests.
type PipelineState struct {
	// Request inputs.
	Source       SourceType
	SourceRef    string // local path or remote reference
	IsQuestion   bool
	Question     string
	TranscriptID string
	PodcastType  string

	// Accumulated by stages.
	AudioPath       string
	Meta            SourceMeta
	Segments        []Segment
	Transcript      string
	Prosody         []ProsodicFeatures
	Importance      []TextImportance
	Normalized      []NormalizedFeatures
	DroppedColumns  []string
	Salience        []SalienceRow
	Chunks          []Chunk
	Representatives RepresentativeSet
	Summary         string
	Answer          string
	Warnings        []string

	// Error slot; once set, the orchestrator stops advancing the branch
	// and jumps to its terminal stage.
	Err *PipelineError
}

// Warn appends a non-fatal note carried through to the response.
func (s PipelineState) Warn(format string, args ...interface{}) PipelineState {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
	return s
}

// Fail records a request-level error on the state.
func (s PipelineState) Fail(err *PipelineError) PipelineState {
	s.Err = err
	return s
}

// TranscriptIDFromPath derives a stable transcript/run identifier from an
// audio path: base name plus a short hash of the full path.
func TranscriptIDFromPath(path string) string {
	clean := filepath.Clean(path)
	name := strings.TrimSuffix(filepath.Base(clean), filepath.Ext(clean))
	name = strings.ToLower(name)
	h := md5.Sum([]byte(clean))
	return fmt.Sprintf("%s_%s", name, hex.EncodeToString(h[:])[:8])
}
