package processors

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"podcastSummarize/config"
	"podcastSummarize/core"
	"podcastSummarize/services"
)

// HybridChunker groups the transcript's sentences into variable-length,
// semantically coherent chunks. A chunk closes once it holds at least
// MinChunkWords and either the adjacent-sentence similarity falls below
// the break threshold or the chunk reaches MaxChunkWords. Whatever is
// left at the end forms a final chunk regardless of the minimum.
//
// Per-sentence embeddings are fetched in one batched call up front; the
// boundary decisions themselves are inherently sequential.
type HybridChunker struct {
	cfg      config.ChunkerConfig
	embedder services.Embedder
	log      *logrus.Entry
}

// NewHybridChunker builds a chunker around the injected embedder.
func NewHybridChunker(cfg config.ChunkerConfig, embedder services.Embedder) *HybridChunker {
	return &HybridChunker{
		cfg:      cfg,
		embedder: embedder,
		log:      logrus.WithField("component", "chunker"),
	}
}

// Chunk splits the transcript into ordered chunks. The concatenated chunk
// texts, in OriginalIndex order, reconstruct the sentence sequence
// exactly.
func (c *HybridChunker) Chunk(ctx context.Context, transcript string) ([]core.Chunk, error) {
	sentences := SplitSentences(transcript)
	if len(sentences) == 0 {
		return nil, nil
	}

	sentVecs, err := c.embedder.EmbedBatch(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("embed sentences: %w", err)
	}

	var (
		chunks    []core.Chunk
		accum     []string
		wordCount int
	)
	flush := func() {
		if len(accum) == 0 {
			return
		}
		chunks = append(chunks, core.Chunk{
			ID:            uuid.New().String(),
			Text:          strings.Join(accum, " "),
			OriginalIndex: len(chunks),
			WordCount:     wordCount,
		})
		accum = nil
		wordCount = 0
	}

	for i, sent := range sentences {
		accum = append(accum, sent)
		wordCount += len(strings.Fields(sent))

		semanticBreak := true
		if i+1 < len(sentences) {
			sim := services.CosineSimilarity32(sentVecs[i], sentVecs[i+1])
			semanticBreak = sim < c.cfg.BreakThreshold
		}

		if wordCount >= c.cfg.MinChunkWords && (semanticBreak || wordCount >= c.cfg.MaxChunkWords) {
			flush()
		}
	}
	// Trailing remainder, below minimum size by construction.
	flush()

	// One fresh embedding per chunk over its concatenated text, batched.
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	chunkVecs, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = chunkVecs[i]
	}

	c.log.WithFields(logrus.Fields{"sentences": len(sentences), "chunks": len(chunks)}).
		Debug("transcript chunked")
	return chunks, nil
}

// Common abbreviations that end with a period but do not end a sentence.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "vs": {}, "etc": {}, "eg": {}, "ie": {}, "inc": {}, "ltd": {},
}

// SplitSentences breaks text on terminal punctuation, keeping the
// punctuation with its sentence. Abbreviations and decimal points do not
// split.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Consume runs like "?!" or "..." as one terminator.
		end := i
		for end+1 < len(runes) && (runes[end+1] == '.' || runes[end+1] == '!' || runes[end+1] == '?') {
			end++
		}
		if r == '.' && end == i {
			// Decimal point: digit on both sides.
			if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
				continue
			}
			if isAbbreviation(runes, start, i) {
				continue
			}
		}
		// A sentence ends here only if followed by whitespace or EOF.
		if end+1 < len(runes) && !unicode.IsSpace(runes[end+1]) {
			i = end
			continue
		}
		s := strings.TrimSpace(string(runes[start : end+1]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end + 1
		i = end
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isAbbreviation(runes []rune, start, dot int) bool {
	wordStart := dot
	for wordStart > start && (unicode.IsLetter(runes[wordStart-1])) {
		wordStart--
	}
	word := strings.ToLower(string(runes[wordStart:dot]))
	if len(word) == 1 {
		// Single-letter initials like "J." in names.
		return true
	}
	_, ok := abbreviations[word]
	return ok
}
