package pipeline

import (
	"fmt"
	"strings"

	"podcastSummarize/core"
)

// summaryStyles maps the declared podcast type onto the instruction the
// summary prompt opens with. Unknown types fall through to the general
// instruction.
var summaryStyles = map[string]string{
	"interview": "Summarize this interview. Cover who is speaking, the main questions raised, and the key positions and takeaways of each participant.",
	"news":      "Summarize this news segment. Lead with the main events and facts, then the context and implications.",
	"lecture":   "Summarize this lecture. State the central thesis, then the main arguments and examples in the order they build on each other.",
	"narrative": "Summarize this narrative episode. Describe the storyline, the people involved, and how it resolves.",
}

const defaultStyle = "Summarize this podcast episode. Cover the main topics discussed and the most important points made about each."

// summaryPrompt assembles the summarization prompt from the declared
// type, the source metadata and the representative excerpts in document
// order.
func summaryPrompt(st core.PipelineState) string {
	style, ok := summaryStyles[strings.ToLower(strings.TrimSpace(st.PodcastType))]
	if !ok {
		style = defaultStyle
	}

	var b strings.Builder
	b.WriteString(style)
	b.WriteString("\n")
	if st.Meta.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", st.Meta.Title)
	}
	if st.Meta.Channel != "" {
		fmt.Fprintf(&b, "Channel: %s\n", st.Meta.Channel)
	}
	b.WriteString("\nThe following are the most salient excerpts, in the order they occur:\n\n")
	for i, ch := range st.Representatives.Chunks {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, ch.Text)
	}
	b.WriteString("Write the summary in plain prose. Do not refer to the excerpts by number.")
	return b.String()
}

// answerPrompt assembles the question-answering prompt from the
// retrieved chunks, most similar first.
func answerPrompt(question string, hits []core.Hit) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the transcript excerpts below. ")
	b.WriteString("If the excerpts do not contain the answer, say so.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nExcerpts:\n\n", question)
	for i, h := range hits {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, h.Text)
	}
	return b.String()
}
