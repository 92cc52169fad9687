package server

import (
	"encoding/json"
	"net/http"

	"podcastSummarize/core"
	"podcastSummarize/metrics"
	"podcastSummarize/pipeline"
)

// ProcessRequest starts a full pipeline run over a local file or remote
// reference.
type ProcessRequest struct {
	SourceType   string `json:"source_type"` // audio | remote | live
	Source       string `json:"source"`      // path, URL or raw transcript
	PodcastType  string `json:"podcast_type,omitempty"`
	TranscriptID string `json:"transcript_id,omitempty"`
}

// AskRequest queries a previously indexed transcript.
type AskRequest struct {
	TranscriptID string `json:"transcript_id"`
	Question     string `json:"question"`
}

// LiveRequest submits an externally produced transcript for the
// text-only path.
type LiveRequest struct {
	Transcript   string `json:"transcript"`
	PodcastType  string `json:"podcast_type,omitempty"`
	TranscriptID string `json:"transcript_id,omitempty"`
}

// ProcessResponse is the response for /process and /live.
type ProcessResponse struct {
	TranscriptID    string                   `json:"transcript_id"`
	Transcript      string                   `json:"transcript,omitempty"`
	Summary         string                   `json:"summary,omitempty"`
	Meta            core.SourceMeta          `json:"meta"`
	Segments        int                      `json:"segments"`
	Chunks          int                      `json:"chunks"`
	Representatives []core.Chunk             `json:"representatives,omitempty"`
	Salience        []core.SalienceRow       `json:"salience,omitempty"`
	DroppedColumns  []string                 `json:"dropped_columns,omitempty"`
	Warnings        []string                 `json:"warnings,omitempty"`
	Stages          []pipeline.StageStatus   `json:"stages"`
	Error           string                   `json:"error,omitempty"`
	ErrorKind       string                   `json:"error_kind,omitempty"`
}

// AnswerResponse is the response for /ask.
type AnswerResponse struct {
	TranscriptID string                 `json:"transcript_id"`
	Question     string                 `json:"question"`
	Answer       string                 `json:"answer,omitempty"`
	Stages       []pipeline.StageStatus `json:"stages"`
	Error        string                 `json:"error,omitempty"`
	ErrorKind    string                 `json:"error_kind,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RequestsTotal.WithLabelValues("process", "bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	source, err := core.ParseSourceType(req.SourceType)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues("process", "bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res := s.pipe.Run(r.Context(), core.PipelineState{
		Source:       source,
		SourceRef:    req.Source,
		PodcastType:  req.PodcastType,
		TranscriptID: req.TranscriptID,
	})
	s.writeProcessResult(w, "process", res)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}
	var req LiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RequestsTotal.WithLabelValues("live", "bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	res := s.pipe.Run(r.Context(), core.PipelineState{
		Source:       core.SourceLive,
		SourceRef:    req.Transcript,
		PodcastType:  req.PodcastType,
		TranscriptID: req.TranscriptID,
	})
	s.writeProcessResult(w, "live", res)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RequestsTotal.WithLabelValues("ask", "bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	res := s.pipe.Run(r.Context(), core.PipelineState{
		IsQuestion:   true,
		Question:     req.Question,
		TranscriptID: req.TranscriptID,
	})

	resp := AnswerResponse{
		TranscriptID: res.State.TranscriptID,
		Question:     req.Question,
		Answer:       res.State.Answer,
		Stages:       res.Stages,
	}
	status := http.StatusOK
	if res.State.Err != nil {
		resp.Error = res.State.Err.Error()
		resp.ErrorKind = res.State.Err.Kind.String()
		status = statusForError(res.State.Err)
	}
	metrics.RequestsTotal.WithLabelValues("ask", outcome(res.State.Err)).Inc()
	writeJSON(w, status, resp)
}

func (s *Server) writeProcessResult(w http.ResponseWriter, endpoint string, res pipeline.Result) {
	st := res.State
	resp := ProcessResponse{
		TranscriptID:    st.TranscriptID,
		Transcript:      st.Transcript,
		Summary:         st.Summary,
		Meta:            st.Meta,
		Segments:        len(st.Segments),
		Chunks:          len(st.Chunks),
		Representatives: st.Representatives.Chunks,
		Salience:        st.Salience,
		DroppedColumns:  st.DroppedColumns,
		Warnings:        st.Warnings,
		Stages:          res.Stages,
	}
	status := http.StatusOK
	if st.Err != nil {
		resp.Error = st.Err.Error()
		resp.ErrorKind = st.Err.Kind.String()
		status = statusForError(st.Err)
	}
	metrics.RequestsTotal.WithLabelValues(endpoint, outcome(st.Err)).Inc()
	writeJSON(w, status, resp)
}

func statusForError(err *core.PipelineError) int {
	if err.Kind == core.ErrMissingInput {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func outcome(err *core.PipelineError) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
