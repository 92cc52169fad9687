package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"podcastSummarize/config"
	"podcastSummarize/core"
	"podcastSummarize/pipeline"
	"podcastSummarize/services"
	"podcastSummarize/storage"
)

func testServer(t *testing.T) (*Server, pipeline.Deps) {
	t.Helper()
	cfg := config.Default()
	cfg.Chunker.MinChunkWords = 5
	cfg.Chunker.MaxChunkWords = 40
	emb := services.NewMockEmbedder(32)
	deps := pipeline.Deps{
		Config:      cfg,
		Acquirer:    services.MockAcquirer{},
		Transcriber: services.MockTranscriber{},
		Embedder:    emb,
		Completer:   services.MockCompleter{},
		Vectors:     storage.NewMemoryVectorStore(emb),
		Salience:    storage.NewMemorySalienceStore(),
	}
	return New(cfg, pipeline.New(deps)), deps
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLiveEndpointReturnsTranscript(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()

	transcript := "First we cover the news of the week in depth. " +
		"Then our guest explains the new policy and its likely effects."
	rec := postJSON(t, mux, "/live", LiveRequest{Transcript: transcript})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp ProcessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Transcript != transcript {
		t.Errorf("transcript in response = %q", resp.Transcript)
	}
	if resp.TranscriptID == "" {
		t.Error("no transcript id in response")
	}
	// The short path summarizes nothing and indexes nothing.
	if resp.Summary != "" {
		t.Errorf("summary in live response: %q", resp.Summary)
	}
	if resp.Chunks != 0 {
		t.Errorf("chunks in live response: %d", resp.Chunks)
	}
	if len(resp.Stages) == 0 {
		t.Error("no stage trail in response")
	}
}

func TestAskEndpoint(t *testing.T) {
	srv, deps := testServer(t)
	mux := srv.Routes()
	ctx := context.Background()

	text := "The guest explains the new policy and its likely effects."
	vec, _ := deps.Embedder.Embed(ctx, text)
	_, err := deps.Vectors.Upsert(ctx, "ep1", []core.Chunk{
		{ID: "c1", Text: text, Embedding: vec, OriginalIndex: 0},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := postJSON(t, mux, "/ask", AskRequest{
		TranscriptID: "ep1",
		Question:     "What does the guest explain?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp AnswerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer == "" {
		t.Error("no answer in response")
	}
}

func TestProcessRejectsUnknownSourceType(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()
	rec := postJSON(t, mux, "/process", ProcessRequest{SourceType: "carrier-pigeon", Source: "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProcessRejectsInvalidJSON(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()
	req := httptest.NewRequest(http.MethodPost, "/process", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProcessRequiresPost(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()
	req := httptest.NewRequest(http.MethodGet, "/process", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestAskUnknownTranscript(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()
	rec := postJSON(t, mux, "/ask", AskRequest{TranscriptID: "missing", Question: "why?"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	var resp AnswerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ErrorKind != "missing_input" {
		t.Errorf("error kind = %q", resp.ErrorKind)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	mux := srv.Routes()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
