package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/docq-ai/docq-go/internal/agent"
	"github.com/docq-ai/docq-go/internal/analytics"
	"github.com/docq-ai/docq-go/internal/index"
	"github.com/docq-ai/docq-go/internal/logging"
	"github.com/docq-ai/docq-go/internal/store"
)

// testUserID is a fixed valid UUID used across handler tests.
const testUserID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeAgent is a test double for the queryRunner interface.
type fakeAgent struct {
	// outcome is returned by Run. If nil a minimal outcome is synthesised.
	outcome *agent.Outcome
	// gotQuery and gotMode record the last Run invocation.
	gotQuery string
	gotMode  agent.Mode
}

func (f *fakeAgent) Run(_ context.Context, _, query string, mode agent.Mode, _ []string) *agent.Outcome {
	f.gotQuery = query
	f.gotMode = mode
	if f.outcome != nil {
		return f.outcome
	}
	return &agent.Outcome{Answer: "answer", Mode: mode}
}

// fakeIngester is a test double for the documentIngester interface.
type fakeIngester struct {
	doc         store.Document
	err         error
	gotFilename string
	gotContent  []byte
}

func (f *fakeIngester) IngestDocument(_ context.Context, _ uuid.UUID, filename, _ string, content []byte) (store.Document, error) {
	f.gotFilename = filename
	f.gotContent = content
	return f.doc, f.err
}

// fakeDocuments is a test double for the documentStore interface.
type fakeDocuments struct {
	docs    []store.Document
	doc     store.Document
	getErr  error
	deleted bool
	err     error
}

func (f *fakeDocuments) ListDocuments(_ context.Context, _ string) ([]store.Document, error) {
	return f.docs, f.err
}

func (f *fakeDocuments) GetDocument(_ context.Context, _, _ string) (store.Document, error) {
	return f.doc, f.getErr
}

func (f *fakeDocuments) DeleteDocument(_ context.Context, _, _ string) (bool, error) {
	return f.deleted, f.err
}

// fakeIndex is a test double for the vectorIndex interface.
type fakeIndex struct {
	count    int
	dim      int
	statsErr error
	wipeErr  error
	removed  int
	delErr   error
	wiped    bool
}

func (f *fakeIndex) Stats(_ context.Context, _ uuid.UUID) (int, int, error) {
	return f.count, f.dim, f.statsErr
}

func (f *fakeIndex) Wipe(_ context.Context, _ uuid.UUID) error {
	f.wiped = true
	return f.wipeErr
}

func (f *fakeIndex) DeleteDocument(_ context.Context, _ uuid.UUID, _ string) (int, error) {
	return f.removed, f.delErr
}

// fakeAnalytics is a test double for the analyticsReader interface.
type fakeAnalytics struct {
	overview analytics.Overview
	recent   []string
	err      error
}

func (f *fakeAnalytics) UserOverview(_ context.Context, _ string) (analytics.Overview, error) {
	return f.overview, f.err
}

func (f *fakeAnalytics) RecentQueries(_ context.Context, _ string, _ int) ([]string, error) {
	return f.recent, f.err
}

// newTestServer builds a *Server with fakes wired in and a fresh isolated
// metrics registry.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	return &Server{
		deps: Deps{
			Agent:     &fakeAgent{},
			Ingester:  &fakeIngester{},
			Documents: &fakeDocuments{},
			Index:     &fakeIndex{},
		},
		cfg:     &Config{},
		log:     logging.NewWithWriter(io.Discard),
		metrics: newServerMetrics(prometheus.NewRegistry()),
	}
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_RequiresAgent(t *testing.T) {
	t.Parallel()

	_, err := New(Deps{}, nil)
	if err == nil {
		t.Fatal("expected error for nil agent")
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s, err := New(Deps{
		Agent:     &fakeAgent{},
		Ingester:  &fakeIngester{},
		Documents: &fakeDocuments{},
		Index:     &fakeIndex{},
	}, &Config{
		Logger:          logging.NewWithWriter(io.Discard),
		MetricsRegistry: reg,
		MetricsGatherer: reg,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)

	if s.httpServer.Addr != "127.0.0.1:8080" {
		t.Errorf("expected default addr 127.0.0.1:8080, got %q", s.httpServer.Addr)
	}
}

// ---------------------------------------------------------------------------
// POST /api/query
// ---------------------------------------------------------------------------

func TestHandleQuery_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	fa := &fakeAgent{outcome: &agent.Outcome{
		Answer:    "the answer",
		Mode:      agent.ModeDefault,
		LatencyMS: 12.5,
	}}
	s.deps.Agent = fa

	body, _ := json.Marshal(queryRequest{
		UserID: testUserID,
		Query:  "what is a raft log?",
		Mode:   "default",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var out agent.Outcome
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Answer != "the answer" {
		t.Errorf("answer: expected %q, got %q", "the answer", out.Answer)
	}
	if fa.gotQuery != "what is a raft log?" {
		t.Errorf("agent received query %q", fa.gotQuery)
	}
	if fa.gotMode != agent.ModeDefault {
		t.Errorf("agent received mode %q", fa.gotMode)
	}
}

func TestHandleQuery_ModeFallback(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	fa := &fakeAgent{}
	s.deps.Agent = fa

	body, _ := json.Marshal(queryRequest{
		UserID: testUserID,
		Query:  "q",
		Mode:   "no-such-mode",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if fa.gotMode != agent.ModeDefault {
		t.Errorf("expected unknown mode to fall back to default, got %q", fa.gotMode)
	}
}

func TestHandleQuery_InvalidBody(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleQuery_MissingQuery(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	body, _ := json.Marshal(queryRequest{UserID: testUserID})
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleQuery_InvalidUserID(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	body, _ := json.Marshal(queryRequest{UserID: "not-a-uuid", Query: "q"})
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/documents
// ---------------------------------------------------------------------------

// multipartUpload builds a multipart request body with a user_id field and
// one file part.
func multipartUpload(t *testing.T, userID, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("user_id", userID); err != nil {
		t.Fatalf("write field: %v", err)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleDocumentUpload_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	fi := &fakeIngester{doc: store.Document{
		ID:         uuid.NewString(),
		UserID:     testUserID,
		Filename:   "notes.md",
		ChunkCount: 3,
	}}
	s.deps.Ingester = fi

	body, contentType := multipartUpload(t, testUserID, "notes.md", "# Notes\n\nsome text")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleDocumentUpload(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d — body: %s", w.Code, w.Body.String())
	}
	if fi.gotFilename != "notes.md" {
		t.Errorf("ingester received filename %q", fi.gotFilename)
	}
	if string(fi.gotContent) != "# Notes\n\nsome text" {
		t.Errorf("ingester received content %q", fi.gotContent)
	}

	var doc store.Document
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.ChunkCount != 3 {
		t.Errorf("chunk_count: expected 3, got %d", doc.ChunkCount)
	}
}

func TestHandleDocumentUpload_InvalidUserID(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	body, contentType := multipartUpload(t, "nope", "notes.md", "text")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleDocumentUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleDocumentUpload_MissingFile(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("user_id", testUserID); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	s.handleDocumentUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleDocumentUpload_IngestionFailure(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.deps.Ingester = &fakeIngester{err: fmt.Errorf("ingestion: no text content")}

	body, contentType := multipartUpload(t, testUserID, "empty.txt", "")
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleDocumentUpload(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// GET/DELETE /api/documents
// ---------------------------------------------------------------------------

func TestHandleDocumentList_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.deps.Documents = &fakeDocuments{docs: []store.Document{
		{ID: uuid.NewString(), Filename: "b.md"},
		{ID: uuid.NewString(), Filename: "a.md"},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/documents?user_id="+testUserID, nil)
	w := httptest.NewRecorder()

	s.handleDocumentList(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp documentListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Documents) != 2 {
		t.Errorf("expected 2 documents, got %d", len(resp.Documents))
	}
}

func TestHandleDocumentList_MissingUserID(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	w := httptest.NewRecorder()

	s.handleDocumentList(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleDocumentGet_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.deps.Documents = &fakeDocuments{getErr: fmt.Errorf("store: document not found: %w", sql.ErrNoRows)}

	req := httptest.NewRequest(http.MethodGet, "/api/documents/some-id?user_id="+testUserID, nil)
	req.SetPathValue("id", "some-id")
	w := httptest.NewRecorder()

	s.handleDocumentGet(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleDocumentDelete_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.deps.Documents = &fakeDocuments{deleted: true}
	s.deps.Index = &fakeIndex{removed: 7}

	docID := uuid.NewString()
	req := httptest.NewRequest(http.MethodDelete, "/api/documents/"+docID+"?user_id="+testUserID, nil)
	req.SetPathValue("id", docID)
	w := httptest.NewRecorder()

	s.handleDocumentDelete(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp documentDeleteResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Deleted {
		t.Error("expected deleted:true")
	}
	if resp.VectorsRemoved != 7 {
		t.Errorf("vectors_removed: expected 7, got %d", resp.VectorsRemoved)
	}
}

func TestHandleDocumentDelete_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.deps.Documents = &fakeDocuments{deleted: false}

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/missing?user_id="+testUserID, nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()

	s.handleDocumentDelete(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// /api/index
// ---------------------------------------------------------------------------

func TestHandleIndexStats_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.deps.Index = &fakeIndex{count: 42, dim: 768}

	req := httptest.NewRequest(http.MethodGet, "/api/index/stats?user_id="+testUserID, nil)
	w := httptest.NewRecorder()

	s.handleIndexStats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp indexStatsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 42 || resp.Dimension != 768 {
		t.Errorf("expected count=42 dim=768, got count=%d dim=%d", resp.Count, resp.Dimension)
	}
}

func TestHandleIndexStats_NoIndex(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.deps.Index = &fakeIndex{statsErr: fmt.Errorf("index: load: %w", index.ErrNotFound)}

	req := httptest.NewRequest(http.MethodGet, "/api/index/stats?user_id="+testUserID, nil)
	w := httptest.NewRecorder()

	s.handleIndexStats(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleIndexWipe_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	fi := &fakeIndex{}
	s.deps.Index = fi

	req := httptest.NewRequest(http.MethodDelete, "/api/index?user_id="+testUserID, nil)
	w := httptest.NewRecorder()

	s.handleIndexWipe(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !fi.wiped {
		t.Error("expected Wipe to be called")
	}
}

// ---------------------------------------------------------------------------
// /api/analytics/overview
// ---------------------------------------------------------------------------

func TestHandleAnalyticsOverview_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.deps.Analytics = &fakeAnalytics{
		overview: analytics.Overview{
			TotalQueries: 5,
			AvgLatencyMS: 120.5,
			TotalTokens:  900,
			ByMode:       map[string]int{"default": 4, "research": 1},
		},
		recent: []string{"latest question", "older question"},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/overview?user_id="+testUserID, nil)
	w := httptest.NewRecorder()

	s.handleAnalyticsOverview(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp analyticsOverviewResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalQueries != 5 {
		t.Errorf("total_queries: expected 5, got %d", resp.TotalQueries)
	}
	if len(resp.RecentQueries) != 2 {
		t.Errorf("expected 2 recent queries, got %d", len(resp.RecentQueries))
	}
}

func TestHandleAnalyticsOverview_Disabled(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.deps.Analytics = nil

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/overview?user_id="+testUserID, nil)
	w := httptest.NewRecorder()

	s.handleAnalyticsOverview(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 when analytics disabled, got %d", w.Code)
	}
}
