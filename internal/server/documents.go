package server

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/docq-ai/docq-go/internal/logging"
)

// maxUploadBytes caps the size of a single document upload.
const maxUploadBytes = 20 << 20 // 20 MiB

// handleDocumentUpload handles POST /api/documents. It accepts a multipart
// form with a "user_id" field and a "file" part, runs the full ingestion
// pipeline, and returns the created document record.
func (s *Server) handleDocumentUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	userID, ok := s.userIDFromForm(w, r)
	if !ok {
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "failed to read file part")
		return
	}

	doc, err := s.deps.Ingester.IngestDocument(ctx, userID, hdr.Filename, hdr.Header.Get("Content-Type"), content)
	if err != nil {
		s.metrics.ingestDocumentsTotal.WithLabelValues("error").Inc()
		log.Error("document ingestion failed",
			slog.String("filename", hdr.Filename),
			slog.Any("error", err),
		)
		writeError(ctx, w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.metrics.ingestDocumentsTotal.WithLabelValues("ok").Inc()
	s.metrics.ingestChunksTotal.Add(float64(doc.ChunkCount))

	log.Info("document ingested",
		slog.String("document_id", doc.ID),
		slog.String("filename", doc.Filename),
		slog.Int("chunks", doc.ChunkCount),
	)

	writeJSON(ctx, w, http.StatusCreated, doc)
}

// handleDocumentList handles GET /api/documents?user_id=<uuid>.
func (s *Server) handleDocumentList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := s.userIDFromQuery(w, r)
	if !ok {
		return
	}

	docs, err := s.deps.Documents.ListDocuments(ctx, userID.String())
	if err != nil {
		logging.FromContext(ctx).Error("document list failed", slog.Any("error", err))
		writeError(ctx, w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	writeJSON(ctx, w, http.StatusOK, documentListResponse{Documents: docs})
}

// handleDocumentGet handles GET /api/documents/{id}?user_id=<uuid>.
// Ownership is enforced: a document belonging to another user is a 404.
func (s *Server) handleDocumentGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := s.userIDFromQuery(w, r)
	if !ok {
		return
	}

	doc, err := s.deps.Documents.GetDocument(ctx, userID.String(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(ctx, w, http.StatusNotFound, "document not found")
			return
		}
		logging.FromContext(ctx).Error("document get failed", slog.Any("error", err))
		writeError(ctx, w, http.StatusInternalServerError, "failed to fetch document")
		return
	}

	writeJSON(ctx, w, http.StatusOK, doc)
}

// handleDocumentDelete handles DELETE /api/documents/{id}?user_id=<uuid>.
// It removes the document's rows from the record store and rebuilds the
// user's index without the document's vectors.
func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)

	userID, ok := s.userIDFromQuery(w, r)
	if !ok {
		return
	}
	docID := r.PathValue("id")

	deleted, err := s.deps.Documents.DeleteDocument(ctx, userID.String(), docID)
	if err != nil {
		log.Error("document delete failed", slog.Any("error", err))
		writeError(ctx, w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	if !deleted {
		writeError(ctx, w, http.StatusNotFound, "document not found")
		return
	}

	removed, err := s.deps.Index.DeleteDocument(ctx, userID, docID)
	if err != nil {
		// The record rows are gone; the orphaned vectors reference chunk ids
		// that no longer resolve, so retrieval drops them silently.
		log.Error("index rebuild after delete failed",
			slog.String("document_id", docID),
			slog.Any("error", err),
		)
	}

	log.Info("document deleted",
		slog.String("document_id", docID),
		slog.Int("vectors_removed", removed),
	)

	writeJSON(ctx, w, http.StatusOK, documentDeleteResponse{Deleted: true, VectorsRemoved: removed})
}

// userIDFromQuery parses the user_id query parameter, writing a 400 response
// and returning ok=false when it is missing or not a UUID.
func (s *Server) userIDFromQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return s.parseUserID(w, r, r.URL.Query().Get("user_id"))
}

// userIDFromForm parses the user_id form field, writing a 400 response and
// returning ok=false when it is missing or not a UUID.
func (s *Server) userIDFromForm(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return s.parseUserID(w, r, r.FormValue("user_id"))
}

func (s *Server) parseUserID(w http.ResponseWriter, r *http.Request, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "user_id must be a valid UUID")
		return uuid.UUID{}, false
	}
	return id, true
}
