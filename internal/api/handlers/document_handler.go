package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	db "github.com/docqa/server/internal/core/database"
	"github.com/docqa/server/internal/core/ingest"
	"github.com/docqa/server/internal/models"
)

const maxUploadBytes = 64 << 20

// progress stream pacing: one snapshot every tick, and a bounded number of
// idle ticks before the watch gives up.
const (
	progressTick    = 500 * time.Millisecond
	progressIdleMax = 300
)

type DocumentHandler struct {
	db         db.DbClient
	pipeline   *ingest.Pipeline
	storageDir string
	log        *slog.Logger
}

func NewDocumentHandler(database db.DbClient, pipeline *ingest.Pipeline, storageDir string) *DocumentHandler {
	return &DocumentHandler{
		db:         database,
		pipeline:   pipeline,
		storageDir: storageDir,
		log:        slog.Default().With("handler", "document"),
	}
}

// Add uploads a file into the storage directory and records it.
func (h *DocumentHandler) Add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	path, err := h.saveUpload(file, header)
	if err != nil {
		h.log.Error("save upload failed", "file", header.Filename, "error", err)
		respondError(w, http.StatusInternalServerError, "store file failed")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}
	doc := &models.Document{
		ID:       uuid.New(),
		Name:     name,
		FileName: header.Filename,
		FilePath: path,
		Suffix:   strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), "."),
	}
	if err := h.db.CreateDocument(r.Context(), doc); err != nil {
		respondError(w, http.StatusInternalServerError, "create document failed")
		return
	}
	respondOK(w, doc)
}

// Update replaces a document's display name and, when a new file arrives,
// its stored file.
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	id, err := uuid.Parse(r.FormValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	doc, err := h.db.GetDocumentByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}

	if name := r.FormValue("name"); name != "" {
		doc.Name = name
	}
	if file, header, ferr := r.FormFile("file"); ferr == nil {
		defer file.Close()
		path, serr := h.saveUpload(file, header)
		if serr != nil {
			respondError(w, http.StatusInternalServerError, "store file failed")
			return
		}
		if doc.FilePath != "" && doc.FilePath != path {
			_ = os.Remove(doc.FilePath)
		}
		doc.FileName = header.Filename
		doc.FilePath = path
		doc.Suffix = strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
		doc.Vectorized = false
	}

	if err := h.db.UpdateDocument(r.Context(), doc); err != nil {
		respondError(w, http.StatusInternalServerError, "update document failed")
		return
	}
	respondOK(w, doc)
}

// Page lists documents with optional fuzzy name filtering.
func (h *DocumentHandler) Page(w http.ResponseWriter, r *http.Request) {
	q := models.DocumentQuery{
		Name:     r.URL.Query().Get("name"),
		PageNum:  queryInt(r, "page_num", 1),
		PageSize: queryInt(r, "page_size", 10),
	}
	page, err := h.db.PageDocuments(r.Context(), q)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list documents failed")
		return
	}
	respondOK(w, page)
}

// Delete removes the record and its stored file. A missing file on disk is
// not an error.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var q models.DocumentQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil || q.ID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	doc, err := h.db.GetDocumentByID(r.Context(), q.ID)
	if err != nil {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if doc.FilePath != "" {
		if rmErr := os.Remove(doc.FilePath); rmErr != nil && !os.IsNotExist(rmErr) {
			h.log.Warn("remove stored file failed", "path", doc.FilePath, "error", rmErr)
		}
	}
	if err := h.db.DeleteDocument(r.Context(), q.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "delete document failed")
		return
	}
	respondOK(w, nil)
}

// Read serves the stored file inline, with the original filename preserved
// for non-ASCII names.
func (h *DocumentHandler) Read(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	doc, err := h.db.GetDocumentByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if _, err := os.Stat(doc.FilePath); err != nil {
		respondError(w, http.StatusNotFound, "stored file missing")
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename*=UTF-8''%s", url.PathEscape(doc.FileName)))
	http.ServeFile(w, r, doc.FilePath)
}

// VectorAll runs a full reindex synchronously and marks every document
// vectorized on success.
func (h *DocumentHandler) VectorAll(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.RunSync(r.Context()); err != nil {
		if errors.Is(err, ingest.ErrRunActive) {
			respondError(w, http.StatusConflict, "a vectorization run is already active")
			return
		}
		respondError(w, http.StatusInternalServerError, "vectorization failed")
		return
	}
	if err := h.db.MarkAllDocumentsVectorized(r.Context()); err != nil {
		h.log.Error("mark documents vectorized failed", "error", err)
	}
	respondOK(w, h.pipeline.Tracker().Snapshot())
}

// VectorProgress returns the current progress snapshot.
func (h *DocumentHandler) VectorProgress(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.pipeline.Tracker().Snapshot())
}

// VectorAllStream starts a background reindex, or attaches to the active
// one, and streams progress snapshots over SSE until the run reaches a
// terminal state.
func (h *DocumentHandler) VectorAllStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// the run must outlive this request
	h.pipeline.Start(context.Background())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ticker := time.NewTicker(progressTick)
	defer ticker.Stop()

	writeEvent := func(v any) {
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	idle := 0
	for {
		snap := h.pipeline.Tracker().Snapshot()
		writeEvent(snap)

		if snap.Terminal() {
			// one more snapshot after a final tick so late counter
			// updates reach the client
			select {
			case <-r.Context().Done():
			case <-ticker.C:
				writeEvent(h.pipeline.Tracker().Snapshot())
			}
			return
		}
		if snap.Status == ingest.StatusIdle {
			idle++
			if idle > progressIdleMax {
				writeEvent(ingest.Snapshot{
					Status:  ingest.StatusTimeout,
					Message: "timed out waiting for a vectorization run",
				})
				return
			}
		} else {
			idle = 0
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *DocumentHandler) saveUpload(file multipart.File, header *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.storageDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(h.storageDir, filepath.Base(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
