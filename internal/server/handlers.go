package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/entries"
	"github.com/jonathan/resume-builder/internal/export"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/sections"
)

// UpdateRecordRequest sets one field of one record.
type UpdateRecordRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// ReorderRequest moves a record within its section.
type ReorderRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

// ExportRequest optionally names the exported file.
type ExportRequest struct {
	FileName string `json:"file_name,omitempty"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status": "ok",
		"export": s.assembler.State().String(),
	})
}

func (s *Server) handleGetForm(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.store.FormData())
}

// handlePutForm replaces the given flat fields; fields not in the body are kept.
func (s *Server) handlePutForm(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	form, err := schemas.ParseForm(body)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	for key, value := range form {
		s.store.SetField(key, value)
	}
	s.jsonResponse(w, http.StatusOK, s.store.FormData())
}

func (s *Server) pathKind(r *http.Request) (entries.Kind, error) {
	return entries.ParseKind(r.PathValue("kind"))
}

func (s *Server) pathIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return 0, &ErrValidation{Field: "index", Message: "must be an integer"}
	}
	return index, nil
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	kind, err := s.pathKind(r)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"kind":    kind,
		"records": s.store.Records(kind),
		"text":    s.store.Field(kind.FormKey()),
	})
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := s.pathKind(r)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	index, err := s.store.Add(kind)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, s.recordResponse(kind, index))
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := s.pathKind(r)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}
	index, err := s.pathIndex(r)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	var req UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Field == "" {
		s.errorFromErr(w, &ErrValidation{Field: "field", Message: "is required"})
		return
	}

	if err := s.store.Update(kind, index, req.Field, req.Value); err != nil {
		s.errorFromErr(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.recordResponse(kind, index))
}

// recordResponse reads back the record a mutation touched. A concurrent removal can
// take it away first, in which case the record is null.
func (s *Server) recordResponse(kind entries.Kind, index int) map[string]any {
	resp := map[string]any{"index": index, "record": nil}
	if record, ok := s.store.Record(kind, index); ok {
		resp["record"] = record
	}
	return resp
}

func (s *Server) handleRemoveRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := s.pathKind(r)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}
	index, err := s.pathIndex(r)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	if err := s.store.Remove(kind, index); err != nil {
		s.errorFromErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderRecords(w http.ResponseWriter, r *http.Request) {
	kind, err := s.pathKind(r)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.From == nil || req.To == nil {
		s.errorFromErr(w, &ErrValidation{Field: "from/to", Message: "are required"})
		return
	}

	if err := s.store.Reorder(kind, *req.From, *req.To); err != nil {
		s.errorFromErr(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"records": s.store.Records(kind)})
}

// handleValidateSection reports field problems; a section with problems is still a
// valid request.
func (s *Server) handleValidateSection(w http.ResponseWriter, r *http.Request) {
	kind, err := s.pathKind(r)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	problems := []sections.FieldProblem{}
	if err := s.store.Validate(kind); err != nil {
		var verr *sections.ValidationError
		if !errors.As(err, &verr) {
			s.errorFromErr(w, err)
			return
		}
		problems = verr.Errors
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"kind": kind, "problems": problems})
}

// handlePreview returns the rendered document with page-break markers for the last
// estimate. ?markers=false omits them.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	html, err := s.render()
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	if r.URL.Query().Get("markers") != "false" {
		withMarkers, err := rendering.InjectPageBreaks(html, s.currentEstimate().PageCount)
		if err != nil {
			log.Printf("[SERVER] Failed to add page-break markers: %v", err)
		} else {
			html = withMarkers
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, html); err != nil {
		log.Printf("[SERVER] Error writing preview: %v", err)
	}
}

// handlePagination returns the last estimate; ?refresh=true measures again first.
func (s *Server) handlePagination(w http.ResponseWriter, r *http.Request) {
	estimate := s.currentEstimate()
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		estimate = s.remeasure(r.Context())
	}
	s.jsonResponse(w, http.StatusOK, estimate)
}

// handleEvents streams change, pagination and export events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	if err := sse.WriteEvent("pagination", s.currentEstimate()); err != nil {
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := sse.Ping(); err != nil {
				return
			}
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := sse.WriteEvent(ev.Name, ev.Data); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	// Checked up front so a busy assembler does not cost a browser launch.
	if s.assembler.State() != export.StateIdle {
		s.errorFromErr(w, export.ErrExportInProgress)
		return
	}

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := req.FileName
	if name == "" {
		name = export.FileName(s.store.Field(rendering.KeyFirstName), s.store.Field(rendering.KeyLastName), time.Now())
	}

	html, err := s.render()
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	surface, err := s.openSurface(r.Context(), html)
	if err != nil {
		s.errorFromErr(w, fmt.Errorf("failed to load document: %w", err))
		return
	}
	defer surface.Close()

	result, err := s.assembler.Export(r.Context(), surface, name)
	if err != nil {
		message := err.Error()
		var exportErr *export.ExportError
		if errors.As(err, &exportErr) {
			message = exportErr.UserMessage()
		}
		s.broadcast("export_failed", map[string]string{"error": message})
		s.errorResponse(w, HTTPStatus(err), message)
		return
	}

	s.mu.Lock()
	s.exports[result.ID] = result
	s.mu.Unlock()

	s.broadcast("export", result)
	s.jsonResponse(w, http.StatusCreated, result)
}

// handleGetExport downloads a PDF produced by this server.
func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorFromErr(w, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}

	s.mu.Lock()
	result, ok := s.exports[id]
	s.mu.Unlock()
	if !ok {
		s.errorFromErr(w, &ErrExportNotFound{ID: id.String()})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	http.ServeFile(w, r, result.Path)
}
