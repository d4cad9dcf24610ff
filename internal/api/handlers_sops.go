package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alaiso/hubd/internal/sop"
	"github.com/alaiso/hubd/internal/store"
)

// sopPayload is the create/update request body for SOPs.
type sopPayload struct {
	Title               string     `json:"title"`
	Objectives          string     `json:"objectives"`
	LoginsPrerequisites string     `json:"logins_prerequisites"`
	Steps               []sop.Step `json:"steps"`
	Tags                []string   `json:"tags"`
}

// handleParseSOP parses an uploaded SOP document (raw body or multipart
// "file" field) and returns the structured form without persisting it.
func (s *Server) handleParseSOP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	var raw []byte
	var filename string
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		filename = sanitizeFilename(header.Filename)

		raw, err = io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
		if err != nil {
			jsonError(w, "failed to read file", http.StatusInternalServerError)
			return
		}
	} else {
		var err error
		raw, err = io.ReadAll(r.Body)
		if err != nil {
			jsonError(w, "failed to read body", http.StatusBadRequest)
			return
		}
		filename = r.URL.Query().Get("filename")
	}

	if int64(len(raw)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	doc, err := sop.Parse(string(raw), filename)
	if err != nil {
		jsonError(w, "could not parse the YAML file, please check the format", http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"parsed":   doc,
		"filename": filename,
		"problems": sop.Validate(doc),
	})
}

func (s *Server) handleListSOPs(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	tagID := r.URL.Query().Get("tag")

	sops, err := s.store.ListSOPs(r.Context(), includeArchived, tagID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sops": sops})
}

func (s *Server) handleCreateSOP(w http.ResponseWriter, r *http.Request) {
	var payload sopPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Title) == "" {
		jsonError(w, "title is required", http.StatusBadRequest)
		return
	}

	rec := &store.SOP{
		Title:               payload.Title,
		Objectives:          payload.Objectives,
		LoginsPrerequisites: payload.LoginsPrerequisites,
		Steps:               fillStepIDs(payload.Steps),
	}
	if p, _ := s.currentProfile(r); p != nil {
		rec.CreatedBy = p.ID
	}

	ctx := r.Context()
	if err := s.store.CreateSOP(ctx, rec); err != nil {
		s.storeError(w, err)
		return
	}
	if err := s.applySOPTags(r, rec.ID, payload.Tags); err != nil {
		s.storeError(w, err)
		return
	}

	created, err := s.store.GetSOP(ctx, rec.ID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetSOP(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetSOP(r.Context(), chi.URLParam(r, "sopID"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateSOP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sopID")
	var payload sopPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	rec, err := s.store.GetSOP(ctx, id)
	if err != nil {
		s.storeError(w, err)
		return
	}

	rec.Title = payload.Title
	rec.Objectives = payload.Objectives
	rec.LoginsPrerequisites = payload.LoginsPrerequisites
	rec.Steps = fillStepIDs(payload.Steps)
	if err := s.store.UpdateSOP(ctx, rec); err != nil {
		s.storeError(w, err)
		return
	}
	if err := s.applySOPTags(r, id, payload.Tags); err != nil {
		s.storeError(w, err)
		return
	}

	updated, err := s.store.GetSOP(ctx, id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSOP(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSOP(r.Context(), chi.URLParam(r, "sopID")); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleArchiveSOP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Archived *bool `json:"archived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	archived := true
	if payload.Archived != nil {
		archived = *payload.Archived
	}
	if err := s.store.ArchiveSOP(r.Context(), chi.URLParam(r, "sopID"), archived); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"archived": archived})
}

// handleExportSOP serves the SOP as a YAML download with a slug filename.
func (s *Server) handleExportSOP(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetSOP(r.Context(), chi.URLParam(r, "sopID"))
	if err != nil {
		s.storeError(w, err)
		return
	}

	out := sop.ToYAML(rec.Document())
	w.Header().Set("Content-Type", "text/yaml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sop.Filename(rec.Title)))
	w.Write([]byte(out))
}

// handleImportSOP replaces an existing SOP's parsed fields from a YAML
// document. Only the strict YAML grammar is accepted here.
func (s *Server) handleImportSOP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SOPID   string `json:"sop_id"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.SOPID == "" {
		jsonError(w, "sop_id is required", http.StatusBadRequest)
		return
	}

	doc, err := sop.ParseYAML(payload.Content)
	if err != nil {
		jsonError(w, "could not parse the YAML file, please check the format", http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	rec, err := s.store.GetSOP(ctx, payload.SOPID)
	if err != nil {
		s.storeError(w, err)
		return
	}

	rec.Title = doc.Title
	rec.Objectives = doc.Objectives
	rec.LoginsPrerequisites = doc.LoginsPrerequisites
	rec.Steps = doc.Steps
	if err := s.store.UpdateSOP(ctx, rec); err != nil {
		s.storeError(w, err)
		return
	}
	if len(doc.Tags) > 0 {
		if err := s.applySOPTags(r, rec.ID, doc.Tags); err != nil {
			s.storeError(w, err)
			return
		}
	}

	updated, err := s.store.GetSOP(ctx, rec.ID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// applySOPTags resolves tag names (creating missing tags) and links them.
func (s *Server) applySOPTags(r *http.Request, sopID string, names []string) error {
	if names == nil {
		return nil
	}
	ids, err := s.store.ResolveTagNames(r.Context(), names)
	if err != nil {
		return err
	}
	return s.store.SetSOPTags(r.Context(), sopID, ids)
}

// fillStepIDs assigns fresh ids to steps submitted without one.
func fillStepIDs(steps []sop.Step) []sop.Step {
	for i := range steps {
		if steps[i].ID == "" {
			steps[i].ID = sop.NewStepID()
		}
	}
	return steps
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// storeError maps store failures onto HTTP status codes.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}
	s.log.Error("store error", "error", err)
	jsonError(w, err.Error(), http.StatusInternalServerError)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
