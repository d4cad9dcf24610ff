package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alaiso/hubd/internal/store"
)

type promptPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	tagID := r.URL.Query().Get("tag")

	prompts, err := s.store.ListPrompts(r.Context(), includeArchived, tagID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts})
}

func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	var payload promptPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Title) == "" {
		jsonError(w, "title is required", http.StatusBadRequest)
		return
	}

	rec := &store.Prompt{
		Title:       payload.Title,
		Description: payload.Description,
		Content:     payload.Content,
	}
	if p, _ := s.currentProfile(r); p != nil {
		rec.CreatedBy = p.ID
	}

	ctx := r.Context()
	if err := s.store.CreatePrompt(ctx, rec); err != nil {
		s.storeError(w, err)
		return
	}
	if err := s.applyPromptTags(r, rec.ID, payload.Tags); err != nil {
		s.storeError(w, err)
		return
	}

	created, err := s.store.GetPrompt(ctx, rec.ID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetPrompt(r.Context(), chi.URLParam(r, "promptID"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "promptID")
	var payload promptPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	rec, err := s.store.GetPrompt(ctx, id)
	if err != nil {
		s.storeError(w, err)
		return
	}

	rec.Title = payload.Title
	rec.Description = payload.Description
	rec.Content = payload.Content
	if err := s.store.UpdatePrompt(ctx, rec); err != nil {
		s.storeError(w, err)
		return
	}
	if err := s.applyPromptTags(r, id, payload.Tags); err != nil {
		s.storeError(w, err)
		return
	}

	updated, err := s.store.GetPrompt(ctx, id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePrompt(r.Context(), chi.URLParam(r, "promptID")); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) applyPromptTags(r *http.Request, promptID string, names []string) error {
	if names == nil {
		return nil
	}
	ids, err := s.store.ResolveTagNames(r.Context(), names)
	if err != nil {
		return err
	}
	return s.store.SetPromptTags(r.Context(), promptID, ids)
}
