package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alaiso/hubd/internal/store"
)

func (s *Server) handleListVariantGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListVariantGroups(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"variant_groups": groups})
}

// handleCreateVariantGroup builds a comparison group over existing campaigns.
func (s *Server) handleCreateVariantGroup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		CampaignIDs []string `json:"campaign_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}
	if len(payload.CampaignIDs) < 2 {
		jsonError(w, "at least 2 campaigns are required for comparison", http.StatusBadRequest)
		return
	}

	g := &store.VariantGroup{Name: payload.Name, Description: payload.Description}
	if p, _ := s.currentProfile(r); p != nil {
		g.CreatedBy = p.ID
	}

	ctx := r.Context()
	if err := s.store.CreateVariantGroup(ctx, g, payload.CampaignIDs); err != nil {
		s.storeError(w, err)
		return
	}
	created, err := s.store.GetVariantGroup(ctx, g.ID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetVariantGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.GetVariantGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteVariantGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteVariantGroup(r.Context(), chi.URLParam(r, "groupID")); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
