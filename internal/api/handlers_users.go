package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alaiso/hubd/internal/store"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListProfiles(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": profiles})
}

func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var payload struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Role != store.RoleAdmin && payload.Role != store.RoleViewer {
		jsonError(w, "role must be admin or viewer", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "userID")
	if err := s.store.SetProfileRole(r.Context(), id, payload.Role); err != nil {
		s.storeError(w, err)
		return
	}

	updated, err := s.store.GetProfile(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var payload struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" || !strings.Contains(email, "@") {
		jsonError(w, "a valid email is required", http.StatusBadRequest)
		return
	}
	role := payload.Role
	if role == "" {
		role = store.RoleViewer
	}
	if role != store.RoleAdmin && role != store.RoleViewer {
		jsonError(w, "role must be admin or viewer", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if _, err := s.store.GetProfileByEmail(ctx, email); err == nil {
		jsonError(w, "a user with this email already exists", http.StatusConflict)
		return
	}

	inv := &store.Invitation{
		Email:     email,
		Role:      role,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(s.cfg.InviteTTL),
	}
	if p, _ := s.currentProfile(r); p != nil {
		inv.InvitedBy = p.ID
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	invs, err := s.store.ListInvitations(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": invs})
}

// handleVerifyInvitation checks whether a token still admits a new user.
func (s *Server) handleVerifyInvitation(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		jsonError(w, "token query parameter is required", http.StatusBadRequest)
		return
	}

	inv, err := s.store.GetInvitationByToken(r.Context(), token)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if inv.AcceptedAt != nil {
		jsonError(w, "invitation already accepted", http.StatusGone)
		return
	}
	if inv.Expired(time.Now()) {
		jsonError(w, "invitation expired", http.StatusGone)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"email": inv.Email,
		"role":  inv.Role,
	})
}

// handleAcceptInvitation redeems a token and creates the invited profile.
func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token    string `json:"token"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Token == "" {
		jsonError(w, "token is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	inv, err := s.store.GetInvitationByToken(ctx, payload.Token)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if inv.AcceptedAt != nil {
		jsonError(w, "invitation already accepted", http.StatusGone)
		return
	}
	if inv.Expired(time.Now()) {
		jsonError(w, "invitation expired", http.StatusGone)
		return
	}

	profile := &store.Profile{
		Email:    inv.Email,
		FullName: payload.FullName,
		Role:     inv.Role,
	}
	if err := s.store.CreateProfile(ctx, profile); err != nil {
		s.storeError(w, err)
		return
	}
	if err := s.store.AcceptInvitation(ctx, inv.ID); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	if err := s.store.DeleteInvitation(r.Context(), chi.URLParam(r, "invitationID")); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revoked": true})
}
