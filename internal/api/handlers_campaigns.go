package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alaiso/hubd/internal/campsync"
	"github.com/alaiso/hubd/internal/instantly"
	"github.com/alaiso/hubd/internal/spintax"
	"github.com/alaiso/hubd/internal/store"
)

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := s.store.ListCredentials(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credentials": creds})
}

func (s *Server) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var payload struct {
		KeyName string `json:"key_name"`
		APIKey  string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.KeyName) == "" || strings.TrimSpace(payload.APIKey) == "" {
		jsonError(w, "key_name and api_key are required", http.StatusBadRequest)
		return
	}

	cred := &store.Credential{KeyName: payload.KeyName, APIKey: payload.APIKey}
	if err := s.store.CreateCredential(r.Context(), cred); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cred)
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	if err := s.store.DeleteCredential(r.Context(), chi.URLParam(r, "credentialID")); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// handleTestCredential checks the stored key against the live API.
func (s *Server) handleTestCredential(w http.ResponseWriter, r *http.Request) {
	cred, err := s.store.GetCredential(r.Context(), chi.URLParam(r, "credentialID"))
	if err != nil {
		s.storeError(w, err)
		return
	}

	client := instantly.NewClient(s.cfg.InstantlyBaseURL, cred.APIKey)
	defer client.Close()
	ok := client.TestConnection(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"key_name":  cred.KeyName,
		"connected": ok,
	})
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.store.ListCampaigns(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	camp, err := s.store.GetCampaign(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, camp)
}

// handleSyncCampaigns queues sync jobs: one credential when given, all
// credentials otherwise.
func (s *Server) handleSyncCampaigns(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CredentialID string `json:"credential_id"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	var snaps []campsync.Snapshot
	if payload.CredentialID != "" {
		cred, err := s.store.GetCredential(r.Context(), payload.CredentialID)
		if err != nil {
			s.storeError(w, err)
			return
		}
		job := campsync.NewJob(cred.ID, cred.KeyName)
		if err := s.syncer.Submit(job); err != nil {
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		snaps = []campsync.Snapshot{job.Snapshot()}
	} else {
		var err error
		snaps, err = s.syncer.SubmitAll(r.Context())
		if err != nil {
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": snaps})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	job := s.syncer.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.store.ListSyncHistory(r.Context(), limit)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": recs})
}

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       s.syncer.Stats(),
		"queue_depth": s.syncer.QueueDepth(),
	})
}

// handlePreviewCampaign renders spintax blocks in a subject/body pair so a
// concrete variant can be previewed.
func (s *Server) handlePreviewCampaign(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"subject":     spintax.Render(payload.Subject),
		"body":        spintax.Render(payload.Body),
		"had_spintax": spintax.HasBlocks(payload.Subject) || spintax.HasBlocks(payload.Body),
	})
}
