package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alaiso/hubd/internal/extract"
	"github.com/alaiso/hubd/internal/store"
)

type resourcePayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	tagID := r.URL.Query().Get("tag")
	search := r.URL.Query().Get("q")

	resources, err := s.store.ListResources(r.Context(), includeArchived, tagID, search)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": resources})
}

// handleCreateResource creates a url-type resource. A missing title is
// sniffed from the page's <title> element.
func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var payload resourcePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.URL) == "" {
		jsonError(w, "url is required", http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = s.sniffPageTitle(payload.URL)
	}
	if title == "" {
		title = payload.URL
	}

	rec := &store.Resource{
		Title:        title,
		Description:  payload.Description,
		ResourceType: store.ResourceURL,
		URL:          payload.URL,
	}
	if p, _ := s.currentProfile(r); p != nil {
		rec.CreatedBy = p.ID
	}

	ctx := r.Context()
	if err := s.store.CreateResource(ctx, rec); err != nil {
		s.storeError(w, err)
		return
	}
	if err := s.applyResourceTags(r, rec.ID, payload.Tags); err != nil {
		s.storeError(w, err)
		return
	}

	created, err := s.store.GetResource(ctx, rec.ID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUploadResource creates a file-type resource from a multipart upload.
// Text is extracted from supported formats so the resource is searchable.
func (s *Server) handleUploadResource(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

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

	filename := sanitizeFilename(header.Filename)
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rec := &store.Resource{
		Title:        strings.TrimSpace(r.FormValue("title")),
		Description:  r.FormValue("description"),
		ResourceType: store.ResourceFile,
		FileName:     filename,
		FileType:     contentType,
		FileData:     "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
		FileSize:     int64(len(data)),
	}
	if p, _ := s.currentProfile(r); p != nil {
		rec.CreatedBy = p.ID
	}

	if extract.IsSupportedExtension(filename) {
		result, err := s.extractText(data, filename)
		if err != nil {
			s.log.Warn("text extraction failed", "filename", filename, "error", err)
		} else {
			rec.ExtractedText = result.Text
			if rec.Title == "" {
				rec.Title = result.Title
			}
		}
	}
	if rec.Title == "" {
		rec.Title = filename
	}

	ctx := r.Context()
	if err := s.store.CreateResource(ctx, rec); err != nil {
		s.storeError(w, err)
		return
	}
	if tags := splitTags(r.FormValue("tags")); tags != nil {
		if err := s.applyResourceTags(r, rec.ID, tags); err != nil {
			s.storeError(w, err)
			return
		}
	}

	created, err := s.store.GetResource(ctx, rec.ID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetResource(r.Context(), chi.URLParam(r, "resourceID"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "resourceID")
	var payload resourcePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	rec, err := s.store.GetResource(ctx, id)
	if err != nil {
		s.storeError(w, err)
		return
	}

	if payload.Title != "" {
		rec.Title = payload.Title
	}
	rec.Description = payload.Description
	if rec.ResourceType == store.ResourceURL && payload.URL != "" {
		rec.URL = payload.URL
	}
	if err := s.store.UpdateResource(ctx, rec); err != nil {
		s.storeError(w, err)
		return
	}
	if err := s.applyResourceTags(r, id, payload.Tags); err != nil {
		s.storeError(w, err)
		return
	}

	updated, err := s.store.GetResource(ctx, id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteResource(r.Context(), chi.URLParam(r, "resourceID")); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) applyResourceTags(r *http.Request, resourceID string, names []string) error {
	if names == nil {
		return nil
	}
	ids, err := s.store.ResolveTagNames(r.Context(), names)
	if err != nil {
		return err
	}
	return s.store.SetResourceTags(r.Context(), resourceID, ids)
}

func (s *Server) extractText(data []byte, filename string) (*extract.Result, error) {
	ex, err := extract.ForFile(filename)
	if err != nil {
		return nil, err
	}
	if pdf, ok := ex.(*extract.PDFExtractor); ok {
		pdf.FallbackPdftotext = s.cfg.PDFFallbackPdftotext
	}
	return ex.Extract(bytes.NewReader(data), filename)
}

// sniffPageTitle fetches a URL and pulls out its <title>; failures just
// leave the title empty.
func (s *Server) sniffPageTitle(pageURL string) string {
	resp, err := s.web.Get(pageURL)
	if err != nil {
		s.log.Warn("page title fetch failed", "url", pageURL, "error", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	title, err := extract.PageTitle(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(title)
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
