package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alaiso/hubd/internal/campsync"
	"github.com/alaiso/hubd/internal/config"
	"github.com/alaiso/hubd/internal/store"
)

// Server is the hub HTTP API server.
type Server struct {
	router chi.Router
	store  *store.Store
	syncer *campsync.Syncer
	log    *slog.Logger
	cfg    config.Config

	// web is used for url-resource title sniffing.
	web *http.Client
}

// NewServer creates and configures the HTTP server.
func NewServer(st *store.Store, syncer *campsync.Syncer, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:  st,
		syncer: syncer,
		log:    log,
		cfg:    cfg,
		web:    &http.Client{Timeout: 10 * time.Second},
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.HubAPIKey, s.log))

		r.Route("/api", func(r chi.Router) {
			r.Post("/sops/parse", s.handleParseSOP)
			r.Post("/sops/import", s.handleImportSOP)
			r.Get("/sops", s.handleListSOPs)
			r.Post("/sops", s.handleCreateSOP)
			r.Route("/sops/{sopID}", func(r chi.Router) {
				r.Get("/", s.handleGetSOP)
				r.Put("/", s.handleUpdateSOP)
				r.Delete("/", s.handleDeleteSOP)
				r.Post("/archive", s.handleArchiveSOP)
				r.Get("/export", s.handleExportSOP)
			})

			r.Get("/tags", s.handleListTags)
			r.Post("/tags", s.handleCreateTag)
			r.Put("/tags/{tagID}", s.handleUpdateTag)
			r.Delete("/tags/{tagID}", s.handleDeleteTag)

			r.Get("/prompts", s.handleListPrompts)
			r.Post("/prompts", s.handleCreatePrompt)
			r.Get("/prompts/{promptID}", s.handleGetPrompt)
			r.Put("/prompts/{promptID}", s.handleUpdatePrompt)
			r.Delete("/prompts/{promptID}", s.handleDeletePrompt)

			r.Get("/resources", s.handleListResources)
			r.Post("/resources", s.handleCreateResource)
			r.Post("/resources/upload", s.handleUploadResource)
			r.Get("/resources/{resourceID}", s.handleGetResource)
			r.Put("/resources/{resourceID}", s.handleUpdateResource)
			r.Delete("/resources/{resourceID}", s.handleDeleteResource)

			r.Get("/users", s.handleListUsers)
			r.Put("/users/{userID}/role", s.handleSetUserRole)

			r.Post("/invitations", s.handleCreateInvitation)
			r.Get("/invitations", s.handleListInvitations)
			r.Get("/invitations/verify", s.handleVerifyInvitation)
			r.Post("/invitations/accept", s.handleAcceptInvitation)
			r.Delete("/invitations/{invitationID}", s.handleRevokeInvitation)

			r.Get("/credentials", s.handleListCredentials)
			r.Post("/credentials", s.handleCreateCredential)
			r.Delete("/credentials/{credentialID}", s.handleDeleteCredential)
			r.Post("/credentials/{credentialID}/test", s.handleTestCredential)

			r.Get("/campaigns", s.handleListCampaigns)
			r.Post("/campaigns/sync", s.handleSyncCampaigns)
			r.Get("/campaigns/sync/{jobID}/status", s.handleSyncStatus)
			r.Post("/campaigns/preview", s.handlePreviewCampaign)
			r.Get("/campaigns/{campaignID}", s.handleGetCampaign)

			r.Get("/variant-groups", s.handleListVariantGroups)
			r.Post("/variant-groups", s.handleCreateVariantGroup)
			r.Get("/variant-groups/{groupID}", s.handleGetVariantGroup)
			r.Delete("/variant-groups/{groupID}", s.handleDeleteVariantGroup)

			r.Get("/sync-history", s.handleSyncHistory)
			r.Get("/stats/sync", s.handleSyncStats)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
