package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/config"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/media"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/publish"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/session"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/surface"
)

type Server struct {
	cfg        *config.Config
	games      game.Gateway
	media      *media.Store
	publisher  *publish.Service
	surfaces   *surface.Registry
	workspaces *session.Workspaces
	upgrader   websocket.Upgrader
}

// New wires the HTTP surface over games. Cover images live under
// cfg.MediaDir and are linked from cfg.PublicBaseURL.
func New(cfg *config.Config, games game.Gateway) *Server {
	images := media.NewStore(cfg.MediaDir, cfg.PublicBaseURL)
	surfaces := surface.NewRegistry(cfg.SandboxPolicy, cfg.PlatformURL)
	s := &Server{
		cfg:   cfg,
		games: games,
		media: images,
		publisher: publish.NewService(games, images, publish.Limits{
			MaxHTMLBytes:  cfg.MaxHTMLBytes,
			MaxImageBytes: cfg.MaxImageBytes,
		}),
		surfaces: surfaces,
		workspaces: session.NewWorkspaces(surfaces, session.Limits{
			IdleTTL:       cfg.WorkspaceIdleTTL,
			MaxWorkspaces: cfg.MaxWorkspaces,
			MaxSessions:   cfg.MaxSessionsPerWorkspace,
		}),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return s
}

// checkOrigin admits event sockets from this host and from the platform.
// Clients that send no Origin, such as CLIs, are let through.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return s.cfg.PlatformURL != "" && strings.EqualFold(strings.TrimRight(origin, "/"), s.cfg.PlatformURL)
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/", s.handleGallery)
	r.Get("/health", s.health)

	r.Route("/api", func(api chi.Router) {
		api.Get("/games", s.handleListGames)
		api.Post("/games", s.handleCreateGame)
		// Raw zip body, as exported by the builder.
		api.Post("/games/import", s.handleImportZip)
		api.Get("/games/{id}", s.handleGetGame)
		api.Delete("/games/{id}", s.handleDeleteGame)

		api.Post("/images", s.handleUploadImage)
		api.Delete("/images", s.handleDeleteImage)

		api.Route("/workspaces", func(ws chi.Router) {
			ws.Post("/", s.handleCreateWorkspace)
			ws.Get("/{wid}", s.handleGetWorkspace)
			ws.Delete("/{wid}", s.handleCloseWorkspace)
			ws.Get("/{wid}/events", s.handleWorkspaceEvents)
			ws.Post("/{wid}/immersive", s.handleToggleImmersive)
			ws.Post("/{wid}/sessions", s.handleOpenSession)
			ws.Delete("/{wid}/sessions/{sid}", s.handleCloseSession)
			ws.Post("/{wid}/sessions/{sid}/restart", s.handleRestartSession)
			ws.Post("/{wid}/sessions/{sid}/activate", s.handleActivateSession)
		})
	})

	r.Get("/games/{id}/play", s.handlePlayPage)
	r.Get("/games/{id}/frame", s.handlePlayFrame)
	r.Handle(media.Prefix+"*", s.media)
	s.surfaces.RegisterRoutes(r)
	return r
}

// Run serves until ctx is cancelled, then shuts down and releases every open
// workspace. Idle workspaces are reaped while it runs.
func (s *Server) Run(ctx context.Context) error {
	reapCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go s.workspaces.RunReaper(reapCtx)

	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Printf("game host listening on %s (platform: %s, store: %s, workspace idle ttl: %s)", srv.Addr, s.cfg.PlatformURL, s.cfg.StoreDriver, s.cfg.WorkspaceIdleTTL)
	err := runServer(ctx, srv)
	s.workspaces.CloseAll()
	return err
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func cors(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

type healthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Surfaces   int    `json:"live_surfaces"`
	Workspaces int    `json:"workspaces"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:     "ok",
		Service:    "game-host",
		Surfaces:   s.surfaces.Live(),
		Workspaces: s.workspaces.Len(),
	})
}
