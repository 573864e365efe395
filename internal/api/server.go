package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"serwer-udostepnien/internal/config"
	"serwer-udostepnien/internal/database"
	"serwer-udostepnien/internal/share"
	"serwer-udostepnien/internal/websocket"
)

type Server struct {
	config  *config.Config
	store   *database.Store
	manager *share.Manager
	wsHub   *websocket.Hub
	log     zerolog.Logger
}

func NewServer(cfg *config.Config, store *database.Store, manager *share.Manager, wsHub *websocket.Hub, log zerolog.Logger) *Server {
	return &Server{
		config:  cfg,
		store:   store,
		manager: manager,
		wsHub:   wsHub,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// @Summary      Health check
// @Tags         health
// @Success      200  {string}  string "OK"
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.GetPool().Ping(r.Context()); err != nil {
		http.Error(w, "Database unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
