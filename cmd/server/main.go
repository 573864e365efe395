package main

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"serwer-udostepnien/internal/api"
	"serwer-udostepnien/internal/auth"
	"serwer-udostepnien/internal/config"
	"serwer-udostepnien/internal/database"
	"serwer-udostepnien/internal/models"
	"serwer-udostepnien/internal/share"
	"serwer-udostepnien/internal/websocket"
)

// logMailer stands in for a real mail backend; delivery mechanics live
// outside this service.
type logMailer struct {
	log zerolog.Logger
}

func (m *logMailer) SendShareNotification(ctx context.Context, s *models.Share, plainPassword string) error {
	m.log.Info().
		Str("share", s.FullID()).
		Str("recipient", s.SharedWith).
		Bool("with_password", plainPassword != "").
		Msg("share notification queued")
	return nil
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Nie można wczytać konfiguracji")
	}

	dbpool, err := pgxpool.New(context.Background(), cfg.DB.Source)
	if err != nil {
		logger.Fatal().Err(err).Msg("Nie można połączyć się z bazą danych")
	}
	defer dbpool.Close()

	if err := dbpool.Ping(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Nie można pingować bazy danych")
	}
	logger.Info().Msg("Pomyślnie połączono z bazą danych")

	store := database.NewStore(dbpool)

	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	events := share.NewDispatcher()
	recorder := database.ShareEventRecorder(store, logger)
	wsListener := wsHub.ShareEventListener()
	for _, kind := range []share.EventKind{
		share.EventCreated,
		share.EventUpdated,
		share.EventPasswordUpdated,
		share.EventDeleted,
		share.EventDeletedFromSelf,
		share.EventRestored,
		share.EventMoved,
	} {
		events.On(kind, recorder)
		events.On(kind, wsListener)
	}

	users := database.NewUserDirectory(store)
	groups := database.NewGroupDirectory(store)
	nodes := database.NewNodeTree(store)
	hasher := auth.NewBcryptHasher(12)
	mailer := &logMailer{log: logger}

	registry := share.NewRegistry()
	for _, provider := range []share.Provider{
		database.NewDefaultShareProvider(store, groups, logger),
		database.NewMailShareProvider(store, hasher, mailer, logger),
		database.NewFederatedShareProvider(store, logger),
	} {
		if err := registry.Register(provider); err != nil {
			logger.Fatal().Err(err).Msg("Nie można zarejestrować providera")
		}
	}

	manager := share.NewManager(registry, users, groups, nodes, hasher, events,
		func() config.SharePolicy { return cfg.Share }, logger)

	server := api.NewServer(cfg, store, manager, wsHub, logger)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ws", server.ServeWsHandler)
	r.Get("/health", server.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/auth/login", server.LoginHandler)
	r.Get("/api/v1/public/shares/{token}", server.GetShareByTokenHandler)
	r.Post("/api/v1/public/shares/{token}/auth", server.CheckSharePasswordHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(server.AuthMiddleware)
		r.Post("/shares", server.CreateShareHandler)
		r.Get("/shares", server.ListSharesHandler)
		r.Get("/shares/{shareId}", server.GetShareHandler)
		r.Patch("/shares/{shareId}", server.UpdateShareHandler)
		r.Delete("/shares/{shareId}", server.DeleteShareHandler)
		r.Post("/shares/{shareId}/restore", server.RestoreShareHandler)
		r.Post("/shares/{shareId}/move", server.MoveShareHandler)
		r.Get("/nodes/{nodeId}/access-list", server.AccessListHandler)
		r.Get("/events", server.GetEventsHandler)
	})

	logger.Info().Msg("Uruchamianie serwera na porcie :8080")
	if err := http.ListenAndServe(":8080", r); err != nil {
		logger.Fatal().Err(err).Msg("Nie można uruchomić serwera")
	}
}
