package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/docqa/server/internal/api/handlers"
	"github.com/docqa/server/internal/config"
	"github.com/docqa/server/internal/core/chat"
	db "github.com/docqa/server/internal/core/database"
	"github.com/docqa/server/internal/core/ingest"
)

type Server struct {
	httpServer *http.Server
}

func NewServer(cfg *config.Config, database db.DbClient, pipeline *ingest.Pipeline, chatSvc *chat.Service) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	chatHandler := handlers.NewChatHandler(chatSvc)
	docHandler := handlers.NewDocumentHandler(database, pipeline, cfg.StorageDir)
	sessionHandler := handlers.NewSessionHandler(database)
	configHandler := handlers.NewModelConfigHandler(database)

	r.Route("/api", func(api chi.Router) {
		api.Post("/chat", chatHandler.Chat)
		api.Get("/chat/history", chatHandler.History)

		api.Route("/documents", func(docs chi.Router) {
			docs.Post("/add", docHandler.Add)
			docs.Put("/update", docHandler.Update)
			docs.Get("/page", docHandler.Page)
			docs.Delete("/delete", docHandler.Delete)
			docs.Get("/read/{id}", docHandler.Read)
			docs.Get("/vector-all", docHandler.VectorAll)
			docs.Get("/vector-all-stream", docHandler.VectorAllStream)
			docs.Get("/vector-progress", docHandler.VectorProgress)
		})

		api.Route("/chat-session", func(sessions chi.Router) {
			sessions.Get("/", sessionHandler.List)
			sessions.Post("/add", sessionHandler.Create)
			sessions.Put("/update", sessionHandler.Update)
			sessions.Delete("/delete", sessionHandler.Delete)
		})

		api.Route("/model-config", func(configs chi.Router) {
			configs.Get("/", configHandler.List)
			configs.Post("/add", configHandler.Create)
			configs.Put("/update", configHandler.Update)
			configs.Delete("/delete/{id}", configHandler.Delete)
			configs.Put("/active/{id}", configHandler.Activate)
		})
	})

	// streaming endpoints rule out a global write timeout
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	slog.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
