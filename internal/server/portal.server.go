package server

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"partner-portal/internal/config"
	"partner-portal/internal/events"
	"partner-portal/internal/handler"
	"partner-portal/internal/repository"
	"partner-portal/internal/router"
	"partner-portal/internal/store"
	"partner-portal/internal/usecase"
	"partner-portal/pkg/auth"
)

type Server struct {
	HTTP   *http.Server
	Logger *zap.Logger
	Store  *store.RedisStore
}

func NewServer(cfg config.AppConfig) *Server {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	// --- Backing store ---
	st, err := store.NewRedisStore(context.Background(), store.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
		Timeout:  cfg.StoreTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to connect to store: %v", err)
	}

	// --- Repositories ---
	repos := usecase.Repos{
		Partner:       repository.NewPartnerRepo(st, logger),
		User:          repository.NewPartnerUserRepo(st, logger),
		Deal:          repository.NewDealRepo(st, logger),
		Quote:         repository.NewQuoteRepo(st, logger),
		Document:      repository.NewDocumentRepo(st, logger),
		Certification: repository.NewCertificationRepo(st, logger),
		Commission:    repository.NewCommissionRepo(st, logger),
		Course:        repository.NewCourseRepo(st, logger),
		Progress:      repository.NewProgressRepo(st, logger),
		Credential:    repository.NewCredentialRepo(st, logger),
		Audit:         repository.NewAuditRepo(st, logger),
	}

	// --- Cache and events ---
	cache := store.NewCache(st, logger)
	publisher := events.NewEventPublisher(st.Client(), logger)

	// --- Usecase ---
	portalUC := usecase.NewPortalUsecase(repos, cache, publisher, logger)

	// --- Handlers and middleware ---
	portalHandler := handler.NewPortalHandler(portalUC, logger)
	apiAuth := auth.NewAPIKeyAuth(repos.Partner, repos.Credential, logger)

	// --- HTTP router ---
	r := chi.NewRouter()
	router.SetupRoutes(r, portalHandler, apiAuth, st.Client(), logger)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	return &Server{
		HTTP:   httpSrv,
		Logger: logger,
		Store:  st,
	}
}

// StartHTTP runs the HTTP server.
func (s *Server) StartHTTP() error {
	log.Printf("Portal HTTP service listening on %s", s.HTTP.Addr)
	return s.HTTP.ListenAndServe()
}

// Close releases the store connection and flushes the logger.
func (s *Server) Close() {
	if err := s.Store.Close(); err != nil {
		log.Printf("failed to close store: %v", err)
	}
	_ = s.Logger.Sync()
}
