package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/clausewise/contract-analyzer/internal/aggregator"
	"github.com/clausewise/contract-analyzer/internal/auth"
	"github.com/clausewise/contract-analyzer/internal/classifier"
	"github.com/clausewise/contract-analyzer/internal/embeddings"
	"github.com/clausewise/contract-analyzer/internal/pipeline"
	"github.com/clausewise/contract-analyzer/internal/similarity"
	"github.com/clausewise/contract-analyzer/internal/storage"
)

// ServerConfig holds server wiring configuration
type ServerConfig struct {
	DB            *sql.DB
	JWTSecret     string
	OpenRouterKey string
	LLMModel      string
}

type Server struct {
	router *chi.Mux

	authService auth.Service

	contractRepo storage.ContractRepository
	clauseRepo   storage.ClauseRepository
	corpusRepo   storage.CorpusRepository

	pipeline   *pipeline.Pipeline
	similarity *similarity.Service
	provider   embeddings.Provider
	index      *similarity.Index
}

// NewServer wires the analysis pipeline and HTTP routes
func NewServer(config ServerConfig) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authConfig := auth.DefaultConfig()
	if config.JWTSecret != "" {
		authConfig.SecretKey = config.JWTSecret
	}
	authRepo := auth.NewPostgresRepository(config.DB)
	authService := auth.NewJWTService(authConfig, authRepo)

	contractRepo := storage.NewPostgresContractRepository(config.DB)
	clauseRepo := storage.NewPostgresClauseRepository(config.DB)
	corpusRepo := storage.NewPostgresCorpusRepository(config.DB)

	s := &Server{
		router:       r,
		authService:  authService,
		contractRepo: contractRepo,
		clauseRepo:   clauseRepo,
		corpusRepo:   corpusRepo,
	}

	if config.OpenRouterKey != "" {
		client := embeddings.NewClient(config.OpenRouterKey)
		provider := embeddings.NewCachedProvider(client, embeddings.NewMemoryCache())
		index := similarity.NewIndex(provider.Dimension())

		llm := classifier.NewClient(classifier.ClientConfig{
			APIKey: config.OpenRouterKey,
			Model:  config.LLMModel,
		})

		s.provider = provider
		s.index = index
		s.similarity = similarity.NewService(provider, index)
		s.pipeline = pipeline.New(
			classifier.New(llm),
			aggregator.New(aggregator.DefaultConfig()),
			pipeline.WithSimilarity(provider, index),
			pipeline.WithReporter(storage.NewStatusRecorder(contractRepo)),
		)
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.authService))

			r.Route("/contracts", func(r chi.Router) {
				r.Post("/analyze", s.handleAnalyze)
				r.Get("/", s.handleListContracts)
				r.Get("/{contractID}", s.handleGetContract)
				r.Delete("/{contractID}", s.handleDeleteContract)
			})

			r.Route("/clauses", func(r chi.Router) {
				r.Post("/similar", s.handleFindSimilarClauses)
			})

			r.Post("/corpus/clauses", s.handleIndexCorpusClause)
		})
	})
}

// WarmIndex loads the historical clause corpus into the in-memory
// similarity index. Call once at startup.
func (s *Server) WarmIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}

	clauses, err := s.corpusRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	for _, c := range clauses {
		record := similarity.ClauseRecord{
			ID:          c.ID.String(),
			ClauseText:  c.ClauseText,
			ClauseType:  modelClauseType(c.ClauseType),
			IsFavorable: c.IsFavorable,
			Explanation: c.Explanation,
		}
		if err := s.index.Upsert(record, c.Embedding.Slice()); err != nil {
			return fmt.Errorf("index corpus clause %s: %w", c.ID, err)
		}
	}

	return nil
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
