package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/maxaizer/jobscout/internal/config"
	"github.com/maxaizer/jobscout/internal/metrics"
	log "github.com/sirupsen/logrus"
	"net/http"
	"time"
)

type Dependencies struct {
	Scrapes  scrapeStarter
	Scoring  scoringStarter
	Resumes  resumeHandler
	Profiles profileStore
	Postings postingLister
	Tokens   *TokenService
}

type Server struct {
	httpServer *http.Server
}

func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewHandler(cfg, deps),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// NewHandler builds the full route table. Everything under /data requires a bearer token.
func NewHandler(cfg config.ServerConfig, deps Dependencies) http.Handler {
	h := &handlers{
		scrapes:  deps.Scrapes,
		scoring:  deps.Scoring,
		resumes:  deps.Resumes,
		profiles: deps.Profiles,
		postings: deps.Postings,
		validate: validator.New(),
	}

	data := http.NewServeMux()
	data.HandleFunc("POST /data/scrape-my-jobs", h.startScrape)
	data.HandleFunc("GET /data/scrape-status", h.scrapeStatus)
	data.HandleFunc("POST /data/analyze-my-jobs", h.analyzeJobs)
	data.HandleFunc("POST /data/extract-resume-text", h.extractResumeText)
	data.HandleFunc("PUT /data/resume", h.uploadResume)
	data.HandleFunc("GET /data/profile", h.getProfile)
	data.HandleFunc("PUT /data/profile", h.putProfile)
	data.HandleFunc("GET /data/relevant-jobs", h.relevantJobs)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/data/", Auth(deps.Tokens)(data))

	return Chain(mux, RequestID, Recover, AccessLog, Cors(cfg.CorsOrigins))
}

func (s *Server) Run() error {
	log.Infof("http server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server stopped: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
