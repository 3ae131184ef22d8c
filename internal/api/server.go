// Package api exposes video generation and the catalog over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/SriHarishb/edith/internal/core"
	"github.com/SriHarishb/edith/internal/studio"
	"github.com/book-expert/logger"
)

const (
	readHeaderTimeout      = 5 * time.Second
	readTimeout            = 15 * time.Second
	writeTimeout           = 10 * time.Minute
	idleTimeout            = 60 * time.Second
	shutdownTimeout        = 5 * time.Second
	defaultGenerateTimeout = 10 * time.Minute
	maxBodyBytes           = 1 << 20
)

// Generator produces a video for a request.
type Generator interface {
	Generate(ctx context.Context, req studio.Request) (studio.Result, error)
}

// Catalog serves profile and listing operations.
type Catalog interface {
	CreateUser(ctx context.Context, userID string) error
	UserVideos(ctx context.Context, userID string) ([]core.Video, error)
	AllVideos(ctx context.Context) ([]core.Video, error)
	IncrementViews(ctx context.Context, userID, link string) error
	Search(ctx context.Context, query string) ([]core.Video, error)
	Paths(ctx context.Context) (map[string]any, error)
	Chat(ctx context.Context, message string) (string, error)
}

// Server is the HTTP front end.
type Server struct {
	bind      string
	generator Generator
	catalog   Catalog
	log       *logger.Logger

	generateTimeout time.Duration

	listener net.Listener
	server   *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithGenerateTimeout bounds each generate request. Non-positive values keep
// the default of ten minutes.
func WithGenerateTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.generateTimeout = timeout
		}
	}
}

type generateRequest struct {
	Text   string  `json:"text"`
	UserID *string `json:"user_id"`
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type userRequest struct {
	UserID   string `json:"user_id"`
	VideoURL string `json:"video_url"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type videosResponse struct {
	Videos []core.Video `json:"videos"`
}

// NewServer wires the routes. Nothing listens until Start.
func NewServer(bind string, generator Generator, catalog Catalog, log *logger.Logger, opts ...Option) *Server {
	srv := &Server{
		bind:            bind,
		generator:       generator,
		catalog:         catalog,
		log:             log,
		generateTimeout: defaultGenerateTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.server = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      max(writeTimeout, srv.generateTimeout+shutdownTimeout),
		IdleTimeout:       idleTimeout,
	}

	return srv
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /{$}", s.handleGenerate)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /create_user", s.handleCreateUser)
	mux.HandleFunc("POST /get_user_videos", s.handleUserVideos)
	mux.HandleFunc("GET /get_all_videos", s.handleAllVideos)
	mux.HandleFunc("GET /get_path", s.handlePaths)
	mux.HandleFunc("POST /increment_views", s.handleIncrementViews)
	mux.HandleFunc("POST /search", s.handleSearch)

	return withCORS(mux)
}

// Start listens on the bind address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}

	s.listener = listener

	go func() {
		serveErr := s.server.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.log.Error("API server error: %v", serveErr)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log.Info("API server listening on %s", listener.Addr().String())

	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest

	err := decodeBody(w, r, &req)
	if err != nil || strings.TrimSpace(req.Text) == "" || req.UserID == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"Error": "Invalid request"})

		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.generateTimeout)
	defer cancel()

	result, err := s.generator.Generate(ctx, studio.Request{UserID: *req.UserID, Prompt: req.Text})
	if errors.Is(err, studio.ErrInvalidRequest) {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"Error": "Invalid request"})

		return
	}

	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"Success": "success",
		"link":    result.Link,
		"title":   result.Title,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest

	err := decodeBody(w, r, &req)
	if err != nil || strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "Both 'user_id' and 'message' are required.")

		return
	}

	reply, err := s.catalog.Chat(r.Context(), req.Message)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "An error occurred: "+err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest

	err := decodeBody(w, r, &req)
	if err == nil {
		err = s.catalog.CreateUser(r.Context(), req.UserID)
	}

	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	s.writeSuccess(w)
}

func (s *Server) handleUserVideos(w http.ResponseWriter, r *http.Request) {
	var req userRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	videos, err := s.catalog.UserVideos(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, videosResponse{Videos: videos})
}

func (s *Server) handleAllVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.catalog.AllVideos(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, videosResponse{Videos: videos})
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	tree, err := s.catalog.Paths(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleIncrementViews(w http.ResponseWriter, r *http.Request) {
	var req userRequest

	err := decodeBody(w, r, &req)
	if err == nil {
		err = s.catalog.IncrementViews(r.Context(), req.UserID, req.VideoURL)
	}

	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	s.writeSuccess(w)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	videos, err := s.catalog.Search(r.Context(), req.Query)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	s.writeJSON(w, http.StatusOK, videosResponse{Videos: videos})
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	err := decoder.Decode(target)
	if err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}

	return nil
}

func (s *Server) writeSuccess(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, map[string]string{"Success": "success"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload == nil {
		return
	}

	err := json.NewEncoder(w).Encode(payload)
	if err != nil && s.log != nil {
		s.log.Error("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// withCORS allows browser clients from any origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)

			return
		}

		next.ServeHTTP(w, r)
	})
}
