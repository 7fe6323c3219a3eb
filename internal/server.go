package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// Server exposes the App over HTTP
type Server struct {
	app      *App
	router   *mux.Router
	logger   *slog.Logger
	apiKey   string
	resolver TokenResolver
}

// NewServer builds the router. The App should resolve identities with
// ContextAuth so handlers act for the authenticated caller.
func NewServer(app *App, apiKey string, resolver TokenResolver) *Server {
	s := &Server{
		app:      app,
		router:   mux.NewRouter(),
		logger:   app.Logger().With(slog.String("component", "http")),
		apiKey:   apiKey,
		resolver: resolver,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.logRequests)

	// Public routes
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/analyse", s.handleAnalyse).Methods(http.MethodPost)
	if dir, ok := s.app.ImagesDir(); ok {
		r.PathPrefix("/images/").Handler(http.StripPrefix("/images/", http.FileServer(http.Dir(dir)))).Methods(http.MethodGet)
	}

	// Routes acting for a user
	api := r.PathPrefix("/api").Subrouter()
	api.Use(IdentityMiddleware(s.apiKey, s.resolver, s.logger))

	api.HandleFunc("/videos/{id}", s.handleVideoDetails).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id}/transcript", s.handleTranscript).Methods(http.MethodPost)
	api.HandleFunc("/videos/{id}/titles", s.handleListTitles).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id}/titles", s.handleGenerateTitle).Methods(http.MethodPost)
	api.HandleFunc("/videos/{id}/image", s.handleImageURL).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id}/image", s.handleGenerateImage).Methods(http.MethodPost)
	api.HandleFunc("/usage", s.handleUsage).Methods(http.MethodGet)
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusUnauthorized:
		msg = "Unauthorized"
	case http.StatusInternalServerError:
		s.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		var me *messageError
		if !errors.As(err, &me) {
			msg = "Internal server error"
		}
	}
	writeError(w, status, msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return invalidInput(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyse resolves a pasted URL to the analysis page. Browsers get a
// redirect; API clients asking for JSON get the path.
func (s *Server) handleAnalyse(w http.ResponseWriter, r *http.Request) {
	var rawURL string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			URL string `json:"url"`
		}
		if err := decodeBody(w, r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
		rawURL = body.URL
	} else {
		rawURL = r.FormValue("url")
	}

	videoID, ok := ExtractVideoID(strings.TrimSpace(rawURL))
	if !ok {
		writeError(w, http.StatusBadRequest, "Could not find a YouTube video ID in that URL")
		return
	}

	path := AnalysisPath(videoID)
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, map[string]string{"videoId": videoID, "redirect": path})
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func (s *Server) handleVideoDetails(w http.ResponseWriter, r *http.Request) {
	if _, err := requireIdentity(r.Context(), s.app.auth); err != nil {
		s.fail(w, r, err)
		return
	}
	details, err := s.app.Details().VideoDetails(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Transcripts().Transcript(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := s.app.Titles().List(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if titles == nil {
		titles = []GeneratedTitle{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"titles": titles})
}

func (s *Server) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoSummary   string `json:"videoSummary"`
		Considerations string `json:"considerations"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	title, err := s.app.Titles().Generate(r.Context(), mux.Vars(r)["id"], body.VideoSummary, body.Considerations)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

func (s *Server) handleImageURL(w http.ResponseWriter, r *http.Request) {
	u, ok, err := s.app.Images().ImageURL(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "No image generated for this video")
		return
	}
	writeJSON(w, http.StatusOK, GeneratedImage{ImageURL: u})
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	img, err := s.app.Images().Generate(r.Context(), mux.Vars(r)["id"], body.Prompt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int)
	for _, f := range []Feature{FeatureTranscription, FeatureTitleGenerations, FeatureImageGeneration} {
		n, err := s.app.UsageCount(r.Context(), f)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		counts[f.String()] = n
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleChat streams chat events as server-sent events
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if _, err := requireIdentity(r.Context(), s.app.auth); err != nil {
		s.fail(w, r, err)
		return
	}

	var req ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(ev ChatEvent) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := s.app.Chat().Stream(r.Context(), req, emit); err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.logger.Error("chat failed", slog.Any("error", err))
		msg := "Something went wrong, please try again later"
		var me *messageError
		if errors.As(err, &me) {
			msg = me.Error()
		}
		_ = emit(ChatEvent{Type: EventError, Error: msg})
	}
}
