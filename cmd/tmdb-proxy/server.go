package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/tmdb-film-client/pkg/client"
	"github.com/Sternrassler/tmdb-film-client/pkg/film"
	"github.com/Sternrassler/tmdb-film-client/pkg/logging"
	"github.com/Sternrassler/tmdb-film-client/pkg/metrics"
	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

const (
	defaultLanguage = "en-US"
	requestIDHeader = "X-Request-ID"
)

// Searcher is implemented by *metadata.Fetcher.
type Searcher interface {
	Search(ctx context.Context, title, language string, page int) (string, error)
}

// FilmAssembler is implemented by *film.Assembler.
type FilmAssembler interface {
	Assemble(ctx context.Context, movieID int, language, medium string) (*film.Film, error)
}

// server serves the internal TMDB API and ops endpoints.
type server struct {
	searcher  Searcher
	assembler FilmAssembler
	ready     func(ctx context.Context) error
	logger    zerolog.Logger
}

func (s *server) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorResponse(w, r, http.StatusMethodNotAllowed, fmt.Sprintf("the %s method is not supported for this resource", r.Method))
	})

	router.HandlerFunc(http.MethodGet, "/health", healthHandler)
	router.HandlerFunc(http.MethodGet, "/ready", s.readyHandler)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())

	router.HandlerFunc(http.MethodGet, "/v1/search", s.searchHandler)
	router.HandlerFunc(http.MethodGet, "/v1/films/:id", s.filmHandler)

	return s.recoverPanic(s.requestID(s.accessLog(router)))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			logging.FromContext(r.Context()).Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// searchHandler forwards the raw TMDB search body.
func (s *server) searchHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	page := 1
	if raw := qs.Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			s.errorResponse(w, r, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = p
	}

	body, err := s.searcher.Search(r.Context(), qs.Get("query"), languageParam(r), page)
	if err != nil {
		s.upstreamErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *server) filmHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r)
	if err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	f, err := s.assembler.Assemble(r.Context(), id, languageParam(r), r.URL.Query().Get("medium"))
	if err != nil {
		s.upstreamErrorResponse(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, f)
}

func readIDParam(r *http.Request) (int, error) {
	params := httprouter.ParamsFromContext(r.Context())
	id, err := strconv.Atoi(params.ByName("id"))
	if err != nil || id < 1 {
		return 0, errors.New("invalid id parameter")
	}
	return id, nil
}

func languageParam(r *http.Request) string {
	if lang := r.URL.Query().Get("language"); lang != "" {
		return lang
	}
	return defaultLanguage
}

// upstreamErrorResponse maps fetch and assembly errors to status codes.
func (s *server) upstreamErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())

	switch {
	case client.IsNotFound(err):
		s.errorResponse(w, r, http.StatusNotFound, "the requested movie could not be found")
	case errors.Is(err, client.ErrNetworkFailure),
		errors.Is(err, film.ErrUpstreamUnavailable),
		errors.Is(err, film.ErrMalformedUpstreamData):
		logger.Warn().Err(err).Msg("Upstream request failed")
		s.errorResponse(w, r, http.StatusBadGateway, "the upstream movie database is unavailable")
	default:
		logger.Error().Err(err).Msg("Request failed")
		s.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
	}
}

func (s *server) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, r, status, map[string]string{"error": message})
}

func (s *server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	js, err := json.Marshal(data)
	if err != nil {
		logging.FromContext(r.Context()).Error().Err(err).Msg("Failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(js, '\n'))
}

func (s *server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				s.logger.Error().Interface("panic", err).Str("path", r.URL.Path).Msg("Recovered from panic")
				s.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestID tags every request with an X-Request-ID and a request-scoped logger.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		logger := s.logger.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

func (s *server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		logging.FromContext(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", m.Code).
			Int64("bytes", m.Written).
			Dur("duration", m.Duration).
			Msg("Request served")
	})
}
