// Package testutil provides testing utilities for the TMDB client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockTMDBResponse defines the behavior for a mock TMDB endpoint response.
type MockTMDBResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockTMDB is a configurable mock TMDB server for testing.
type MockTMDB struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount      int
	pathCounts        map[string]int
	lastRequestHeader http.Header
	lastQuery         url.Values
}

// NewMockTMDB creates a new mock TMDB server. Unknown paths answer 404 the
// way TMDB does.
func NewMockTMDB() *MockTMDB {
	mock := &MockTMDB{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastRequestHeader = r.Header.Clone()
		mock.lastQuery = r.URL.Query()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json;charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"status_code":34,"status_message":"The resource you requested could not be found."}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockTMDB) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockTMDB) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockTMDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.lastRequestHeader = nil
	m.lastQuery = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockTMDB) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockTMDB) SetResponse(path string, resp MockTMDBResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	})
}

// SetMovieDetails configures /movie/{id}.
func (m *MockTMDB) SetMovieDetails(movieID int, resp MockTMDBResponse) {
	m.SetResponse(fmt.Sprintf("/movie/%d", movieID), resp)
}

// SetMovieCredits configures /movie/{id}/credits.
func (m *MockTMDB) SetMovieCredits(movieID int, resp MockTMDBResponse) {
	m.SetResponse(fmt.Sprintf("/movie/%d/credits", movieID), resp)
}

// SetSearch configures /search/movie.
func (m *MockTMDB) SetSearch(resp MockTMDBResponse) {
	m.SetResponse("/search/movie", resp)
}

// RequestCount returns the number of requests made to the server.
func (m *MockTMDB) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made to path.
func (m *MockTMDB) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockTMDB) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// LastQuery returns the query parameters of the most recent request.
func (m *MockTMDB) LastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery
}

// NewJSONResponse creates a 200 OK response with a JSON body.
func NewJSONResponse(body string) MockTMDBResponse {
	return MockTMDBResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockTMDBResponse {
	return MockTMDBResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status_code":25,"status_message":"Your request count (41) is over the allowed limit of 40."}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
			"Retry-After":  "10",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockTMDBResponse {
	return MockTMDBResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status_code":11,"status_message":"Internal error: Something went wrong, contact TMDb."}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

// NewUnauthorizedResponse creates a 401 response for a bad api key.
func NewUnauthorizedResponse() MockTMDBResponse {
	return MockTMDBResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"status_code":7,"status_message":"Invalid API key: You must be granted a valid key.","success":false}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

// MatrixDetails is a trimmed /movie/603 payload.
const MatrixDetails = `{
  "id": 603,
  "title": "The Matrix",
  "poster_path": "/f89U3ADr1oiB1s9GkdPOEpXUk5H.jpg",
  "overview": "Set in the 22nd century, The Matrix tells the story of a computer hacker.",
  "release_date": "1999-03-30",
  "original_language": "en"
}`

// MatrixCredits is a trimmed /movie/603/credits payload.
const MatrixCredits = `{
  "id": 603,
  "cast": [
    {"name": "Keanu Reeves", "known_for_department": "Acting", "character": "Neo"},
    {"name": "Laurence Fishburne", "known_for_department": "Acting", "character": "Morpheus"},
    {"name": "Carrie-Anne Moss", "known_for_department": "Acting", "character": "Trinity"},
    {"name": "Lana Wachowski", "known_for_department": "Directing", "character": "Cameo"}
  ],
  "crew": [
    {"name": "Bill Pope", "job": "Director of Photography", "department": "Camera"},
    {"name": "Lana Wachowski", "job": "Director", "department": "Directing"},
    {"name": "Lilly Wachowski", "job": "Director", "department": "Directing"}
  ]
}`

// ServeMatrix configures details and credits for movie 603.
func (m *MockTMDB) ServeMatrix() {
	m.SetMovieDetails(603, NewJSONResponse(MatrixDetails))
	m.SetMovieCredits(603, NewJSONResponse(MatrixCredits))
}
