// Package testutil provides an httptest-backed mock of the CBBD API.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCBBD is a configurable mock CBBD API server for testing.
type MockCBBD struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// APIKey, when set, is required as a bearer token on every request.
	APIKey string

	requestCount int
	pathCounts   map[string]int
	lastRequest  *http.Request
	lastHeader   http.Header
}

// NewMockCBBD creates a new mock server with the sample fixtures installed.
func NewMockCBBD() *MockCBBD {
	mock := &MockCBBD{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastRequest = r.Clone(r.Context())
		mock.lastHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		apiKey := mock.APIKey
		mock.mu.Unlock()

		if apiKey != "" && r.Header.Get("Authorization") != "Bearer "+apiKey {
			writeJSON(w, http.StatusUnauthorized, `{"message":"Unauthorized"}`)
			return
		}

		if exists {
			handler(w, r)
			return
		}
		writeJSON(w, http.StatusNotFound, `{"message":"Not found"}`)
	}))

	mock.SetResponse("/games", NewJSONResponse(GamesFixture))
	mock.SetResponse("/teams", NewJSONResponse(TeamsFixture))
	mock.SetResponse("/teams/roster", NewJSONResponse(RosterFixture))
	mock.SetResponse("/plays/game/1001", NewJSONResponse(PlaysFixture))
	mock.SetResponse("/games/teams", NewJSONResponse(BoxscoreFixture))
	mock.SetResponse("/games/players", NewJSONResponse(BoxscoreFixture))
	mock.SetResponse("/conferences", NewJSONResponse(ConferencesFixture))
	mock.SetResponse("/venues", NewJSONResponse(`[]`))

	return mock
}

// URL returns the mock server URL.
func (m *MockCBBD) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCBBD) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCBBD) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.lastRequest = nil
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCBBD) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockCBBD) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, resp.write)
}

// SetSequence serves the given responses in order, repeating the last one.
func (m *MockCBBD) SetSequence(path string, resps ...MockResponse) {
	var (
		mu sync.Mutex
		i  int
	)
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := resps[i]
		if i < len(resps)-1 {
			i++
		}
		mu.Unlock()
		resp.write(w, r)
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockCBBD) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made to path.
func (m *MockCBBD) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// LastHeader returns the headers of the most recent request.
func (m *MockCBBD) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// LastQuery returns the query parameters of the most recent request.
func (m *MockCBBD) LastQuery() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastRequest == nil {
		return nil
	}
	return m.lastRequest.URL.Query()
}

func (resp MockResponse) write(w http.ResponseWriter, r *http.Request) {
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
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// NewJSONResponse creates a 200 OK response.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}

// NewRateLimitResponse creates a 429 response with a Retry-After header.
func NewRateLimitResponse(retryAfterSeconds int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"Too many requests"}`,
		Headers:    map[string]string{"Retry-After": strconv.Itoa(retryAfterSeconds)},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Internal server error"}`,
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message":"Not found"}`,
	}
}
