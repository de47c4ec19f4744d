package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	httpHandlers "github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/http"
	"github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/logging"
	"github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/middleware"
	"github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/service"
	"github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/storage"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory LinkStorage for endpoint tests.
type memLinkStorage struct {
	mu    sync.Mutex
	links []*storage.Link
	seq   int64
}

func newMemLinkStorage() *memLinkStorage {
	return &memLinkStorage{}
}

func (m *memLinkStorage) active(code string) *storage.Link {
	for _, link := range m.links {
		if link.Code == code && !link.Deleted {
			return link
		}
	}
	return nil
}

func (m *memLinkStorage) Create(ctx context.Context, link *storage.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active(link.Code) != nil {
		return storage.ErrDuplicateCode
	}
	m.seq++
	link.ID = m.seq
	link.CreatedAt = time.Now()
	link.UpdatedAt = link.CreatedAt
	stored := *link
	m.links = append(m.links, &stored)
	return nil
}

func (m *memLinkStorage) GetByCode(ctx context.Context, code string) (*storage.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if link := m.active(code); link != nil {
		cp := *link
		return &cp, nil
	}
	return nil, nil
}

func (m *memLinkStorage) CodeExists(ctx context.Context, code string, includeDeleted bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, link := range m.links {
		if link.Code == code && (includeDeleted || !link.Deleted) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLinkStorage) List(ctx context.Context, page, limit int, search string) ([]storage.Link, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := []storage.Link{}
	needle := strings.ToLower(search)
	// Newest first: iterate insertion order backwards.
	for i := len(m.links) - 1; i >= 0; i-- {
		link := m.links[i]
		if link.Deleted {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(link.Code), needle) &&
			!strings.Contains(strings.ToLower(link.TargetURL), needle) {
			continue
		}
		matches = append(matches, *link)
	}
	total := int64(len(matches))
	start := (page - 1) * limit
	if start >= len(matches) {
		return []storage.Link{}, total, nil
	}
	end := start + limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[start:end], total, nil
}

func (m *memLinkStorage) RecordVisit(ctx context.Context, code string, at time.Time) (*storage.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link := m.active(code)
	if link == nil {
		return nil, nil
	}
	link.TotalClicks++
	link.LastClicked = &at
	link.UpdatedAt = at
	cp := *link
	return &cp, nil
}

func (m *memLinkStorage) MarkDeleted(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link := m.active(code)
	if link == nil {
		return false, nil
	}
	link.Deleted = true
	return true, nil
}

func newTestRouter() *chi.Mux {
	logger := logging.NewLogger(logging.LevelError)
	linkService := service.NewLinkService(newMemLinkStorage(), logger, service.Options{})
	handler := httpHandlers.NewHandler(linkService, "test")

	r := chi.NewRouter()
	r.Use(middleware.Correlate)
	r.Use(middleware.Recoverer(logger))
	httpHandlers.SetupRoutes(r, handler)
	return r
}

func postLink(t *testing.T, router *chi.Mux, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	jsonData, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/links", bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateLinkEndpoint(t *testing.T) {
	router := newTestRouter()

	w := postLink(t, router, map[string]any{"targetUrl": "https://example.com/a"})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "Link created successfully", body["message"])

	data := body["data"].(map[string]any)
	code := data["code"].(string)
	assert.Regexp(t, `^[A-Za-z0-9]{6,8}$`, code)
	assert.Equal(t, "https://example.com/a", data["targetUrl"])
	assert.Equal(t, float64(0), data["totalClicks"])
	assert.Nil(t, data["lastClicked"])
}

func TestCreateLinkValidation(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"invalid url", map[string]any{"targetUrl": "notaurl"}, http.StatusBadRequest},
		{"wrong scheme", map[string]any{"targetUrl": "ftp://example.com"}, http.StatusBadRequest},
		{"short code", map[string]any{"targetUrl": "https://example.com", "code": "ab1"}, http.StatusBadRequest},
		{"bad code chars", map[string]any{"targetUrl": "https://example.com", "code": "abc_12"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postLink(t, router, tt.body)
			assert.Equal(t, tt.status, w.Code)
			body := decodeBody(t, w)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCreateLinkConflict(t *testing.T) {
	router := newTestRouter()

	w := postLink(t, router, map[string]any{"targetUrl": "https://example.com", "code": "abc123"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postLink(t, router, map[string]any{"targetUrl": "https://example.org", "code": "abc123"})
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Short code already exists", body["error"])
}

func TestGetLinkEndpoint(t *testing.T) {
	router := newTestRouter()

	w := postLink(t, router, map[string]any{"targetUrl": "https://example.com", "code": "abc123"})
	require.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest("GET", "/api/links/abc123", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "abc123", data["code"])

	// Lookup is idempotent: no intervening writes, same counters.
	req = httptest.NewRequest("GET", "/api/links/abc123", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	data2 := decodeBody(t, w2)["data"].(map[string]any)
	assert.Equal(t, data["totalClicks"], data2["totalClicks"])
	assert.Equal(t, data["lastClicked"], data2["lastClicked"])

	req = httptest.NewRequest("GET", "/api/links/unknown1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListLinksEndpoint(t *testing.T) {
	router := newTestRouter()

	targets := []string{
		"https://golang.org/doc",
		"https://example.com/one",
		"https://example.com/two",
	}
	for _, target := range targets {
		w := postLink(t, router, map[string]any{"targetUrl": target})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	req := httptest.NewRequest("GET", "/api/links?page=1&limit=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Len(t, body["data"], 2)
	pg := body["pagination"].(map[string]any)
	assert.Equal(t, float64(1), pg["page"])
	assert.Equal(t, float64(2), pg["limit"])
	assert.Equal(t, float64(3), pg["total"])
	assert.Equal(t, float64(2), pg["totalPages"])

	req = httptest.NewRequest("GET", "/api/links?search=golang", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	body = decodeBody(t, w)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, float64(1), body["pagination"].(map[string]any)["total"])
}

func TestDeleteLinkEndpoint(t *testing.T) {
	router := newTestRouter()

	w := postLink(t, router, map[string]any{"targetUrl": "https://example.com", "code": "abc123"})
	require.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest("DELETE", "/api/links/abc123", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Link deleted successfully", body["message"])
	assert.Equal(t, "abc123", body["data"].(map[string]any)["code"])

	// Gone for lookup, redirect and repeat delete alike.
	for _, probe := range []struct{ method, path string }{
		{"GET", "/api/links/abc123"},
		{"GET", "/abc123"},
		{"DELETE", "/api/links/abc123"},
	} {
		req = httptest.NewRequest(probe.method, probe.path, nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", probe.method, probe.path)
	}
}

func TestRedirectEndpoint(t *testing.T) {
	router := newTestRouter()

	w := postLink(t, router, map[string]any{"targetUrl": "https://example.com/landing", "code": "abc123"})
	require.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest("GET", "/abc123", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/landing", w.Header().Get("Location"))

	// The visit is accounted.
	req = httptest.NewRequest("GET", "/api/links/abc123", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(1), data["totalClicks"])
	assert.NotNil(t, data["lastClicked"])
}

func TestRedirectUnknownCode(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/nosuch1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Link not found", body["error"])
}

func TestHealthzEndpoint(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "1.0", body["version"])
	assert.Equal(t, "test", body["environment"])
	assert.GreaterOrEqual(t, body["uptime"].(float64), float64(0))
	_, err := time.Parse(time.RFC3339, body["timestamp"].(string))
	assert.NoError(t, err)
}
