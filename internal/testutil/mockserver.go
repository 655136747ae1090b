package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// MockServer simulates both the Pexels API (and its CDN) and the
// Ecosapiens scan API on one httptest server. Cookies not registered with
// AddAccount are rejected with 401.
type MockServer struct {
	server *httptest.Server

	// APIKey is the Pexels key the search endpoint accepts
	APIKey string
	// PollsUntilDone is the poll on which a scan resolves, counting from 1
	PollsUntilDone int
	// FailureReason makes resolved scans fail with this reason
	FailureReason string
	// ProductName is reported for completed scans; empty means no product
	ProductName string
	// Score is reported with ProductName
	Score float64
	// PointsPerScan is credited to an account for each completed scan
	PointsPerScan float64

	mu       sync.Mutex
	accounts map[string]*mockAccount
	scans    map[string]*mockScan
	errors   map[string]int

	nextScan      int64
	uploads       int32
	searches      int32
	downloads     int32
	leakedAPIKeys int32
	requestCount  int32
}

type mockAccount struct {
	name   string
	points float64
}

type mockScan struct {
	cookie string
	polls  int
}

// NewMockServer starts a mock server. Close it when done.
func NewMockServer() *MockServer {
	m := &MockServer{
		APIKey:         "test-pexels-key",
		PollsUntilDone: 1,
		ProductName:    "Bamboo Toothbrush",
		Score:          8.5,
		PointsPerScan:  10,
		accounts:       make(map[string]*mockAccount),
		scans:          make(map[string]*mockScan),
		errors:         make(map[string]int),
	}

	mux := http.NewServeMux()

	// Pexels
	mux.HandleFunc("/v1/search", m.handleSearch)
	mux.HandleFunc("/photos/", m.handlePhoto)

	// Ecosapiens
	mux.HandleFunc("/api/session", m.handleSession)
	mux.HandleFunc("/api/users/me/loot_total", m.handleLootTotal)
	mux.HandleFunc("/api/scans", m.handleUpload)
	mux.HandleFunc("/api/scans/", m.handlePoll)

	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the server root
func (m *MockServer) URL() string {
	return m.server.URL
}

// PexelsURL returns the base URL to configure the Pexels client with
func (m *MockServer) PexelsURL() string {
	return m.server.URL + "/v1"
}

// Close shuts the server down
func (m *MockServer) Close() {
	m.server.Close()
}

// AddAccount registers a valid cookie
func (m *MockServer) AddAccount(cookie, name string, points float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[cookie] = &mockAccount{name: name, points: points}
}

// SetError makes every request to path fail with code
func (m *MockServer) SetError(path string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[path] = code
}

// Points returns the current balance of an account
func (m *MockServer) Points(cookie string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[cookie]; ok {
		return a.points
	}
	return 0
}

// Uploads returns the number of accepted scan uploads
func (m *MockServer) Uploads() int { return int(atomic.LoadInt32(&m.uploads)) }

// Searches returns the number of image searches
func (m *MockServer) Searches() int { return int(atomic.LoadInt32(&m.searches)) }

// Downloads returns the number of image downloads
func (m *MockServer) Downloads() int { return int(atomic.LoadInt32(&m.downloads)) }

// LeakedAPIKeys counts requests outside the search endpoint that carried
// the Pexels key
func (m *MockServer) LeakedAPIKeys() int { return int(atomic.LoadInt32(&m.leakedAPIKeys)) }

// RequestCount returns the total number of requests served
func (m *MockServer) RequestCount() int { return int(atomic.LoadInt32(&m.requestCount)) }

func (m *MockServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !m.begin(w, r) {
		return
	}
	atomic.AddInt32(&m.searches, 1)

	if r.Header.Get("Authorization") != m.APIKey {
		m.writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"error": "Unauthorized"})
		return
	}

	query := r.URL.Query().Get("query")
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 || perPage > 3 {
		perPage = 3
	}

	photos := make([]map[string]interface{}, 0, perPage)
	for i := 1; i <= perPage; i++ {
		photos = append(photos, map[string]interface{}{
			"id":  i,
			"alt": fmt.Sprintf("%s %d", query, i),
			"src": map[string]string{
				"original": fmt.Sprintf("%s/photos/%d-original.jpg", m.server.URL, i),
				"large":    fmt.Sprintf("%s/photos/%d.jpg", m.server.URL, i),
			},
		})
	}

	m.writeJSON(w, http.StatusOK, map[string]interface{}{
		"page":          1,
		"per_page":      perPage,
		"total_results": perPage,
		"photos":        photos,
	})
}

func (m *MockServer) handlePhoto(w http.ResponseWriter, r *http.Request) {
	if !m.begin(w, r) {
		return
	}
	atomic.AddInt32(&m.downloads, 1)
	if r.Header.Get("Authorization") != "" {
		atomic.AddInt32(&m.leakedAPIKeys, 1)
	}

	w.Header().Set("Content-Type", "image/jpeg")
	// JPEG SOI marker followed by filler; the clients treat images as opaque bytes
	w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00})
}

func (m *MockServer) handleSession(w http.ResponseWriter, r *http.Request) {
	account, ok := m.authorize(w, r)
	if !ok {
		return
	}
	m.writeJSON(w, http.StatusOK, map[string]interface{}{
		"current_user": map[string]interface{}{"id": 1, "name": account.name},
	})
}

func (m *MockServer) handleLootTotal(w http.ResponseWriter, r *http.Request) {
	account, ok := m.authorize(w, r)
	if !ok {
		return
	}
	m.mu.Lock()
	points := account.points
	m.mu.Unlock()
	m.writeJSON(w, http.StatusOK, map[string]interface{}{"total_points": points})
}

func (m *MockServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := m.authorize(w, r); !ok {
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		m.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "missing image"})
		return
	}
	file.Close()
	if header.Header.Get("Content-Type") != "image/jpeg" {
		m.writeJSON(w, http.StatusUnsupportedMediaType, map[string]interface{}{"error": "jpeg only"})
		return
	}

	id := atomic.AddInt64(&m.nextScan, 1)
	m.mu.Lock()
	m.scans[strconv.FormatInt(id, 10)] = &mockScan{cookie: r.Header.Get("Cookie")}
	m.mu.Unlock()
	atomic.AddInt32(&m.uploads, 1)

	// Numeric id, as the live API returns
	m.writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (m *MockServer) handlePoll(w http.ResponseWriter, r *http.Request) {
	if _, ok := m.authorize(w, r); !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/scans/")

	m.mu.Lock()
	scan, ok := m.scans[id]
	if !ok {
		m.mu.Unlock()
		m.writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "no such scan"})
		return
	}
	scan.polls++
	if scan.polls < m.PollsUntilDone {
		m.mu.Unlock()
		m.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "processing"})
		return
	}

	body := map[string]interface{}{"status": "completed"}
	switch {
	case m.FailureReason != "":
		body = map[string]interface{}{"status": "failed", "failure_reason": m.FailureReason}
	case m.ProductName != "":
		body["product"] = map[string]interface{}{"name": m.ProductName, "score": m.Score}
	}
	if scan.polls == m.PollsUntilDone && m.FailureReason == "" {
		if account, ok := m.accounts[scan.cookie]; ok {
			account.points += m.PointsPerScan
		}
	}
	m.mu.Unlock()

	m.writeJSON(w, http.StatusOK, body)
}

// begin counts the request and applies configured errors
func (m *MockServer) begin(w http.ResponseWriter, r *http.Request) bool {
	atomic.AddInt32(&m.requestCount, 1)

	m.mu.Lock()
	code := m.errors[r.URL.Path]
	m.mu.Unlock()

	if code > 0 {
		m.writeJSON(w, code, map[string]interface{}{"error": http.StatusText(code)})
		return false
	}
	return true
}

// authorize resolves the account behind the Cookie header
func (m *MockServer) authorize(w http.ResponseWriter, r *http.Request) (*mockAccount, bool) {
	if !m.begin(w, r) {
		return nil, false
	}
	if r.Header.Get("Authorization") != "" {
		atomic.AddInt32(&m.leakedAPIKeys, 1)
	}

	m.mu.Lock()
	account, ok := m.accounts[r.Header.Get("Cookie")]
	m.mu.Unlock()

	if !ok {
		m.writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"error": "Unauthorized"})
		return nil, false
	}
	return account, true
}

func (m *MockServer) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
