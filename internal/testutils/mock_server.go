package testutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	searchPath   = "/search/pins/"
	resourcePath = "/resource/BaseSearchResource/get/"
	imagesPath   = "/images/"
)

// mockImage is an image endpoint answering with a scripted status sequence
type mockImage struct {
	content  []byte
	statuses []int
	hits     int32
}

// MockPinterestServer simulates the search page, the search resource API and
// an image CDN.
type MockPinterestServer struct {
	server *httptest.Server

	mu             sync.RWMutex
	pageHTML       string
	pageStatus     int
	resourceBody   string
	resourceStatus int
	lastResource   url.Values
	images         map[string]*mockImage

	pageHits     int32
	resourceHits int32
}

// NewMockPinterestServer creates a server that answers 404 on the search page
// and an empty result set on the resource API until configured otherwise.
func NewMockPinterestServer() *MockPinterestServer {
	m := &MockPinterestServer{
		pageHTML:       "<html><body></body></html>",
		pageStatus:     http.StatusNotFound,
		resourceBody:   ResourceResponse(),
		resourceStatus: http.StatusOK,
		images:         make(map[string]*mockImage),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(searchPath, m.handleSearchPage)
	mux.HandleFunc(resourcePath, m.handleResource)
	mux.HandleFunc(imagesPath, m.handleImage)

	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the server root
func (m *MockPinterestServer) URL() string {
	return m.server.URL
}

// Close shuts the server down
func (m *MockPinterestServer) Close() {
	m.server.Close()
}

// SetSearchPage serves html with status 200 on the search page
func (m *MockPinterestServer) SetSearchPage(html string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageHTML = html
	m.pageStatus = http.StatusOK
}

// SetSearchPageStatus makes the search page answer with status
func (m *MockPinterestServer) SetSearchPageStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageStatus = status
}

// SetResource serves body with status from the resource API
func (m *MockPinterestServer) SetResource(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resourceStatus = status
	m.resourceBody = body
}

// AddImage registers an image answering with statuses in order, repeating
// the last one. Status 200 serves content. It returns the image URL.
func (m *MockPinterestServer) AddImage(name string, content []byte, statuses ...int) string {
	if len(statuses) == 0 {
		statuses = []int{http.StatusOK}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[name] = &mockImage{content: content, statuses: statuses}
	return m.ImageURL(name)
}

// ImageURL returns the URL an image named name is served at
func (m *MockPinterestServer) ImageURL(name string) string {
	return m.server.URL + imagesPath + name
}

// PageCalls returns how many times the search page was requested
func (m *MockPinterestServer) PageCalls() int {
	return int(atomic.LoadInt32(&m.pageHits))
}

// ResourceCalls returns how many times the resource API was requested
func (m *MockPinterestServer) ResourceCalls() int {
	return int(atomic.LoadInt32(&m.resourceHits))
}

// ImageCalls returns how many times the named image was requested
func (m *MockPinterestServer) ImageCalls(name string) int {
	m.mu.RLock()
	img, ok := m.images[name]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	return int(atomic.LoadInt32(&img.hits))
}

// LastResourceQuery returns the query parameters of the latest API call
func (m *MockPinterestServer) LastResourceQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastResource
}

func (m *MockPinterestServer) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.pageHits, 1)

	m.mu.RLock()
	status, html := m.pageStatus, m.pageHTML
	m.mu.RUnlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (m *MockPinterestServer) handleResource(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.resourceHits, 1)

	m.mu.Lock()
	m.lastResource = r.URL.Query()
	status, body := m.resourceStatus, m.resourceBody
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (m *MockPinterestServer) handleImage(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, imagesPath)

	m.mu.RLock()
	img, ok := m.images[name]
	m.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	n := int(atomic.AddInt32(&img.hits, 1)) - 1
	if n >= len(img.statuses) {
		n = len(img.statuses) - 1
	}
	status := img.statuses[n]
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(img.content)
}

// PinsState returns a page state document whose pins map carries urls in
// order. An empty url produces a pin without images.
func PinsState(urls ...string) string {
	var b strings.Builder
	b.WriteString(`{"initialReduxState":{"pins":{`)
	for i, u := range urls {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `"pin-%d":%s`, i+1, pinJSON(u))
	}
	b.WriteString(`}}}`)
	return b.String()
}

// PinsPageHTML embeds state in a __PWS_DATA__ JSON script element
func PinsPageHTML(state string) string {
	return `<!DOCTYPE html><html><head>` +
		`<script id="__PWS_DATA__" type="application/json">` + state + `</script>` +
		`</head><body><div id="root"></div></body></html>`
}

// ScriptedPinsPageHTML publishes state from an inline script instead
func ScriptedPinsPageHTML(state string) string {
	return `<!DOCTYPE html><html><head></head><body><div id="root"></div>` +
		`<script>window.__PWS_DATA__ = ` + state + `;</script>` +
		`</body></html>`
}

// ResourceResponse returns a search resource payload with one result per
// url. An empty url produces a result without images.
func ResourceResponse(urls ...string) string {
	results := make([]string, len(urls))
	for i, u := range urls {
		results[i] = pinJSON(u)
	}
	return `{"resource_response":{"status":"success","data":{"results":[` +
		strings.Join(results, ",") + `]}}}`
}

func pinJSON(u string) string {
	if u == "" {
		return `{"id":"broken","images":{"236x":{"url":"https://i.pinimg.com/236x/x.jpg"}}}`
	}
	quoted, _ := json.Marshal(u)
	return `{"id":"pin","images":{"orig":{"url":` + string(quoted) + `,"width":736}}}`
}
