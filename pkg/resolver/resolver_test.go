package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinscraper/internal/testutils"
	"pinscraper/pkg/httpclient"
	"pinscraper/pkg/logger"
	"pinscraper/pkg/pinterest"
	"pinscraper/pkg/render"
)

// stubRenderer returns a fixed document or error and counts calls
type stubRenderer struct {
	html  string
	err   error
	calls int
}

func (s *stubRenderer) Render(ctx context.Context, pageURL string) (*goquery.Document, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(s.html))
}

func imageURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://i.pinimg.com/originals/%02d.jpg", i+1)
	}
	return urls
}

func newClient() *httpclient.Client {
	opts := httpclient.DefaultOptions()
	opts.MaxRetries = 0
	return httpclient.New(opts, nil)
}

func newResolver(server *testutils.MockPinterestServer, renderer render.Renderer) *Resolver {
	return New(newClient(), renderer, Options{
		BaseURL:    server.URL(),
		APITimeout: 5 * time.Second,
	}, logger.NewTestLogger())
}

func newScriptRenderer() render.Renderer {
	return render.NewScriptRenderer(newClient(), render.Options{
		Timeout:     5 * time.Second,
		DataIslands: []string{pinterest.PWSDataScriptID},
	}, nil)
}

func TestResolveNonPositiveLimit(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	server.SetSearchPage(testutils.PinsPageHTML(testutils.PinsState(imageURLs(3)...)))
	server.SetResource(http.StatusOK, testutils.ResourceResponse(imageURLs(3)...))

	r := newResolver(server, newScriptRenderer())

	for _, limit := range []int{0, -1, -25} {
		res := r.Resolve(context.Background(), "cats", limit)
		assert.Empty(t, res.URLs)
		assert.NotNil(t, res.URLs)
		assert.Equal(t, ReasonSkipped, res.Primary.Reason)
		assert.Equal(t, ReasonSkipped, res.Fallback.Reason)
		assert.False(t, res.Unreachable())
	}

	assert.Equal(t, 0, server.PageCalls())
	assert.Equal(t, 0, server.ResourceCalls())
}

func TestResolvePrimaryStage(t *testing.T) {
	tests := []struct {
		name string
		html func(state string) string
	}{
		{"embedded state", testutils.PinsPageHTML},
		{"script published state", testutils.ScriptedPinsPageHTML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutils.NewMockPinterestServer()
			defer server.Close()
			urls := imageURLs(6)
			server.SetSearchPage(tt.html(testutils.PinsState(urls...)))
			server.SetResource(http.StatusOK, testutils.ResourceResponse(imageURLs(2)...))

			r := newResolver(server, newScriptRenderer())
			res := r.Resolve(context.Background(), "red cats", 4)

			assert.Equal(t, urls[:4], res.URLs)
			assert.Equal(t, StagePrimary, res.Source)
			assert.Equal(t, ReasonFound, res.Primary.Reason)
			assert.Equal(t, ReasonSkipped, res.Fallback.Reason)
			assert.Equal(t, 1, server.PageCalls())
			assert.Equal(t, 0, server.ResourceCalls(), "fallback must not run when primary found URLs")
		})
	}
}

func TestResolvePrimarySkipsMalformedPins(t *testing.T) {
	state := `{"initialReduxState":{"pins":{
		"a":{"images":{"orig":{"url":"https://i.pinimg.com/a.jpg"}}},
		"b":{"images":{"orig":{}}},
		"c":{"images":{"orig":{"url":42}}},
		"d":"not a pin",
		"e":{"images":{"orig":{"url":""}}},
		"f":{"images":null},
		"g":{"images":{"orig":{"url":"https://i.pinimg.com/g.jpg"}}}
	}}}`
	renderer := &stubRenderer{html: testutils.PinsPageHTML(state)}

	server := testutils.NewMockPinterestServer()
	defer server.Close()

	res := newResolver(server, renderer).Resolve(context.Background(), "cats", 10)

	assert.Equal(t, []string{"https://i.pinimg.com/a.jpg", "https://i.pinimg.com/g.jpg"}, res.URLs)
	assert.Equal(t, 0, server.ResourceCalls())
}

func TestResolveFallsBackOnce(t *testing.T) {
	tests := []struct {
		name     string
		renderer *stubRenderer
		reason   Reason
	}{
		{"render failure", &stubRenderer{err: errors.New("chromium crashed")}, ReasonRenderFailed},
		{"capability absent", &stubRenderer{err: render.ErrUnavailable}, ReasonUnavailable},
		{"missing script tag", &stubRenderer{html: "<html><body></body></html>"}, ReasonParseFailed},
		{"empty script tag", &stubRenderer{html: testutils.PinsPageHTML("")}, ReasonParseFailed},
		{"invalid state JSON", &stubRenderer{html: testutils.PinsPageHTML("{not json")}, ReasonParseFailed},
		{"no pins", &stubRenderer{html: testutils.PinsPageHTML(testutils.PinsState())}, ReasonEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutils.NewMockPinterestServer()
			defer server.Close()
			urls := imageURLs(3)
			server.SetResource(http.StatusOK, testutils.ResourceResponse(urls...))

			res := newResolver(server, tt.renderer).Resolve(context.Background(), "cats", 10)

			assert.Equal(t, 1, tt.renderer.calls)
			assert.Equal(t, tt.reason, res.Primary.Reason)
			assert.Equal(t, 1, server.ResourceCalls())
			assert.Equal(t, urls, res.URLs)
			assert.Equal(t, StageFallback, res.Source)
		})
	}
}

func TestResolveNopRendererSkipsPage(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	server.SetSearchPage(testutils.PinsPageHTML(testutils.PinsState(imageURLs(3)...)))
	server.SetResource(http.StatusOK, testutils.ResourceResponse(imageURLs(2)...))

	res := newResolver(server, nil).Resolve(context.Background(), "cats", 5)

	assert.Equal(t, ReasonUnavailable, res.Primary.Reason)
	assert.Equal(t, 0, server.PageCalls())
	assert.Equal(t, 1, server.ResourceCalls())
	assert.Len(t, res.URLs, 2)
}

func TestResolveFallbackRequest(t *testing.T) {
	tests := []struct {
		limit    int
		pageSize int
	}{
		{5, 25},
		{25, 25},
		{30, 30},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit %d", tt.limit), func(t *testing.T) {
			server := testutils.NewMockPinterestServer()
			defer server.Close()
			server.SetResource(http.StatusOK, testutils.ResourceResponse(imageURLs(40)...))

			r := newResolver(server, nil)
			r.now = func() time.Time { return time.UnixMilli(1700000000000) }
			res := r.Resolve(context.Background(), "cute cats", tt.limit)

			assert.Equal(t, imageURLs(40)[:tt.limit], res.URLs)

			q := server.LastResourceQuery()
			assert.Equal(t, "/search/pins/?q=cute%20cats", q.Get("source_url"))
			assert.Equal(t, "1700000000000", q.Get("_"))

			var payload pinterest.SearchRequest
			require.NoError(t, json.Unmarshal([]byte(q.Get("data")), &payload))
			assert.Equal(t, "cute cats", payload.Options.Query)
			assert.Equal(t, "pins", payload.Options.Scope)
			assert.Equal(t, tt.pageSize, payload.Options.PageSize)
		})
	}
}

func TestResolveFallbackSkipsMalformedResults(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	server.SetResource(http.StatusOK, testutils.ResourceResponse(
		"https://i.pinimg.com/1.jpg", "", "https://i.pinimg.com/2.jpg", "", "https://i.pinimg.com/3.jpg",
	))

	res := newResolver(server, nil).Resolve(context.Background(), "cats", 10)

	assert.Equal(t, []string{
		"https://i.pinimg.com/1.jpg",
		"https://i.pinimg.com/2.jpg",
		"https://i.pinimg.com/3.jpg",
	}, res.URLs)
}

func TestResolveFallbackFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason Reason
	}{
		{"server error", http.StatusInternalServerError, `{}`, ReasonBadStatus},
		{"not found", http.StatusNotFound, `{}`, ReasonBadStatus},
		{"invalid JSON", http.StatusOK, `<html>blocked</html>`, ReasonParseFailed},
		{"no results", http.StatusOK, testutils.ResourceResponse(), ReasonEmpty},
		{"missing results", http.StatusOK, `{"resource_response":{"data":null}}`, ReasonEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutils.NewMockPinterestServer()
			defer server.Close()
			server.SetResource(tt.status, tt.body)

			res := newResolver(server, nil).Resolve(context.Background(), "cats", 10)

			assert.Empty(t, res.URLs)
			assert.Equal(t, StageNone, res.Source)
			assert.Equal(t, tt.reason, res.Fallback.Reason)
			assert.False(t, res.Unreachable())
			assert.Equal(t, 1, server.ResourceCalls())
		})
	}
}

func TestResolveUnreachable(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	base := server.URL()
	server.Close()

	r := New(newClient(), nil, Options{BaseURL: base}, nil)
	res := r.Resolve(context.Background(), "cats", 10)

	assert.Empty(t, res.URLs)
	assert.Equal(t, ReasonTransportFailed, res.Fallback.Reason)
	assert.Error(t, res.Fallback.Err)
	assert.True(t, res.Unreachable())
}

func TestURLs(t *testing.T) {
	server := testutils.NewMockPinterestServer()
	defer server.Close()
	server.SetResource(http.StatusOK, testutils.ResourceResponse(imageURLs(3)...))

	urls := newResolver(server, nil).URLs(context.Background(), "cats", 2)
	assert.Equal(t, imageURLs(2), urls)
}
