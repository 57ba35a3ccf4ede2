package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	errs "pinscraper/pkg/errors"
	"pinscraper/pkg/httpclient"
	"pinscraper/pkg/logger"
	"pinscraper/pkg/pinterest"
	"pinscraper/pkg/render"
)

// maxResponseBytes bounds the search resource response read into memory
const maxResponseBytes = 32 << 20

// Options configures a Resolver
type Options struct {
	// BaseURL is the site root; defaults to pinterest.BaseURL
	BaseURL string
	// APITimeout bounds each attempt of the search resource request
	APITimeout time.Duration
}

// Resolver turns a query into an ordered, bounded list of image URLs. It
// tries the rendered search page first and the search resource API only when
// the page yields nothing.
type Resolver struct {
	client   *httpclient.Client
	renderer render.Renderer
	opts     Options
	logger   logger.Logger
	now      func() time.Time
}

// New creates a resolver. A nil renderer means no rendering capability.
func New(client *httpclient.Client, renderer render.Renderer, opts Options, log logger.Logger) *Resolver {
	if renderer == nil {
		renderer = render.NopRenderer{}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = pinterest.BaseURL
	}
	return &Resolver{
		client:   client,
		renderer: renderer,
		opts:     opts,
		logger:   logger.OrNop(log),
		now:      time.Now,
	}
}

// URLs returns the candidate list for query
func (r *Resolver) URLs(ctx context.Context, query string, limit int) []string {
	return r.Resolve(ctx, query, limit).URLs
}

// Resolve runs the stages in order and never fails: stage failures are
// recorded in the returned Resolution.
func (r *Resolver) Resolve(ctx context.Context, query string, limit int) *Resolution {
	res := &Resolution{
		Query:    query,
		Limit:    limit,
		URLs:     []string{},
		Source:   StageNone,
		Primary:  skipped(StagePrimary),
		Fallback: skipped(StageFallback),
	}
	if limit <= 0 {
		r.logger.DebugWithFields("non-positive limit, nothing to resolve", map[string]interface{}{
			"query": query,
			"limit": limit,
		})
		return res
	}

	log := r.logger.WithFields(map[string]interface{}{
		"query": query,
		"limit": limit,
	})

	res.Primary = r.primary(ctx, query, limit, log)
	if res.Primary.Found() {
		res.URLs = truncate(res.Primary.URLs, limit)
		res.Source = StagePrimary
		log.InfoWithFields("image URLs found on rendered page", map[string]interface{}{
			"count": len(res.URLs),
		})
		return res
	}

	res.Fallback = r.fallback(ctx, query, limit, log)
	if res.Fallback.Found() {
		res.URLs = truncate(res.Fallback.URLs, limit)
		res.Source = StageFallback
		log.InfoWithFields("image URLs found via search API", map[string]interface{}{
			"count": len(res.URLs),
		})
		return res
	}

	log.WarnWithFields("no image URLs found", map[string]interface{}{
		"primary":  string(res.Primary.Reason),
		"fallback": string(res.Fallback.Reason),
	})
	return res
}

// primary renders the search page and reads the embedded page state
func (r *Resolver) primary(ctx context.Context, query string, limit int, log logger.Logger) StageOutcome {
	out := StageOutcome{Stage: StagePrimary}
	pageURL := pinterest.SearchPageURL(r.opts.BaseURL, query)

	doc, err := r.renderer.Render(ctx, pageURL)
	if err != nil {
		out.Err = err
		out.Reason = ReasonRenderFailed
		if errors.Is(err, render.ErrUnavailable) {
			out.Reason = ReasonUnavailable
		}
		log.DebugWithFields("primary stage yielded nothing", map[string]interface{}{
			"reason": string(out.Reason),
			"error":  err.Error(),
		})
		return out
	}

	script := doc.Find("script#" + pinterest.PWSDataScriptID).First()
	data := strings.TrimSpace(script.Text())
	if script.Length() == 0 || data == "" {
		out.Reason = ReasonParseFailed
		out.Err = errs.ParseFailure("page state not found", nil)
		log.Debug("page state script missing from rendered page")
		return out
	}
	if !gjson.Valid(data) {
		out.Reason = ReasonParseFailed
		out.Err = errs.ParseFailure("page state is not valid JSON", nil)
		log.Debug("page state script holds invalid JSON")
		return out
	}

	out.URLs = pinImageURLs(data, limit)
	out.Reason = reasonFor(out.URLs)
	return out
}

// fallback queries the internal search resource
func (r *Resolver) fallback(ctx context.Context, query string, limit int, log logger.Logger) StageOutcome {
	out := StageOutcome{Stage: StageFallback}
	log.Info("falling back to search API")

	apiURL, err := pinterest.SearchResourceURL(r.opts.BaseURL, query, limit, r.now())
	if err != nil {
		out.Reason = ReasonParseFailed
		out.Err = err
		return out
	}

	if r.opts.APITimeout > 0 {
		ctx = httpclient.WithAttemptTimeout(ctx, r.opts.APITimeout)
	}

	resp, err := r.client.Get(ctx, apiURL)
	if err != nil {
		out.Reason = ReasonTransportFailed
		out.Err = err
		log.WarnWithFields("search API request failed", map[string]interface{}{
			"error": err.Error(),
		})
		return out
	}
	defer resp.Body.Close()

	log.InfoWithFields("search API responded", map[string]interface{}{
		"status": resp.StatusCode,
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		out.Reason = ReasonBadStatus
		out.Err = errs.UnexpectedStatus(resp.StatusCode)
		log.WarnWithFields("search API returned an error status", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return out
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		out.Reason = ReasonTransportFailed
		out.Err = errs.Transport(fmt.Errorf("reading search API response: %w", err))
		log.WarnWithFields("search API response truncated", map[string]interface{}{
			"error": err.Error(),
		})
		return out
	}
	if !gjson.ValidBytes(body) {
		out.Reason = ReasonParseFailed
		out.Err = errs.ParseFailure("search API response is not valid JSON", nil)
		log.WarnWithFields("search API response is not valid JSON", map[string]interface{}{
			"body_preview": preview(body),
		})
		return out
	}

	out.URLs = resultImageURLs(string(body), limit)
	out.Reason = reasonFor(out.URLs)
	return out
}

func reasonFor(urls []string) Reason {
	if len(urls) == 0 {
		return ReasonEmpty
	}
	return ReasonFound
}

func truncate(urls []string, limit int) []string {
	if len(urls) > limit {
		return urls[:limit]
	}
	return urls
}

func preview(body []byte) string {
	const limit = 200
	if len(body) <= limit {
		return string(body)
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
