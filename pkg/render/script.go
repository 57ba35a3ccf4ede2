package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"

	errs "pinscraper/pkg/errors"
	"pinscraper/pkg/httpclient"
	"pinscraper/pkg/logger"
)

// maxPageBytes bounds how much of a page is parsed
const maxPageBytes = 16 << 20

// Options configures a ScriptRenderer
type Options struct {
	// Timeout bounds script execution for one page
	Timeout time.Duration
	// DataIslands are element ids whose content a page script may publish as
	// a global of the same name (window[id] = {...}). After the scripts run
	// such globals are serialized into <script id=... type="application/json">.
	DataIslands []string
}

// ScriptRenderer fetches a page through the shared client and executes its
// inline scripts in a goja VM against a minimal DOM shim.
type ScriptRenderer struct {
	client *httpclient.Client
	opts   Options
	logger logger.Logger
}

// NewScriptRenderer creates a renderer backed by client
func NewScriptRenderer(client *httpclient.Client, opts Options, log logger.Logger) *ScriptRenderer {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &ScriptRenderer{
		client: client,
		opts:   opts,
		logger: logger.OrNop(log),
	}
}

// Render fetches pageURL, parses it and runs its inline scripts. The page is
// fetched once with the session headers; a blocked page falls through to the
// next stage instead of waiting out the transport backoff.
func (r *ScriptRenderer) Render(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := r.client.Get(httpclient.WithoutRetries(ctx), pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.UnexpectedStatus(resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, errs.ParseFailure("failed to parse page", err)
	}

	if err := r.Execute(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Execute runs the inline scripts of doc in document order. A script that
// throws is logged and skipped; exceeding the timeout aborts the run.
func (r *ScriptRenderer) Execute(ctx context.Context, doc *goquery.Document) error {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	vm := goja.New()
	if err := installGlobals(vm, doc); err != nil {
		return fmt.Errorf("failed to prepare script runtime: %w", err)
	}

	scripts := inlineScripts(doc)

	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		defer func() {
			if rec := recover(); rec != nil {
				runErr = fmt.Errorf("script panic: %v", rec)
			}
		}()
		for i, src := range scripts {
			_, err := vm.RunScript(fmt.Sprintf("inline-%d.js", i), src)
			if err == nil {
				continue
			}
			var interrupted *goja.InterruptedError
			if errors.As(err, &interrupted) {
				runErr = err
				return
			}
			r.logger.DebugWithFields("page script failed", map[string]interface{}{
				"script": i,
				"error":  err.Error(),
			})
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		vm.Interrupt("timeout")
		<-done
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}

	if runErr != nil {
		return runErr
	}

	r.materializeIslands(vm, doc)
	r.logger.DebugWithFields("page scripts executed", map[string]interface{}{
		"scripts": len(scripts),
	})
	return nil
}

// materializeIslands writes published globals into their data elements
// unless the page already carried content for them.
func (r *ScriptRenderer) materializeIslands(vm *goja.Runtime, doc *goquery.Document) {
	if len(r.opts.DataIslands) == 0 {
		return
	}
	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return
	}

	for _, id := range r.opts.DataIslands {
		sel := findByID(doc, id)
		if sel.Length() > 0 && strings.TrimSpace(sel.Text()) != "" {
			continue
		}

		v := vm.GlobalObject().Get(id)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			continue
		}

		out, err := stringify(goja.Undefined(), v)
		if err != nil || goja.IsUndefined(out) {
			r.logger.DebugWithFields("failed to serialize data island", map[string]interface{}{
				"id": id,
			})
			continue
		}

		if sel.Length() > 0 {
			setRawText(sel, out.String())
			continue
		}
		doc.Find("body").AppendNodes(newDataScript(id, out.String()))
	}
}

// inlineScripts returns the executable inline script bodies in document order
func inlineScripts(doc *goquery.Document) []string {
	var scripts []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("src"); ok {
			return
		}
		if !isClassicScript(s.AttrOr("type", "")) {
			return
		}
		if src := s.Text(); strings.TrimSpace(src) != "" {
			scripts = append(scripts, src)
		}
	})
	return scripts
}

func isClassicScript(typ string) bool {
	if typ == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(typ)
	if err != nil {
		return false
	}
	switch mt {
	case "text/javascript", "application/javascript", "application/ecmascript", "text/ecmascript":
		return true
	}
	return false
}
