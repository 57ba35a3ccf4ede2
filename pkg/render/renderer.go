package render

import (
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrUnavailable reports that no rendering capability is configured
	ErrUnavailable = errors.New("rendering capability unavailable")

	// ErrTimeout reports that page scripts did not finish in time
	ErrTimeout = errors.New("render timeout")
)

// Renderer fetches a page and returns its document after embedded scripts
// have had a chance to populate it.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// NopRenderer is the absent capability: it never fetches anything.
type NopRenderer struct{}

// Render always returns ErrUnavailable
func (NopRenderer) Render(ctx context.Context, pageURL string) (*goquery.Document, error) {
	return nil, ErrUnavailable
}
