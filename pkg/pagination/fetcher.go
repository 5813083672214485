// Package pagination provides parallel fetching of paginated Doclane
// list endpoints.
package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/doclane/doclane-go/pkg/client"
	"github.com/doclane/doclane-go/pkg/logging"
)

// Config holds fetcher configuration.
type Config struct {
	// MaxConcurrency bounds parallel page requests.
	MaxConcurrency int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{MaxConcurrency: 5}
}

// envelope is the platform's list-page wire shape.
type envelope struct {
	Items      []json.RawMessage `json:"items"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
}

// Fetcher fetches every page of a list endpoint through the client's
// request pipeline, so each page request gets the full interceptor
// treatment (auth, retry, cache).
type Fetcher struct {
	client *client.Client
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a fetcher over the given client.
func NewFetcher(c *client.Client, cfg Config) *Fetcher {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	return &Fetcher{
		client: c,
		config: cfg,
		logger: logging.NewLogger("pagination"),
	}
}

// FetchAll retrieves every item of a paginated list endpoint. The first
// page is fetched alone to learn the total page count; remaining pages
// are fetched in parallel and assembled in page order. Any page failure
// cancels the rest and surfaces the typed error.
func (f *Fetcher) FetchAll(ctx context.Context, ep client.Endpoint) ([]json.RawMessage, error) {
	first, err := f.fetchPage(ctx, ep, 1)
	if err != nil {
		return nil, err
	}
	if first.TotalPages <= 1 {
		return first.Items, nil
	}

	f.logger.Debug().
		Str("endpoint", ep.Path).
		Int("total_pages", first.TotalPages).
		Msg("Fetching remaining pages")

	pages := make([][]json.RawMessage, first.TotalPages)
	pages[0] = first.Items

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.MaxConcurrency)

	for n := 2; n <= first.TotalPages; n++ {
		g.Go(func() error {
			env, err := f.fetchPage(gctx, ep, n)
			if err != nil {
				return fmt.Errorf("page %d: %w", n, err)
			}
			pages[n-1] = env.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var items []json.RawMessage
	for _, page := range pages {
		items = append(items, page...)
	}
	return items, nil
}

// fetchPage requests one page, leaving the caller's endpoint untouched.
func (f *Fetcher) fetchPage(ctx context.Context, ep client.Endpoint, page int) (envelope, error) {
	query := url.Values{}
	for k, v := range ep.Query {
		query[k] = v
	}
	query.Set("page", strconv.Itoa(page))
	ep.Query = query

	return client.Request[envelope](ctx, f.client, ep)
}
