package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

const (
	// boostTerms are appended to every query to bias the engine toward
	// live coverage of current events.
	boostTerms = "latest results live updates"

	// dateRestrict limits results to the last hour.
	dateRestrict = "h1"

	maxResults = 5

	itemSeparator = "\n---\n"

	timestampLayout = "2006-01-02 15:04:05"
)

// Item is one search hit, consumed within a single turn augmentation and
// never persisted.
type Item struct {
	Title       string
	Snippet     string
	Link        string
	RetrievedAt time.Time
}

// Config contains Google Custom Search configuration
type Config struct {
	APIKey  string
	CSEID   string
	Timeout time.Duration
}

// GoogleSearcher queries the Google Custom Search API.
type GoogleSearcher struct {
	config  Config
	service *customsearch.Service
	logger  *slog.Logger
}

// NewGoogleSearcher builds a searcher against the Custom Search API.
func NewGoogleSearcher(ctx context.Context, cfg Config, logger *slog.Logger) (*GoogleSearcher, error) {
	if cfg.APIKey == "" || cfg.CSEID == "" {
		return nil, fmt.Errorf("search requires both an API key and a custom search engine ID")
	}

	service, err := customsearch.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}

	return &GoogleSearcher{
		config:  cfg,
		service: service,
		logger:  logger,
	}, nil
}

// Search issues a recency-restricted query and returns a formatted text
// block. The second return value is false when the engine returned nothing
// or the call failed; a search problem must never abort the pipeline.
func (g *GoogleSearcher) Search(ctx context.Context, query string) (string, bool) {
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	enhanced := fmt.Sprintf("%s %s", query, boostTerms)

	resp, err := g.service.Cse.List().
		Q(enhanced).
		Cx(g.config.CSEID).
		Num(maxResults).
		DateRestrict(dateRestrict).
		Sort("date").
		Context(ctx).
		Do()
	if err != nil {
		g.logger.Warn("Google search failed, continuing without context",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return "", false
	}

	if len(resp.Items) == 0 {
		return "", false
	}

	now := time.Now()
	items := make([]Item, 0, len(resp.Items))
	for _, r := range resp.Items {
		items = append(items, Item{
			Title:       r.Title,
			Snippet:     r.Snippet,
			Link:        r.Link,
			RetrievedAt: now,
		})
	}

	return FormatItems(items), true
}

// FormatItems renders search hits into the compact block injected as model
// context. The Details line only appears when the snippet carries at least
// one digit, a cheap filter for snippets that contain concrete numbers.
func FormatItems(items []Item) string {
	formatted := make([]string, 0, len(items))

	for _, item := range items {
		var b strings.Builder
		fmt.Fprintf(&b, "Source: %s\n", item.Title)
		if containsDigit(item.Snippet) {
			fmt.Fprintf(&b, "Details: %s\n", item.Snippet)
		}
		fmt.Fprintf(&b, "Last Updated: %s\n", item.RetrievedAt.Format(timestampLayout))
		fmt.Fprintf(&b, "Direct Link: %s\n", item.Link)
		formatted = append(formatted, b.String())
	}

	return strings.Join(formatted, itemSeparator)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
