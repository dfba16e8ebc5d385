package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/moolen/bonvoyage/internal/logging"
	"github.com/moolen/bonvoyage/internal/metrics"
)

// Defaults for ToolConfig.
const (
	DefaultMaxResults   = 3
	DefaultSnippetLimit = 200
)

// Fallback texts handed to the model instead of an error.
const (
	noResultsFormat   = "No search results found for '%s'. Please use your general knowledge to provide information about this topic."
	unavailableFormat = "Search unavailable. Please provide information about '%s' based on your training data."
)

// NoResultsText is returned when a query matched nothing.
func NoResultsText(query string) string {
	return fmt.Sprintf(noResultsFormat, query)
}

// UnavailableText is returned when the search backend failed.
func UnavailableText(query string) string {
	return fmt.Sprintf(unavailableFormat, query)
}

// ToolConfig configures a Tool.
type ToolConfig struct {
	MaxResults int

	// SnippetLimit truncates each result body to this many characters.
	SnippetLimit int

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Tool is the boundary between agents and a Searcher. Run never fails: backend
// errors and empty result sets become fallback text that tells the model to use
// its own knowledge.
type Tool struct {
	searcher     Searcher
	maxResults   int
	snippetLimit int
	metrics      *metrics.Metrics
	logger       *logging.Logger
}

// NewTool wraps a Searcher.
func NewTool(searcher Searcher, cfg ToolConfig) *Tool {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.SnippetLimit <= 0 {
		cfg.SnippetLimit = DefaultSnippetLimit
	}
	return &Tool{
		searcher:     searcher,
		maxResults:   cfg.MaxResults,
		snippetLimit: cfg.SnippetLimit,
		metrics:      cfg.Metrics,
		logger:       logging.GetLogger("search.tool"),
	}
}

// Run searches for query and formats the hits for a model.
func (t *Tool) Run(ctx context.Context, query string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Search for %q panicked: %v", query, r)
			t.metrics.ObserveSearch(metrics.SearchFallback)
			out = UnavailableText(query)
		}
	}()

	results, err := t.searcher.Search(ctx, query, t.maxResults)
	if err != nil {
		t.logger.WarnWithFields("Search unavailable, using fallback text",
			logging.Field("query", query),
			logging.Field("error", err.Error()))
		t.metrics.ObserveSearch(metrics.SearchFallback)
		return UnavailableText(query)
	}
	if len(results) == 0 {
		t.logger.Debug("No results for %q", query)
		t.metrics.ObserveSearch(metrics.SearchEmpty)
		return NoResultsText(query)
	}
	if len(results) > t.maxResults {
		results = results[:t.maxResults]
	}

	t.metrics.ObserveSearch(metrics.SearchOK)
	return t.Format(results)
}

// Format renders results as numbered entries with truncated snippets.
func (t *Tool) Format(results []Result) string {
	entries := make([]string, 0, len(results))
	for i, r := range results {
		entries = append(entries, fmt.Sprintf("%d. %s\n%s...\n", i+1, r.Title, truncate(r.Snippet, t.snippetLimit)))
	}
	return strings.Join(entries, "\n")
}

// truncate cuts s to at most limit characters.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
