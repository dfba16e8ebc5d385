package search

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/moolen/bonvoyage/internal/logging"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is DuckDuckGo's JavaScript-free results page.
	DefaultBaseURL = "https://html.duckduckgo.com/html/"

	userAgent = "Mozilla/5.0 (compatible; bonvoyage/1.0; +https://github.com/moolen/bonvoyage)"

	// maxBodyBytes caps how much of a results page is read.
	maxBodyBytes = 2 << 20
)

// DuckDuckGoConfig configures a DuckDuckGo client.
type DuckDuckGoConfig struct {
	BaseURL string
	Timeout time.Duration

	// RatePerSecond limits outbound queries. Zero disables the limiter.
	RatePerSecond float64
}

// DuckDuckGo queries the DuckDuckGo HTML endpoint and scrapes the result list.
type DuckDuckGo struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logging.Logger
}

// NewDuckDuckGo creates a DuckDuckGo client.
func NewDuckDuckGo(cfg DuckDuckGoConfig) *DuckDuckGo {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 2)
	}

	return &DuckDuckGo{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		limiter: limiter,
		logger:  logging.GetLogger("search.duckduckgo"),
	}
}

// Search implements Searcher.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	form := url.Values{}
	form.Set("q", query)
	reqURL := d.baseURL + "?" + form.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search request failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	results, err := parseResults(io.LimitReader(resp.Body, maxBodyBytes), maxResults)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	d.logger.Debug("Query %q returned %d results in %v", query, len(results), time.Since(start))
	return results, nil
}

// parseResults extracts hits from a DuckDuckGo HTML page. Each hit is a
// div.result holding an a.result__a title link and a .result__snippet body.
// Sponsored entries (result--ad) are skipped.
func parseResults(r io.Reader, maxResults int) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []Result
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if maxResults > 0 && len(results) >= maxResults {
			return false
		}
		if n.Type == html.ElementNode && hasClass(n, "result") && !hasClass(n, "result--ad") {
			if res, ok := extractResult(n); ok {
				results = append(results, res)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)

	return results, nil
}

func extractResult(n *html.Node) (Result, bool) {
	var res Result
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a") && res.Title == "":
				res.Title = collapseSpace(textContent(n))
				res.URL = resolveRedirect(attr(n, "href"))
				return
			case hasClass(n, "result__snippet") && res.Snippet == "":
				res.Snippet = collapseSpace(textContent(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return res, res.Title != ""
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveRedirect unwraps DuckDuckGo's "/l/?uddg=<target>" links.
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
