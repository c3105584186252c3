package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/mmcdole/gofeed"
)

// ContentResult represents the result of fetching a topic source
type ContentResult struct {
	Source string
	Text   string // Markdown text content
}

// ContentFetcher handles fetching and processing content from URLs
type ContentFetcher struct {
	handlers []ContentHandler
	client   *http.Client
}

// NewContentFetcher creates a new content fetcher with default handlers
func NewContentFetcher() *ContentFetcher {
	f := &ContentFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
	}

	// Register handlers (most specific first)
	f.AddHandler(&FeedHandler{parser: gofeed.NewParser(), maxItems: defaultFeedItems})
	f.AddHandler(&HTMLHandler{converter: md.NewConverter("", true, nil)}) // fallback

	return f
}

// AddHandler adds a content handler to the chain
func (f *ContentFetcher) AddHandler(handler ContentHandler) {
	f.handlers = append(f.handlers, handler)
}

// FetchContent fetches and processes content using handler chain
func (f *ContentFetcher) FetchContent(ctx context.Context, url string) (*ContentResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	// Find handler based on URL + response headers
	for _, handler := range f.handlers {
		if handler.CanHandle(url, resp) {
			result, err := handler.Handle(url, resp)
			if err != nil {
				return nil, err
			}
			result.Source = url
			return result, nil
		}
	}

	return nil, fmt.Errorf("no handler found for %s", url)
}

// FetchTopics fetches every source and joins the results into one
// markdown section. Failing sources are logged and skipped.
func (f *ContentFetcher) FetchTopics(ctx context.Context, urls []string) string {
	var sections []string
	for i, url := range urls {
		log.Printf("[%d/%d] Fetching topics: %s", i+1, len(urls), url)
		result, err := f.FetchContent(ctx, url)
		if err != nil {
			log.Printf("✗ Skipping topic source %s: %v", url, err)
			continue
		}
		text := strings.TrimSpace(result.Text)
		if text == "" {
			debugLog("topic source %s returned no text", url)
			continue
		}
		sections = append(sections, fmt.Sprintf("### %s\n\n%s", result.Source, text))
	}
	return strings.Join(sections, "\n\n")
}
