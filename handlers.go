package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/mmcdole/gofeed"
)

const defaultFeedItems = 15

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// ContentHandler processes URLs based on response inspection
type ContentHandler interface {
	CanHandle(url string, resp *http.Response) bool
	Handle(url string, resp *http.Response) (*ContentResult, error)
}

var debugEnabled bool

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// FeedHandler handles RSS and Atom feeds
type FeedHandler struct {
	parser   *gofeed.Parser
	maxItems int
}

func (h *FeedHandler) CanHandle(url string, resp *http.Response) bool {
	lower := strings.ToLower(url)
	for _, suffix := range []string{".xml", ".rss", ".atom", "/feed", "/rss"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	return strings.Contains(contentType, "rss") ||
		strings.Contains(contentType, "atom") ||
		strings.Contains(contentType, "/xml")
}

func (h *FeedHandler) Handle(url string, resp *http.Response) (*ContentResult, error) {
	feed, err := h.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", url, err)
	}
	debugLog("feed %s: %d items", url, len(feed.Items))

	var sb strings.Builder
	for i, item := range feed.Items {
		if h.maxItems > 0 && i >= h.maxItems {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(title)
		if desc := strings.TrimSpace(item.Description); desc != "" {
			sb.WriteString(": ")
			sb.WriteString(desc)
		}
		sb.WriteString("\n")
	}

	return &ContentResult{Text: sb.String()}, nil
}

// HTMLHandler handles regular HTML content (fallback)
type HTMLHandler struct {
	converter *md.Converter
}

func (h *HTMLHandler) CanHandle(url string, resp *http.Response) bool {
	return true // Always handles as fallback
}

func (h *HTMLHandler) Handle(url string, resp *http.Response) (*ContentResult, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	markdown, err := h.converter.ConvertString(string(body))
	if err != nil {
		return nil, fmt.Errorf("converting HTML to markdown: %w", err)
	}

	return &ContentResult{Text: markdown}, nil
}
