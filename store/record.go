package store

import (
	"fmt"
	"strings"
)

// ContentType is one of the fixed content categories produced per cycle.
type ContentType string

const (
	TypeEconomy     ContentType = "economy"
	TypeInspiration ContentType = "inspiration"
	TypeViral       ContentType = "viral"
)

// Meta carries the cycle metadata of a stored record file.
type Meta struct {
	Date        string `json:"date"`
	Hour        string `json:"hour"`
	GeneratedAt string `json:"generated_at"`
}

// Item is one generated piece of content.
type Item struct {
	ID          string      `json:"id"`
	Type        ContentType `json:"type"`
	TypeCN      string      `json:"type_cn"`
	Icon        string      `json:"icon"`
	Title       string      `json:"title"`
	Summary     string      `json:"summary"`
	Content     string      `json:"content"`
	WordCount   int         `json:"word_count"`
	Tags        []string    `json:"tags"`
	SourceTopic string      `json:"source_topic"`
}

// Cycle is the structured record written once per generation cycle.
type Cycle struct {
	Meta     Meta   `json:"meta"`
	Contents []Item `json:"contents"`
}

// Validate checks that the cycle belongs to key and holds exactly n items
// with distinct types drawn from allowed. An empty allowed list accepts any
// non-empty type.
func (c *Cycle) Validate(key Key, n int, allowed []ContentType) error {
	if c.Meta.Date != key.Date() || c.Meta.Hour != key.Hour {
		return fmt.Errorf("meta %s_%s does not match partition %s", c.Meta.Date, c.Meta.Hour, key)
	}
	if len(c.Contents) != n {
		return fmt.Errorf("expected %d contents, got %d", n, len(c.Contents))
	}

	known := make(map[ContentType]bool, len(allowed))
	for _, t := range allowed {
		known[t] = true
	}

	seenTypes := make(map[ContentType]bool, n)
	seenIDs := make(map[string]bool, n)
	for i, item := range c.Contents {
		if item.Type == "" {
			return fmt.Errorf("content %d: type is required", i)
		}
		if len(known) > 0 && !known[item.Type] {
			return fmt.Errorf("content %d: unknown type %q", i, item.Type)
		}
		if seenTypes[item.Type] {
			return fmt.Errorf("content %d: duplicate type %q", i, item.Type)
		}
		seenTypes[item.Type] = true

		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("content %d: id is required", i)
		}
		if seenIDs[item.ID] {
			return fmt.Errorf("content %d: duplicate id %q", i, item.ID)
		}
		seenIDs[item.ID] = true

		if strings.TrimSpace(item.Title) == "" {
			return fmt.Errorf("content %d (%s): title is required", i, item.Type)
		}
		if strings.TrimSpace(item.Content) == "" {
			return fmt.Errorf("content %d (%s): content is required", i, item.Type)
		}
	}
	return nil
}
