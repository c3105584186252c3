// processor.go
package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/aktagon/hourly-writer/store"
)

// promptData feeds the generation prompt template
type promptData struct {
	Date          string
	Hour          string
	CompactDate   string
	GeneratedAt   string
	ItemsPerCycle int
	ContentTypes  []ContentTypeSettings
	Topics        string
}

// ContentProcessor drives one generation cycle
type ContentProcessor struct {
	config    *Config
	generator Generator
	fetcher   *ContentFetcher
	store     *store.Store
	now       func() time.Time
	dryRun    bool
}

// NewContentProcessor creates a processor writing into st
func NewContentProcessor(config *Config, generator Generator, st *store.Store) *ContentProcessor {
	return &ContentProcessor{
		config:    config,
		generator: generator,
		fetcher:   NewContentFetcher(),
		store:     st,
		now:       time.Now,
	}
}

// SetClock replaces the wall clock
func (p *ContentProcessor) SetClock(now func() time.Time) {
	p.now = now
}

// SetDryRun makes RunCycle validate and render without touching the store
func (p *ContentProcessor) SetDryRun(dryRun bool) {
	p.dryRun = dryRun
}

// RunCycle generates, validates and stores the content of the current hour
func (p *ContentProcessor) RunCycle(ctx context.Context) (*CycleResult, error) {
	loc, err := p.config.Settings.Location()
	if err != nil {
		return nil, err
	}
	instant := p.now()
	key := store.KeyAt(instant, loc)
	generatedAt := store.FormatTimestamp(instant)
	result := &CycleResult{Key: key, Status: StatusError}

	log.Printf("Generating content for %s %s:00 (%s)", key.Date(), key.Hour, p.config.Settings.Timezone)

	var topics string
	if len(p.config.Settings.TopicSources) > 0 {
		log.Printf("  → Fetching topic sources...")
		topics = p.fetcher.FetchTopics(ctx, p.config.Settings.TopicSources)
		topics = limitContentTokens(topics, p.config.Settings.TopicMaxTokens)
	}

	log.Printf("  → Building prompt...")
	prompt, err := p.buildPrompt(key, generatedAt, topics)
	if err != nil {
		return result, fmt.Errorf("building prompt: %w", err)
	}
	debugLog("prompt:\n%s", prompt)

	text, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return result, fmt.Errorf("generating content: %w", err)
	}
	debugLog("completion (%d bytes)", len(text))

	log.Printf("  → Validating output...")
	cycle, err := ParseCycle(text)
	if err != nil {
		return result, err
	}
	if err := p.prepareCycle(cycle, key, generatedAt); err != nil {
		return result, err
	}

	document, err := p.renderDocument(cycle)
	if err != nil {
		return result, fmt.Errorf("rendering document: %w", err)
	}
	result.Cycle = cycle
	result.Document = document

	if p.dryRun {
		result.Status = StatusSkipped
		return result, nil
	}

	log.Printf("  → Saving to: %s", store.RecordRel(key))
	written, err := p.store.Write(key, cycle, document)
	if written != nil {
		result.JSONPath = written.JSONPath
		result.MDPath = written.MDPath
	}
	if err != nil {
		return result, fmt.Errorf("saving cycle: %w", err)
	}

	result.Status = StatusSuccess
	return result, nil
}

// prepareCycle stamps the cycle with the authoritative partition metadata,
// fills derivable fields and validates it
func (p *ContentProcessor) prepareCycle(cycle *store.Cycle, key store.Key, generatedAt string) error {
	settings := p.config.Settings

	if cycle.Meta.Date != "" && (cycle.Meta.Date != key.Date() || cycle.Meta.Hour != key.Hour) {
		debugLog("replacing generated meta %s_%s with %s", cycle.Meta.Date, cycle.Meta.Hour, key)
	}
	cycle.Meta = store.Meta{Date: key.Date(), Hour: key.Hour, GeneratedAt: generatedAt}

	for i := range cycle.Contents {
		item := &cycle.Contents[i]
		if ct, ok := settings.ContentType(item.Type); ok {
			if item.TypeCN == "" {
				item.TypeCN = ct.TypeCN
			}
			if item.Icon == "" {
				item.Icon = ct.Icon
			}
		}
		if item.ID == "" && item.Type != "" {
			item.ID = fmt.Sprintf("%s_%s_%s", item.Type, key.CompactDate(), key.Hour)
		}
		if item.WordCount <= 0 {
			item.WordCount = countWords(item.Content)
		}
		if item.Tags == nil {
			item.Tags = []string{}
		}
	}

	if err := cycle.Validate(key, settings.ItemsPerCycle, settings.AllowedTypes()); err != nil {
		return &ExtractError{Reason: ReasonSchema, Err: err}
	}
	return nil
}

// buildPrompt renders the generation prompt template
func (p *ContentProcessor) buildPrompt(key store.Key, generatedAt, topics string) (string, error) {
	text, err := p.config.GetPromptTemplate()
	if err != nil {
		return "", err
	}

	tmpl, err := template.New("prompt").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}

	data := promptData{
		Date:          key.Date(),
		Hour:          key.Hour,
		CompactDate:   key.CompactDate(),
		GeneratedAt:   generatedAt,
		ItemsPerCycle: p.config.Settings.ItemsPerCycle,
		ContentTypes:  p.config.Settings.RequestedTypes(),
		Topics:        topics,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}
	return buf.String(), nil
}

// renderDocument renders the markdown companion of a cycle
func (p *ContentProcessor) renderDocument(cycle *store.Cycle) (string, error) {
	text, err := p.config.GetDocumentTemplate()
	if err != nil {
		return "", err
	}
	return RenderDocument(text, cycle)
}

// RenderDocument renders cycle with the given markdown template
func RenderDocument(text string, cycle *store.Cycle) (string, error) {
	tmpl, err := template.New("document").Funcs(template.FuncMap{
		"tags": formatTags,
	}).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cycle); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

func formatTags(tags []string) string {
	quoted := make([]string, 0, len(tags))
	for _, t := range tags {
		quoted = append(quoted, "`"+t+"`")
	}
	return strings.Join(quoted, " ")
}

// countWords counts non-space characters, which is how Chinese copy is measured
func countWords(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// limitContentTokens limits content to approximately N tokens (using 4 chars ≈ 1 token)
func limitContentTokens(content string, maxTokens int) string {
	maxChars := maxTokens * 4 // Rough approximation: 4 chars ≈ 1 token
	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}
	return string(runes[:maxChars]) + "..."
}
