package main

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/aktagon/hourly-writer/store"
)

// ExtractReason enumerates why generation output was rejected
type ExtractReason string

const (
	ReasonNoFencedBlock ExtractReason = "no fenced block"
	ReasonInvalidJSON   ExtractReason = "invalid json"
	ReasonSchema        ExtractReason = "schema violation"
)

// ExtractError reports generation output that does not yield a valid cycle
type ExtractError struct {
	Reason ExtractReason
	Err    error
}

func (e *ExtractError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extracting cycle: %s", e.Reason)
	}
	return fmt.Sprintf("extracting cycle: %s: %v", e.Reason, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

var (
	fencedJSONBlock = regexp.MustCompile("(?s)```json[ \\t]*\\r?\\n(.*?)\\r?\\n[ \\t]*```")
	fencedAnyBlock  = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \\t]*\\r?\\n(.*?)\\r?\\n[ \\t]*```")
)

// extractFencedBlock returns the first ```json block, falling back to the
// first fenced block of any language
func extractFencedBlock(text string) (string, bool) {
	if m := fencedJSONBlock.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := fencedAnyBlock.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// ParseCycle extracts and decodes the cycle record from completion text
func ParseCycle(text string) (*store.Cycle, error) {
	block, ok := extractFencedBlock(text)
	if !ok {
		return nil, &ExtractError{Reason: ReasonNoFencedBlock}
	}
	if strings.TrimSpace(block) == "" {
		return nil, &ExtractError{Reason: ReasonInvalidJSON, Err: fmt.Errorf("fenced block is empty")}
	}

	var cycle store.Cycle
	if err := json.Unmarshal([]byte(block), &cycle); err != nil {
		return nil, &ExtractError{Reason: ReasonInvalidJSON, Err: err}
	}
	return &cycle, nil
}
