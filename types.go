package main

import "github.com/aktagon/hourly-writer/store"

// ProcessingStatus represents the outcome status of a generation cycle
type ProcessingStatus string

const (
	StatusSuccess ProcessingStatus = "success"
	StatusSkipped ProcessingStatus = "skipped"
	StatusError   ProcessingStatus = "error"
)

// CycleResult tracks the outcome of one generation cycle
type CycleResult struct {
	Key      store.Key
	Status   ProcessingStatus
	JSONPath string
	MDPath   string
	Cycle    *store.Cycle
	Document string
}
