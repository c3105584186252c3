package store

import (
	"sort"
	"strings"
	"time"
)

// TimestampLayout formats rebuild and generation timestamps (UTC, milliseconds).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Entry points at one stored cycle.
type Entry struct {
	Date     string `json:"date"`
	Hour     string `json:"hour"`
	FileJSON string `json:"file_json"`
	FileMD   string `json:"file_md"`
}

// Index is the aggregate manifest of all stored cycles, newest first.
type Index struct {
	LastUpdated string  `json:"last_updated"`
	TotalCount  int     `json:"total_count"`
	Entries     []Entry `json:"entries"`
}

// Skipped describes a discovered file left out of the index.
type Skipped struct {
	Path   string
	Reason string
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// BuildIndex derives the index from discovered record files. Files whose
// names carry no valid partition key are skipped and reported. When two
// files share a key the canonically placed one wins, else the smallest path.
func BuildIndex(files []RecordFile, now time.Time) (*Index, []Skipped) {
	var skipped []Skipped
	byKey := make(map[Key]Entry, len(files))

	for _, f := range files {
		key, err := ParseKey(f.Name())
		if err != nil {
			skipped = append(skipped, Skipped{Path: f.Rel, Reason: err.Error()})
			continue
		}
		entry := Entry{
			Date:     key.Date(),
			Hour:     key.Hour,
			FileJSON: f.Rel,
			FileMD:   strings.TrimSuffix(f.Rel, ".json") + ".md",
		}

		prev, ok := byKey[key]
		if !ok {
			byKey[key] = entry
			continue
		}
		keep, drop := pickEntry(key, prev, entry)
		byKey[key] = keep
		skipped = append(skipped, Skipped{Path: drop.FileJSON, Reason: "duplicate of " + keep.FileJSON})
	}

	keys := make([]Key, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[j].Less(keys[i]) })

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, byKey[k])
	}
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })

	return &Index{
		LastUpdated: FormatTimestamp(now),
		TotalCount:  len(entries),
		Entries:     entries,
	}, skipped
}

func pickEntry(key Key, a, b Entry) (keep, drop Entry) {
	canonical := RecordRel(key)
	switch {
	case a.FileJSON == canonical:
		return a, b
	case b.FileJSON == canonical:
		return b, a
	case b.FileJSON < a.FileJSON:
		return b, a
	default:
		return a, b
	}
}

// RebuildIndex scans the store, builds a fresh index stamped with now and
// writes it. The index is written only after it is fully built.
func (s *Store) RebuildIndex(now time.Time) (*Index, []Skipped, error) {
	files, err := s.ListAllRecordFiles()
	if err != nil {
		return nil, nil, err
	}
	idx, skipped := BuildIndex(files, now)
	if err := s.WriteIndex(idx); err != nil {
		return nil, skipped, err
	}
	return idx, skipped, nil
}
