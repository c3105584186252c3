package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 18, 6, 30, 0, 123456789, time.UTC)

func TestRebuildIndexScenario(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2025", "01", "18", "content_2025-01-18_09.json"), "{}")
	writeFile(t, filepath.Join(root, "2025", "01", "18", "content_2025-01-18_14.json"), "{}")

	s, err := New(root)
	require.NoError(t, err)

	idx, skipped, err := s.RebuildIndex(fixedNow)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	assert.Equal(t, "2025-01-18T06:30:00.123Z", idx.LastUpdated)
	assert.Equal(t, 2, idx.TotalCount)
	assert.Equal(t, []Entry{
		{Date: "2025-01-18", Hour: "14", FileJSON: "2025/01/18/content_2025-01-18_14.json", FileMD: "2025/01/18/content_2025-01-18_14.md"},
		{Date: "2025-01-18", Hour: "09", FileJSON: "2025/01/18/content_2025-01-18_09.json", FileMD: "2025/01/18/content_2025-01-18_09.md"},
	}, idx.Entries)

	onDisk, err := s.ReadIndex()
	require.NoError(t, err)
	assert.Equal(t, idx, onDisk)
}

func TestRebuildIndexEmptyStore(t *testing.T) {
	root := filepath.Join(t.TempDir(), "content")
	s, err := New(root)
	require.NoError(t, err)

	idx, _, err := s.RebuildIndex(fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.TotalCount)
	assert.NotNil(t, idx.Entries)
	assert.Empty(t, idx.Entries)

	raw, err := os.ReadFile(filepath.Join(root, IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"entries": []`)
}

func TestRebuildIndexIdempotent(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"2024/12/31/content_2024-12-31_23.json",
		"2025/01/01/content_2025-01-01_00.json",
		"2025/01/01/content_2025-01-01_13.json",
		"2025/02/10/content_2025-02-10_08.json",
	} {
		writeFile(t, filepath.Join(root, filepath.FromSlash(name)), "{}")
	}
	s, err := New(root)
	require.NoError(t, err)

	first, _, err := s.RebuildIndex(fixedNow)
	require.NoError(t, err)
	second, _, err := s.RebuildIndex(fixedNow.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, first.TotalCount, second.TotalCount)
	assert.NotEqual(t, first.LastUpdated, second.LastUpdated)
}

func TestBuildIndexOrdering(t *testing.T) {
	files := []RecordFile{
		{Path: "x/content_2025-01-01_13.json", Rel: "2025/01/01/content_2025-01-01_13.json"},
		{Path: "x/content_2024-12-31_23.json", Rel: "2024/12/31/content_2024-12-31_23.json"},
		{Path: "x/content_2025-02-10_08.json", Rel: "2025/02/10/content_2025-02-10_08.json"},
		{Path: "x/content_2025-01-01_00.json", Rel: "2025/01/01/content_2025-01-01_00.json"},
		{Path: "x/content_2025-01-01_09.json", Rel: "2025/01/01/content_2025-01-01_09.json"},
	}
	idx, _ := BuildIndex(files, fixedNow)
	require.Len(t, idx.Entries, len(files))

	for i := 1; i < len(idx.Entries); i++ {
		a, b := idx.Entries[i-1], idx.Entries[i]
		assert.True(t, a.Date+a.Hour >= b.Date+b.Hour, "%v before %v", a, b)
	}
	assert.Equal(t, "2025-02-10", idx.Entries[0].Date)
	assert.Equal(t, "2024-12-31", idx.Entries[len(idx.Entries)-1].Date)
}

func TestBuildIndexSkipsMalformedNames(t *testing.T) {
	files := []RecordFile{
		{Path: "a/content_2025-01-18_09.json", Rel: "2025/01/18/content_2025-01-18_09.json"},
		{Path: "a/content_draft.json", Rel: "misc/content_draft.json"},
		{Path: "a/content_2025-13-01_00.json", Rel: "2025/13/01/content_2025-13-01_00.json"},
	}
	idx, skipped := BuildIndex(files, fixedNow)

	assert.Equal(t, 1, idx.TotalCount)
	require.Len(t, skipped, 2)
	assert.Equal(t, "2025/13/01/content_2025-13-01_00.json", skipped[0].Path)
	assert.Equal(t, "misc/content_draft.json", skipped[1].Path)
}

func TestBuildIndexMissingMarkdownCompanion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2025", "01", "18", "content_2025-01-18_09.json"), "{}")
	s, err := New(root)
	require.NoError(t, err)

	idx, _, err := s.RebuildIndex(fixedNow)
	require.NoError(t, err)
	require.Len(t, idx.Entries, 1)
	assert.Equal(t, "2025/01/18/content_2025-01-18_09.md", idx.Entries[0].FileMD)

	_, err = os.Stat(filepath.Join(root, "2025", "01", "18", "content_2025-01-18_09.md"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildIndexDuplicateKeys(t *testing.T) {
	canonical := RecordFile{Path: "c", Rel: "2025/01/18/content_2025-01-18_09.json"}
	stray := RecordFile{Path: "s", Rel: "2024/content_2025-01-18_09.json"}
	other := RecordFile{Path: "o", Rel: "backup/content_2025-01-18_09.json"}

	for _, order := range [][]RecordFile{
		{canonical, stray, other},
		{other, stray, canonical},
		{stray, canonical, other},
	} {
		idx, skipped := BuildIndex(order, fixedNow)
		require.Len(t, idx.Entries, 1)
		assert.Equal(t, canonical.Rel, idx.Entries[0].FileJSON)
		assert.Len(t, skipped, 2)
	}

	idx, _ := BuildIndex([]RecordFile{other, stray}, fixedNow)
	require.Len(t, idx.Entries, 1)
	assert.Equal(t, stray.Rel, idx.Entries[0].FileJSON)
}
