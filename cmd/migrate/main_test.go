package main

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(date, hour string) string {
	return `{"meta": {"date": "` + date + `", "hour": "` + hour + `"}, "contents": []}`
}

func seed(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func TestCheck(t *testing.T) {
	root := t.TempDir()
	seed(t, root, map[string]string{
		"index.json":                                   "{}",
		"2025/01/18/content_2025-01-18_14.json":        record("2025-01-18", "14"),
		"2025/01/18/content_2025-01-18_14.md":          "# ok",
		"2025/01/18/content_2025-01-18_15.json":        record("2025-01-18", "15"),
		"2025/01/18/content_2025-01-18_16.md":          "# orphan",
		"2025/01/18/content_2025-13-01_00.json":        record("2025-13-01", "00"),
		"2025/01/19/content_2025-01-18_17.json":        record("2025-01-18", "17"),
		"2025/01/19/content_2025-01-18_17.md":          "# elsewhere",
		"2025/01/18/.content_2025-01-18_20.json.1.tmp": "partial",
		"2025/01/18/content_2025-01-18_18.json":        "not json",
		"2025/01/18/content_2025-01-18_18.md":          "# broken",
		"2025/01/18/content_2025-01-18_19.json":        record("2025-01-18", "20"),
		"2025/01/18/content_2025-01-18_19.md":          "# mismatch",
	})

	findings, err := check(root)
	require.NoError(t, err)

	var got []string
	for _, f := range findings {
		got = append(got, f.Kind+" "+f.Path)
	}
	assert.ElementsMatch(t, []string{
		"temp-file 2025/01/18/.content_2025-01-18_20.json.1.tmp",
		"missing-md 2025/01/18/content_2025-01-18_15.json",
		"orphan-md 2025/01/18/content_2025-01-18_16.md",
		"unreadable 2025/01/18/content_2025-01-18_18.json",
		"meta-mismatch 2025/01/18/content_2025-01-18_19.json",
		"malformed 2025/01/18/content_2025-13-01_00.json",
		"misplaced 2025/01/19/content_2025-01-18_17.json",
		"misplaced 2025/01/19/content_2025-01-18_17.md",
	}, got)

	assert.True(t, sort.SliceIsSorted(findings, func(i, j int) bool {
		return findings[i].Path < findings[j].Path
	}))

	assert.Equal(t, []string{
		"2025/01/18/.content_2025-01-18_20.json.1.tmp",
		"2025/01/18/content_2025-13-01_00.json",
	}, strays(findings))
}

func TestCheckCleanTree(t *testing.T) {
	root := t.TempDir()
	seed(t, root, map[string]string{
		"2025/01/18/content_2025-01-18_14.json": record("2025-01-18", "14"),
		"2025/01/18/content_2025-01-18_14.md":   "# ok",
	})

	findings, err := check(root)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckMissingDirectory(t *testing.T) {
	findings, err := check(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestConfirmDelete(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"\n", false},
		{"n\n", false},
		{"maybe\ny\n", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			reader := bufio.NewReader(strings.NewReader(tt.input))
			assert.Equal(t, tt.expected, confirmDelete(reader, "content_x.json"))
		})
	}
}

func TestCheckSymlinkedRoot(t *testing.T) {
	dir := t.TempDir()
	volume := filepath.Join(dir, "volume")
	seed(t, volume, map[string]string{
		"2025/01/18/content_2025-01-18_15.json": record("2025-01-18", "15"),
	})
	root := filepath.Join(dir, "content")
	if err := os.Symlink(volume, root); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	findings, err := check(root)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, Finding{Kind: kindMissingMD, Path: "2025/01/18/content_2025-01-18_15.json", Note: "partial cycle"}, findings[0])
}
