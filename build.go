package main

import (
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// BuildStats summarizes one build
type BuildStats struct {
	SiteFiles    int
	ContentFiles int
	Excluded     int
}

// Builder stages the site and content tree into the dist directory
type Builder struct {
	contentDir string
	distDir    string
	siteFiles  []string
	excludes   []glob.Glob
}

// NewBuilder compiles the exclusion patterns of settings
func NewBuilder(settings *Settings) (*Builder, error) {
	dist := filepath.Clean(settings.DistDirectory)
	switch dist {
	case ".", "/", string(filepath.Separator):
		return nil, fmt.Errorf("refusing to use %q as dist directory", settings.DistDirectory)
	}
	overlap, err := overlaps(dist, settings.ContentDirectory)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, fmt.Errorf("dist directory %q and content directory %q must not contain each other",
			settings.DistDirectory, settings.ContentDirectory)
	}

	excludes := make([]glob.Glob, 0, len(settings.Build.Exclude))
	for _, pattern := range settings.Build.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling exclude pattern %q: %w", pattern, err)
		}
		excludes = append(excludes, g)
	}

	return &Builder{
		contentDir: settings.ContentDirectory,
		distDir:    dist,
		siteFiles:  settings.SiteFiles,
		excludes:   excludes,
	}, nil
}

// Build cleans the dist directory and copies site files and content into it
func (b *Builder) Build() (*BuildStats, error) {
	stats := &BuildStats{}

	if err := os.RemoveAll(b.distDir); err != nil {
		return nil, fmt.Errorf("cleaning %s: %w", b.distDir, err)
	}
	if err := os.MkdirAll(b.distDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", b.distDir, err)
	}

	for _, name := range b.siteFiles {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			debugLog("site file %s not found, skipping", name)
			continue
		}
		if err := copyFile(name, filepath.Join(b.distDir, filepath.Base(name))); err != nil {
			return nil, fmt.Errorf("copying %s: %w", name, err)
		}
		log.Printf("✓ Copied %s", name)
		stats.SiteFiles++
	}

	if _, err := os.Stat(b.contentDir); os.IsNotExist(err) {
		return stats, nil
	}

	dest := filepath.Join(b.distDir, "content")
	err := filepath.WalkDir(b.contentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(b.contentDir, path)
		if err != nil {
			return err
		}
		if rel != "." && b.excluded(rel) {
			stats.Excluded++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		stats.ContentFiles++
		return copyFile(path, target)
	})
	if err != nil {
		return nil, fmt.Errorf("copying %s: %w", b.contentDir, err)
	}
	log.Printf("✓ Copied %s/ (%d files)", b.contentDir, stats.ContentFiles)

	return stats, nil
}

// overlaps reports whether a and b are the same directory or one lies inside the other
func overlaps(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return within(absA, absB) || within(absB, absA), nil
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (b *Builder) excluded(rel string) bool {
	slashed := filepath.ToSlash(rel)
	base := filepath.Base(rel)
	for _, g := range b.excludes {
		if g.Match(base) || g.Match(slashed) {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(dst)
		return copyErr
	}
	if closeErr != nil {
		_ = os.Remove(dst)
		return closeErr
	}
	return nil
}
