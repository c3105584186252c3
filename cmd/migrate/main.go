package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aktagon/hourly-writer/store"
)

// Finding is one problem found in a content tree
type Finding struct {
	Kind string
	Path string // slash-separated, relative to the content root
	Note string
}

const (
	kindMalformed    = "malformed"
	kindMisplaced    = "misplaced"
	kindMissingMD    = "missing-md"
	kindOrphanMD     = "orphan-md"
	kindTempFile     = "temp-file"
	kindUnreadable   = "unreadable"
	kindMetaMismatch = "meta-mismatch"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <check|remove-strays> <content-directory>")
	}

	command := os.Args[1]
	contentDir := os.Args[2]

	switch command {
	case "check":
		findings, err := check(contentDir)
		if err != nil {
			log.Fatal(err)
		}
		for _, f := range findings {
			fmt.Printf("%-13s %s  %s\n", f.Kind, f.Path, f.Note)
		}
		fmt.Printf("\n%d finding(s)\n", len(findings))
		if len(findings) > 0 {
			os.Exit(1)
		}
	case "remove-strays":
		if err := removeStrays(contentDir); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("Unknown command %q", command)
	}
}

// check walks the content tree and reports files the index builder would
// skip, cycles written only partially and records whose meta disagrees with
// their location
func check(contentDir string) ([]Finding, error) {
	st, err := store.New(contentDir)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	present := map[string]bool{}

	err = store.WalkFiles(contentDir, func(f store.RecordFile) {
		present[f.Rel] = true
	})
	if err != nil {
		return nil, err
	}

	for rel := range present {
		name := path.Base(rel)
		if strings.HasSuffix(name, ".tmp") {
			findings = append(findings, Finding{Kind: kindTempFile, Path: rel, Note: "left over from an interrupted write"})
			continue
		}

		isJSON := store.IsRecordFile(name)
		isMD := strings.HasPrefix(name, "content_") && strings.HasSuffix(name, ".md")
		if !isJSON && !isMD {
			continue
		}

		key, err := store.ParseKey(name)
		if err != nil {
			findings = append(findings, Finding{Kind: kindMalformed, Path: rel, Note: err.Error()})
			continue
		}

		if dir, err := store.ParseDayDir(path.Dir(rel)); err != nil || dir.Date() != key.Date() {
			findings = append(findings, Finding{Kind: kindMisplaced, Path: rel, Note: "expected under " + key.DirPath()})
		}

		if isMD {
			if !present[strings.TrimSuffix(rel, ".md")+".json"] {
				findings = append(findings, Finding{Kind: kindOrphanMD, Path: rel, Note: "not indexed without its .json"})
			}
			continue
		}

		if !present[strings.TrimSuffix(rel, ".json")+".md"] {
			findings = append(findings, Finding{Kind: kindMissingMD, Path: rel, Note: "partial cycle"})
		}

		cycle, err := st.ReadCycle(rel)
		if err != nil {
			findings = append(findings, Finding{Kind: kindUnreadable, Path: rel, Note: err.Error()})
			continue
		}
		if cycle.Meta.Date != key.Date() || cycle.Meta.Hour != key.Hour {
			findings = append(findings, Finding{Kind: kindMetaMismatch, Path: rel,
				Note: fmt.Sprintf("meta says %s_%s", cycle.Meta.Date, cycle.Meta.Hour)})
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		return findings[i].Kind < findings[j].Kind
	})
	return findings, nil
}

// strays returns the files remove-strays offers to delete
func strays(findings []Finding) []string {
	var out []string
	for _, f := range findings {
		if f.Kind == kindMalformed || f.Kind == kindTempFile {
			out = append(out, f.Path)
		}
	}
	return out
}

func removeStrays(contentDir string) error {
	findings, err := check(contentDir)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	totalRemoved := 0
	for _, rel := range strays(findings) {
		file := filepath.Join(contentDir, filepath.FromSlash(rel))
		if confirmDelete(reader, file) {
			if err := os.Remove(file); err != nil {
				log.Printf("Error removing %s: %v", file, err)
			} else {
				totalRemoved++
				fmt.Printf("  REMOVED: %s\n", rel)
			}
		} else {
			fmt.Printf("  SKIP: %s\n", rel)
		}
	}

	fmt.Printf("\nRemoved %d stray files\n", totalRemoved)
	return nil
}

func confirmDelete(reader *bufio.Reader, file string) bool {
	for {
		fmt.Printf("  DELETE %s? [y/N]: ", filepath.Base(file))
		input, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("Error reading input: %v", err)
			return false
		}
		response := strings.ToLower(strings.TrimSpace(input))
		switch response {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Println("  Please enter y or n.")
		}
	}
}
