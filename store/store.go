// Package store keeps generated content cycles under a year/month/day/hour
// hierarchy and maintains the aggregate index derived from them.
//
// Layout under the store root:
//
//	{year}/{month}/{day}/content_{year}-{month}-{day}_{hour}.json
//	{year}/{month}/{day}/content_{year}-{month}-{day}_{hour}.md
//	index.json
//
// The store assumes a single writer per root; it does no locking.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

const (
	// IndexFile is the name of the aggregate index at the store root.
	IndexFile = "index.json"

	contentPrefix  = "content_"
	contentPattern = contentPrefix + "*.json"
)

var contentMatcher = glob.MustCompile(contentPattern)

// IsRecordFile reports whether name follows the content-file naming
// convention. It does not validate the partition key.
func IsRecordFile(name string) bool {
	return contentMatcher.Match(filepath.Base(name))
}

// RecordFile is one file found below a store root.
type RecordFile struct {
	Path string // path on disk
	Rel  string // slash-separated path relative to the store root
}

// Name returns the file's base name.
func (f RecordFile) Name() string {
	return filepath.Base(f.Path)
}

// PartialWriteError reports a cycle whose two files were not both written.
// Files listed in Written are complete and stay on disk.
type PartialWriteError struct {
	Key     Key
	Written []string
	Failed  []string
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("store: partial write for %s (failed: %s): %v", e.Key, strings.Join(e.Failed, ", "), e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// WriteResult holds the paths written for one cycle.
type WriteResult struct {
	JSONPath string
	MDPath   string
}

// Store owns the on-disk layout below a root directory.
type Store struct {
	root string
}

// New returns a store rooted at root. The directory is created lazily.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("store: root is empty")
	}
	return &Store{root: filepath.Clean(root)}, nil
}

// Root returns the store root.
func (s *Store) Root() string {
	return s.root
}

// RecordRel returns the slash-separated path of key's record file relative to the root.
func RecordRel(key Key) string {
	return key.DirPath() + "/" + contentPrefix + key.FileFragment() + ".json"
}

// DocumentRel returns the slash-separated path of key's rendered document relative to the root.
func DocumentRel(key Key) string {
	return key.DirPath() + "/" + contentPrefix + key.FileFragment() + ".md"
}

// Write stores the cycle record and its rendered document for key. Existing
// files for the same key are replaced. The two writes are independent: when
// one fails the other is still attempted and a *PartialWriteError is returned.
func (s *Store) Write(key Key, cycle *Cycle, document string) (*WriteResult, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(key.DirPath()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %s: %w", dir, err)
	}

	res := &WriteResult{
		JSONPath: filepath.Join(s.root, filepath.FromSlash(RecordRel(key))),
		MDPath:   filepath.Join(s.root, filepath.FromSlash(DocumentRel(key))),
	}

	var written, failed []string
	var errs []error

	data, err := marshalJSON(cycle)
	if err == nil {
		err = writeFileAtomic(res.JSONPath, data)
	}
	if err != nil {
		failed = append(failed, res.JSONPath)
		errs = append(errs, fmt.Errorf("writing %s: %w", res.JSONPath, err))
	} else {
		written = append(written, res.JSONPath)
	}

	if err := writeFileAtomic(res.MDPath, []byte(document)); err != nil {
		failed = append(failed, res.MDPath)
		errs = append(errs, fmt.Errorf("writing %s: %w", res.MDPath, err))
	} else {
		written = append(written, res.MDPath)
	}

	if len(errs) > 0 {
		return res, &PartialWriteError{Key: key, Written: written, Failed: failed, Err: errors.Join(errs...)}
	}
	return res, nil
}

// ListAllRecordFiles returns every structured-record file below the root in
// no particular order. A missing root yields an empty result.
func (s *Store) ListAllRecordFiles() ([]RecordFile, error) {
	return Discover(s.root)
}

// Discover walks root and returns the files named like content records.
// Directories that vanish or do not exist contribute nothing.
func Discover(root string) ([]RecordFile, error) {
	var files []RecordFile
	err := WalkFiles(root, func(f RecordFile) {
		if IsRecordFile(f.Name()) {
			files = append(files, f)
		}
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// WalkFiles calls fn for every regular file below root. Symlinks, the root
// included, are followed while paths stay relative to root as given; each
// linked directory is walked once so link cycles terminate. A missing root
// yields no calls.
func WalkFiles(root string, fn func(RecordFile)) error {
	resolved, err := filepath.EvalSymlinks(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: resolving %s: %w", root, err)
	}

	visited := make(map[string]bool)
	if err := walkFiles(resolved, root, "", visited, fn); err != nil {
		return fmt.Errorf("store: walking %s: %w", root, err)
	}
	return nil
}

func walkFiles(dir, logical, prefix string, visited map[string]bool, fn func(RecordFile)) error {
	if visited[dir] {
		return nil
	}
	visited[dir] = true

	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		relSlash := path.Join(prefix, filepath.ToSlash(rel))

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(p)
			if err != nil {
				// dangling link
				return nil
			}
			info, err := os.Stat(target)
			if err != nil {
				return nil
			}
			if info.IsDir() {
				return walkFiles(target, filepath.Join(logical, rel), relSlash, visited, fn)
			}
		} else if d.IsDir() {
			return nil
		}

		fn(RecordFile{Path: filepath.Join(logical, rel), Rel: relSlash})
		return nil
	})
}

// ReadCycle loads the record stored at rel, a path relative to the root.
func (s *Store) ReadCycle(rel string) (*Cycle, error) {
	path := filepath.Join(s.root, filepath.FromSlash(rel))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", path, err)
	}
	var c Cycle
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("store: parsing %s: %w", path, err)
	}
	return &c, nil
}

// WriteIndex replaces the index file at the root.
func (s *Store) WriteIndex(idx *Index) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("store: creating %s: %w", s.root, err)
	}
	data, err := marshalJSON(idx)
	if err != nil {
		return fmt.Errorf("store: encoding index: %w", err)
	}
	path := filepath.Join(s.root, IndexFile)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("store: writing %s: %w", path, err)
	}
	return nil
}

// ReadIndex loads the index file. A missing file yields an error matching
// fs.ErrNotExist.
func (s *Store) ReadIndex() (*Index, error) {
	path := filepath.Join(s.root, IndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", path, err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("store: parsing %s: %w", path, err)
	}
	return &idx, nil
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic writes through a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
