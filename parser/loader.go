package parser

import (
	"os"
	"path/filepath"

	"github.com/fabvit86/jsonnet-go/ast"
	"github.com/fabvit86/jsonnet-go/diag"
)

// Importer resolves an import path relative to the directory of the
// importing file, returning the file contents and a canonical path used
// as the cache key. Hosts substitute in-memory importers for testing.
type Importer interface {
	Import(callerDir, path string) (contents string, canonical string, err error)
}

// FileImporter resolves imports against the real file system: first
// relative to the importing file's directory, then against the search
// paths (typically from JSONNET_PATH).
type FileImporter struct {
	SearchPaths []string
}

// Import implements Importer.
func (f *FileImporter) Import(callerDir, path string) (string, string, error) {
	dirs := append([]string{callerDir}, f.SearchPaths...)
	var lastErr error
	for _, dir := range dirs {
		candidate := path
		if !filepath.IsAbs(path) {
			candidate = filepath.Join(dir, path)
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			lastErr = err
			continue
		}
		contents, err := os.ReadFile(abs)
		if err != nil {
			lastErr = err
			continue
		}
		return string(contents), abs, nil
	}
	return "", "", lastErr
}

// MemoryImporter serves imports from an in-memory map of path → contents.
// Paths are resolved with filepath semantics so relative imports behave
// like on disk.
type MemoryImporter struct {
	Files map[string]string
}

// Import implements Importer.
func (m *MemoryImporter) Import(callerDir, path string) (string, string, error) {
	canonical := path
	if !filepath.IsAbs(path) && callerDir != "" {
		joined := filepath.Join(callerDir, path)
		if _, ok := m.Files[joined]; ok {
			canonical = joined
		}
	}
	contents, ok := m.Files[canonical]
	if !ok {
		return "", "", os.ErrNotExist
	}
	return contents, canonical, nil
}

type loadEntry struct {
	node      ast.Expr
	contents  string
	canonical string
	err       error
}

// Loader loads and parses imported files through an Importer, caching the
// parsed AST per canonical path so repeated imports of the same file never
// re-parse; the importer is consulted once per (caller directory, path)
// pair. Mutually recursive imports are fine: imports are
// only resolved when the evaluator forces them, never during parsing.
type Loader struct {
	importer Importer
	cache    map[string]*loadEntry // keyed by canonical path
	resolved map[string]string     // (callerDir, path) → canonical
}

// NewLoader creates a Loader over the given importer.
func NewLoader(importer Importer) *Loader {
	return &Loader{
		importer: importer,
		cache:    map[string]*loadEntry{},
		resolved: map[string]string{},
	}
}

// Load resolves path relative to callerDir, parses the file (or reuses
// the cached AST) and returns the AST plus the canonical path. I/O
// failures produce an ImportError carrying the import site's span.
func (l *Loader) Load(callerDir, path string, at ast.Span) (ast.Expr, string, error) {
	entry, err := l.load(callerDir, path, at)
	if err != nil {
		return nil, "", err
	}
	if entry.err != nil {
		return nil, "", entry.err
	}
	if entry.node == nil {
		node, perr := Parse(entry.contents, entry.canonical)
		entry.node = node
		entry.err = perr
		if perr != nil {
			return nil, "", perr
		}
	}
	return entry.node, entry.canonical, nil
}

// LoadString resolves path relative to callerDir and returns the raw file
// contents (for importstr) plus the canonical path.
func (l *Loader) LoadString(callerDir, path string, at ast.Span) (string, string, error) {
	entry, err := l.load(callerDir, path, at)
	if err != nil {
		return "", "", err
	}
	return entry.contents, entry.canonical, nil
}

func (l *Loader) load(callerDir, path string, at ast.Span) (*loadEntry, error) {
	resolveKey := callerDir + "\x00" + path
	if canonical, ok := l.resolved[resolveKey]; ok {
		return l.cache[canonical], nil
	}
	contents, canonical, err := l.importer.Import(callerDir, path)
	if err != nil {
		return nil, diag.New(diag.ImportError, at, "cannot import %q: %v", path, err)
	}
	l.resolved[resolveKey] = canonical
	if entry, ok := l.cache[canonical]; ok {
		return entry, nil
	}
	entry := &loadEntry{contents: contents, canonical: canonical}
	l.cache[canonical] = entry
	return entry, nil
}
