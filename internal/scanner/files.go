package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gobwas/glob"

	"github.com/had-nu/envpatrol/internal/log"
	"github.com/had-nu/envpatrol/internal/types"
)

// Analyzer scores configuration text.
type Analyzer interface {
	Scan(ctx context.Context, text string) types.ScanResult
}

// DefaultIncludes are the file name globs picked up by a directory scan.
var DefaultIncludes = []string{".env", ".env.*", "*.env", "*.json"}

var ignoreDirs = map[string]struct{}{
	".git":         {},
	".idea":        {},
	".vscode":      {},
	"vendor":       {},
	"node_modules": {},
	"bin":          {},
}

const maxWorkers = 100

// FileScanner walks a directory tree and analyzes every configuration file
// whose base name matches one of its include globs.
type FileScanner struct {
	analyzer Analyzer
	includes []glob.Glob
	maxBytes int64
}

// NewFileScanner compiles the include globs. Nil includes select DefaultIncludes.
func NewFileScanner(a Analyzer, includes []string, maxBytes int64) (*FileScanner, error) {
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	fs := &FileScanner{analyzer: a, maxBytes: maxBytes}
	for _, pattern := range includes {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile include glob %q: %w", pattern, err)
		}
		fs.includes = append(fs.includes, g)
	}
	return fs, nil
}

// Scan walks root and scans matching files concurrently. Results are sorted
// by path.
func (s *FileScanner) Scan(ctx context.Context, root string) (types.TreeResult, error) {
	var (
		result types.TreeResult
		mu     sync.Mutex
		wg     sync.WaitGroup
	)

	sem := make(chan struct{}, maxWorkers)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			mu.Lock()
			result.Errors = append(result.Errors, types.ScanError{Path: path, Err: err})
			mu.Unlock()
			return nil
		}

		if d.IsDir() {
			if path != root && shouldIgnoreDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.included(d.Name()) {
			return nil
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, ok, err := s.scanFile(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Errors = append(result.Errors, types.ScanError{Path: path, Err: err})
			case ok:
				result.Files = append(result.Files, types.FileResult{Path: path, Result: res})
			}
		}(path)

		return nil
	})

	wg.Wait()

	if err != nil {
		return types.TreeResult{}, fmt.Errorf("scan walk %s: %w", root, err)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})
	return result, nil
}

// scanFile reads and analyzes one file. ok is false for files skipped as
// oversized or binary.
func (s *FileScanner) scanFile(ctx context.Context, path string) (types.ScanResult, bool, error) {
	if ctx.Err() != nil {
		return types.ScanResult{}, false, ctx.Err()
	}

	if s.maxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return types.ScanResult{}, false, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() > s.maxBytes {
			log.Debugf("(scanner) skipping %s: %d bytes exceeds limit", path, info.Size())
			return types.ScanResult{}, false, nil
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return types.ScanResult{}, false, fmt.Errorf("read file %s: %w", path, err)
	}

	if !isText(content) {
		log.Debugf("(scanner) skipping non-text file %s", path)
		return types.ScanResult{}, false, nil
	}

	return s.analyzer.Scan(ctx, string(content)), true, nil
}

func (s *FileScanner) included(name string) bool {
	for _, g := range s.includes {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// isText reports whether content sniffs as some text/plain descendant.
func isText(content []byte) bool {
	if len(content) == 0 {
		return true
	}
	for mt := mimetype.Detect(content); mt != nil; mt = mt.Parent() {
		if mt.Is("text/plain") {
			return true
		}
	}
	return false
}

func shouldIgnoreDir(name string) bool {
	_, ok := ignoreDirs[name]
	return ok
}
