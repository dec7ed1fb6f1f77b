// Package shader turns user WGSL files into complete, validated compute
// programs: it expands `// @import` directives, splices the result into an
// embedded shell template, and checks the whole program with naga.
package shader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxImportDepth bounds the import nesting. Deeper chains are almost
// certainly a mistake and are rejected instead of resolved.
const MaxImportDepth = 32

// importPattern matches an import directive anywhere on a line:
//
//	// @import "lighting/phong.wgsl"
//
// The path is interpreted relative to the directory of the importing file.
var importPattern = regexp.MustCompile(`// @import "([^"]+)"`)

// Dependencies describes the file graph discovered during one Resolve pass.
// Paths are canonical: absolute with symlinks resolved.
type Dependencies struct {
	// Imports maps each file to the files it directly imports, in
	// directive order.
	Imports map[string][]string
	// Files is every file visited, the entry included. This is the set
	// the file watcher needs to cover.
	Files map[string]struct{}
}

// NotFoundError reports an import whose target cannot be resolved on disk.
type NotFoundError struct {
	Path         string // the path as resolved against the importer's directory
	ImportedFrom string // canonical path of the importing file
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("shader: import %q not found (imported from %s)", e.Path, e.ImportedFrom)
}

// CycleError reports a circular import. Chain holds the canonical paths of
// the active import chain ending with the repeated file, so A importing B
// importing A yields [A, B, A].
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "shader: circular import: " + strings.Join(e.Chain, " -> ")
}

// DepthError reports an import chain nested deeper than the limit.
type DepthError struct {
	Limit int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("shader: import chain exceeds maximum depth of %d", e.Limit)
}

// Resolve expands every import directive in source, reading imported files
// from disk. Each imported file is spliced in at its first reference; later
// references to the same file anywhere in the pass are skipped, so shared
// helpers appear exactly once. entryPath names the file source came from
// and anchors relative import paths.
//
// Errors are *NotFoundError, *CycleError, *DepthError, or a wrapped I/O
// error; in every case the returned program is empty.
func Resolve(entryPath, source string) (string, *Dependencies, error) {
	r := &resolver{
		resolved: make(map[string]struct{}),
		imports:  make(map[string][]string),
	}
	flat, err := r.expand(entryPath, source, 0)
	if err != nil {
		return "", nil, err
	}
	files := make(map[string]struct{}, len(r.resolved))
	for f := range r.resolved {
		files[f] = struct{}{}
	}
	return flat, &Dependencies{Imports: r.imports, Files: files}, nil
}

// resolver tracks one Resolve pass. The chain is the stack of files whose
// expansion is in progress (for cycle detection); resolved is every file
// whose expansion has completed (for diamond de-duplication).
type resolver struct {
	chain    []string
	resolved map[string]struct{}
	imports  map[string][]string
}

// canonical returns the absolute, symlink-free form of path. Watching and
// cycle detection both compare canonical paths, so the same file reached
// through different spellings is recognized as one file.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (r *resolver) expand(file, source string, depth int) (string, error) {
	if depth > MaxImportDepth {
		return "", &DepthError{Limit: MaxImportDepth}
	}

	cur, err := canonical(file)
	if err != nil {
		return "", fmt.Errorf("shader: resolve %s: %w", file, err)
	}
	for _, active := range r.chain {
		if active == cur {
			chain := append(append([]string(nil), r.chain...), cur)
			return "", &CycleError{Chain: chain}
		}
	}
	r.chain = append(r.chain, cur)

	dir := filepath.Dir(cur)
	lines := strings.Split(source, "\n")
	// A trailing newline produces one empty trailing element; dropping it
	// keeps spliced files from accumulating blank lines.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		m := importPattern.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}

		ref := filepath.Join(dir, m[1])
		target, err := canonical(ref)
		if err != nil {
			return "", &NotFoundError{Path: ref, ImportedFrom: cur}
		}
		r.imports[cur] = append(r.imports[cur], target)

		if _, done := r.resolved[target]; done {
			// Already spliced at an earlier reference.
			continue
		}

		content, err := os.ReadFile(target)
		if err != nil {
			return "", fmt.Errorf("shader: read import %s: %w", target, err)
		}
		spliced, err := r.expand(target, string(content), depth+1)
		if err != nil {
			return "", err
		}
		out = append(out, spliced)
	}

	r.chain = r.chain[:len(r.chain)-1]
	r.resolved[cur] = struct{}{}
	return strings.Join(out, "\n"), nil
}
