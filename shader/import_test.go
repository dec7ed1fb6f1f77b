package shader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFile creates path under dir, creating subdirectories as needed, and
// returns its canonical form.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	canon, err := canonical(path)
	if err != nil {
		t.Fatal(err)
	}
	return canon
}

func TestResolvePassthrough(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.wgsl", "fn a() {}\nfn b() {}\n")

	flat, deps, err := Resolve(entry, "fn a() {}\nfn b() {}\n")
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if flat != "fn a() {}\nfn b() {}" {
		t.Errorf("Resolve() = %q, want the source without the trailing newline", flat)
	}
	if len(deps.Files) != 1 {
		t.Errorf("visited %d files, want just the entry", len(deps.Files))
	}
	if _, ok := deps.Files[entry]; !ok {
		t.Error("entry file missing from the visited set")
	}
}

func TestResolveSplicesImports(t *testing.T) {
	dir := t.TempDir()
	helper := writeFile(t, dir, "lib/noise.wgsl", "fn noise() -> f32 { return 0.5; }\n")
	source := "// @import \"lib/noise.wgsl\"\nfn main_color() {}\n"
	entry := writeFile(t, dir, "main.wgsl", source)

	flat, deps, err := Resolve(entry, source)
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	want := "fn noise() -> f32 { return 0.5; }\nfn main_color() {}"
	if flat != want {
		t.Errorf("Resolve() = %q, want %q", flat, want)
	}
	if _, ok := deps.Files[helper]; !ok {
		t.Error("imported file missing from the visited set")
	}
	if got := deps.Imports[entry]; len(got) != 1 || got[0] != helper {
		t.Errorf("Imports[entry] = %v, want [%s]", got, helper)
	}
}

func TestResolveRelativeToImporter(t *testing.T) {
	// An import inside lib/ resolves against lib/, not the entry's dir.
	dir := t.TempDir()
	writeFile(t, dir, "lib/inner.wgsl", "fn inner() {}\n")
	writeFile(t, dir, "lib/outer.wgsl", "// @import \"inner.wgsl\"\nfn outer() {}\n")
	source := "// @import \"lib/outer.wgsl\"\n"
	entry := writeFile(t, dir, "main.wgsl", source)

	flat, _, err := Resolve(entry, source)
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if flat != "fn inner() {}\nfn outer() {}" {
		t.Errorf("Resolve() = %q", flat)
	}
}

func TestResolveDiamondSplicedOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.wgsl", "fn shared() {}\n")
	writeFile(t, dir, "a.wgsl", "// @import \"common.wgsl\"\nfn a() {}\n")
	writeFile(t, dir, "b.wgsl", "// @import \"common.wgsl\"\nfn b() {}\n")
	source := "// @import \"a.wgsl\"\n// @import \"b.wgsl\"\n"
	entry := writeFile(t, dir, "main.wgsl", source)

	flat, _, err := Resolve(entry, source)
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if got := strings.Count(flat, "fn shared()"); got != 1 {
		t.Errorf("shared content spliced %d times, want once", got)
	}
	// Shared content lands at its first textual reference, before a's own.
	if !strings.HasPrefix(flat, "fn shared() {}\nfn a() {}") {
		t.Errorf("unexpected splice order:\n%s", flat)
	}
}

func TestResolveCycle(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.wgsl", "// @import \"b.wgsl\"\n")
	b := writeFile(t, dir, "b.wgsl", "// @import \"a.wgsl\"\n")

	_, _, err := Resolve(a, "// @import \"b.wgsl\"\n")
	var cycErr *CycleError
	if !errors.As(err, &cycErr) {
		t.Fatalf("Resolve() = %v, want *CycleError", err)
	}
	want := []string{a, b, a}
	if len(cycErr.Chain) != len(want) {
		t.Fatalf("Chain = %v, want %v", cycErr.Chain, want)
	}
	for i := range want {
		if cycErr.Chain[i] != want[i] {
			t.Errorf("Chain[%d] = %s, want %s", i, cycErr.Chain[i], want[i])
		}
	}
}

func TestResolveSelfImport(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.wgsl", "// @import \"a.wgsl\"\n")

	_, _, err := Resolve(a, "// @import \"a.wgsl\"\n")
	var cycErr *CycleError
	if !errors.As(err, &cycErr) {
		t.Fatalf("Resolve() = %v, want *CycleError", err)
	}
	if len(cycErr.Chain) != 2 {
		t.Errorf("Chain = %v, want the file twice", cycErr.Chain)
	}
}

func TestResolveDepthLimit(t *testing.T) {
	dir := t.TempDir()
	// A linear chain one file longer than the limit allows.
	last := MaxImportDepth + 2
	writeFile(t, dir, fmt.Sprintf("f%d.wgsl", last), "fn bottom() {}\n")
	for i := last - 1; i >= 0; i-- {
		writeFile(t, dir, fmt.Sprintf("f%d.wgsl", i),
			fmt.Sprintf("// @import \"f%d.wgsl\"\n", i+1))
	}
	entry := filepath.Join(dir, "f0.wgsl")
	content, err := os.ReadFile(entry)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = Resolve(entry, string(content))
	var depthErr *DepthError
	if !errors.As(err, &depthErr) {
		t.Fatalf("Resolve() = %v, want *DepthError", err)
	}
	if depthErr.Limit != MaxImportDepth {
		t.Errorf("Limit = %d, want %d", depthErr.Limit, MaxImportDepth)
	}
	if !strings.Contains(err.Error(), "32") {
		t.Errorf("error %q does not name the depth limit", err)
	}
}

func TestResolveNotFound(t *testing.T) {
	dir := t.TempDir()
	source := "// @import \"missing.wgsl\"\n"
	entry := writeFile(t, dir, "main.wgsl", source)

	_, _, err := Resolve(entry, source)
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("Resolve() = %v, want *NotFoundError", err)
	}
	if nfErr.ImportedFrom != entry {
		t.Errorf("ImportedFrom = %s, want %s", nfErr.ImportedFrom, entry)
	}
	if !strings.Contains(nfErr.Path, "missing.wgsl") {
		t.Errorf("Path = %s does not name the missing file", nfErr.Path)
	}
}

func TestResolveRepeatedImportSameFile(t *testing.T) {
	// The same file imported twice from one importer is spliced once.
	dir := t.TempDir()
	writeFile(t, dir, "common.wgsl", "fn shared() {}\n")
	source := "// @import \"common.wgsl\"\n// @import \"common.wgsl\"\n"
	entry := writeFile(t, dir, "main.wgsl", source)

	flat, deps, err := Resolve(entry, source)
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if got := strings.Count(flat, "fn shared()"); got != 1 {
		t.Errorf("shared content spliced %d times, want once", got)
	}
	// Both references are still recorded as direct imports.
	if got := len(deps.Imports[entry]); got != 2 {
		t.Errorf("recorded %d direct imports, want 2", got)
	}
}
