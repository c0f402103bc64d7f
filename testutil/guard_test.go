package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestPrefixForbidden(t *testing.T) {
	f := PrefixForbidden("diffractcore/internal/infra", "net/http")
	cases := map[string]bool{
		"diffractcore/internal/infra":             true,
		"diffractcore/internal/infra/blob/s3":     true,
		"diffractcore/internal/infrastructure":    false,
		"net/http":                                true,
		"net/http/httptest":                       true,
		"net/url":                                 false,
		"diffractcore/internal/core":              false,
	}
	for path, want := range cases {
		if got := f(path); got != want {
			t.Fatalf("%s: got %v want %v", path, got, want)
		}
	}
}

func TestInfraImportForbidden(t *testing.T) {
	if !InfraImportForbidden("diffractcore/internal/infra/persistence/sqlite") || InfraImportForbidden("diffractcore/internal/blob") {
		t.Fatalf("unexpected predicate result")
	}
}

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestDirectImportViolationsWalksSubdirectoriesAndSkipsTests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.go"), "package a\n\nimport \"fmt\"\n\nvar _ = fmt.Sprint\n")
	writeFile(t, filepath.Join(dir, "sub", "b.go"), "package sub\n\nimport (\n\t\"net/http\"\n)\n\nvar _ = http.MethodGet\n")
	writeFile(t, filepath.Join(dir, "sub", "b_test.go"), "package sub\n\nimport \"net/http\"\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "import \"net/http\"")

	viols, err := directImportViolations(dir, PrefixForbidden("net/http"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || !strings.Contains(viols[0], "sub/b.go") {
		t.Fatalf("unexpected violations %v", viols)
	}

	var r recorder
	failIfDirectViolations(&r, "no http", viols)
	if !strings.Contains(r.msg, "no http") {
		t.Fatalf("failure message %q", r.msg)
	}
	AssertNoDirectImports(t, dir, PrefixForbidden("os/exec"), "no exec")
}
