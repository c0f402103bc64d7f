package calc

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestCalculatorStaysPure keeps the calculator free of the stateful parts of
// the module and of clocks or randomness.
func TestCalculatorStaysPure(t *testing.T) {
	forbiddenDirect := map[string]struct{}{
		"math/rand": {}, "math/rand/v2": {}, "time": {}, "sync": {}, "os": {},
	}
	forbiddenModule := []string{
		"diffractcore/internal/params",
		"diffractcore/internal/structure",
		"diffractcore/internal/experiment",
		"diffractcore/internal/fit",
		"diffractcore/internal/core",
		"diffractcore/internal/infra",
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps}
	pkgs, err := packages.Load(cfg, "diffractcore/internal/calc")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if len(pkgs) != 1 {
		t.Fatalf("expected one package, got %d", len(pkgs))
	}

	seen := make(map[string]struct{})
	for path := range pkgs[0].Imports {
		if _, bad := forbiddenDirect[path]; bad {
			seen["direct: "+path] = struct{}{}
		}
	}
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, prefix := range forbiddenModule {
			if p.PkgPath == prefix || strings.HasPrefix(p.PkgPath, prefix+"/") {
				seen["transitive: "+p.PkgPath] = struct{}{}
			}
		}
	})

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		t.Fatalf("calculator imports forbidden packages: %v", violations)
	}
}
