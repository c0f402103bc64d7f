package domain

import (
	"strings"
	"testing"

	"diffractcore/testutil"
)

// The domain contracts are shared by drivers and plugins, so they stay free
// of every implementation package.
func TestDomainDoesNotImportInternal(t *testing.T) {
	internal := func(path string) bool { return strings.Contains(path, "/internal/") }
	testutil.AssertNoDirectImports(t, ".", internal, "domain must not depend on internal packages")
}
