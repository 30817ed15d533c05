package core

import (
	"testing"

	"obscore/testutil"
)

// TestCoreDoesNotDependOnAdapters keeps the service usable without the HTTP layer.
func TestCoreDoesNotDependOnAdapters(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AdapterImportForbidden, "core sits below the adapters")
	testutil.AssertNoTransitiveDependency(t, "obscore/internal/core", testutil.AdapterImportForbidden, "core sits below the adapters")
}
