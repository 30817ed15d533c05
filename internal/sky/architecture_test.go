package sky

import (
	"testing"

	"obscore/testutil"
)

func TestSkyHasNoBackendDependency(t *testing.T) {
	testutil.AssertNoTransitiveDependency(t, "obscore/internal/sky", testutil.BackendImportForbidden, "sky calculations stay pure")
}
