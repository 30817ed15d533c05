package memory

import (
	"testing"

	"obscore/testutil"
)

func TestMemoryStoreDependsOnDomainOnly(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ModuleImportsExcept("obscore/pkg/domain"), "memory store is the base layer")
}
