package finance

import (
	"testing"

	"churchledger/testutil"
)

func TestFinanceStaysPure(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.Within("internal/core", "internal/infra", "internal/events", "internal/blob"),
		"reports are computed from domain records only")
}
