package domain

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// allowedThirdParty lists the only non-standard imports the domain may use.
var allowedThirdParty = map[string]bool{
	"github.com/shopspring/decimal": true,
}

// TestDomainImportsStayMinimal enforces that the domain layer depends only on
// the standard library and the decimal package, never on internal packages.
func TestDomainImportsStayMinimal(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, "churchledger/pkg/domain")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if len(pkgs) == 0 {
		t.Fatalf("domain package not found")
	}

	var violations []string
	for _, pkg := range pkgs {
		for importPath := range pkg.Imports {
			if strings.Contains(importPath, "/internal/") || strings.HasPrefix(importPath, "churchledger/internal") {
				violations = append(violations, importPath)
				continue
			}
			if isStdlib(importPath) || allowedThirdParty[importPath] {
				continue
			}
			violations = append(violations, importPath)
		}
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("domain package must not import %s", v)
	}
}

// isStdlib treats import paths without a dot in the first element as standard library.
func isStdlib(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
