// Package testutil holds layering checks shared by package tests.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Module is the import path of this module.
const Module = "churchledger"

// AssertNoDirectImports parses the non-test Go files in dir and fails when an
// import satisfies forbidden. Build tags are ignored.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	failIfViolations(t, reason, viols)
}

// Within matches imports of the module packages rooted at any of rels, for
// example "internal/infra".
func Within(rels ...string) func(string) bool {
	return func(importPath string) bool {
		for _, rel := range rels {
			root := Module + "/" + strings.Trim(rel, "/")
			if importPath == root || strings.HasPrefix(importPath, root+"/") {
				return true
			}
		}
		return false
	}
}

// OutsideOf matches imports of module packages other than those rooted at rels.
func OutsideOf(rels ...string) func(string) bool {
	inside := Within(rels...)
	return func(importPath string) bool {
		if importPath != Module && !strings.HasPrefix(importPath, Module+"/") {
			return false
		}
		return !inside(importPath)
	}
}

// InfraImportForbidden matches any storage, blob or other backend package.
func InfraImportForbidden(importPath string) bool {
	return Within("internal/infra")(importPath)
}

// DomainImportForbidden matches the domain package.
func DomainImportForbidden(importPath string) bool {
	return Within("pkg/domain")(importPath)
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			ip := strings.Trim(imp.Path.Value, `"`)
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	sort.Strings(viols)
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden direct imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
