package domain

import (
	"go/ast"
	"go/types"
	"slices"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const domainPath = "taskcoach/pkg/domain"

func loadModule(t *testing.T, mode packages.LoadMode) []*packages.Package {
	t.Helper()
	cfg := &packages.Config{Mode: mode, Tests: true}
	pkgs, err := packages.Load(cfg, "taskcoach/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	return pkgs
}

// The domain layer must not depend on any internal implementation package.
func TestDomainDoesNotImportInternal(t *testing.T) {
	for _, pkg := range loadModule(t, packages.NeedName|packages.NeedImports) {
		if pkg.PkgPath != domainPath {
			continue
		}
		for importPath := range pkg.Imports {
			if strings.HasPrefix(importPath, "taskcoach/internal/") {
				t.Errorf("domain package must not import %s", importPath)
			}
		}
	}
}

// Attribute setters take the event being collected, so every mutation has to
// happen inside a document transaction. Only the transaction layer and the
// commands are allowed to call them.
func TestSettersOnlyCalledFromCommandsAndCore(t *testing.T) {
	allowed := []string{domainPath, "taskcoach/internal/core", "taskcoach/internal/command"}
	mode := packages.NeedName | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedSyntax
	var violations []string
	for _, pkg := range loadModule(t, mode) {
		if slices.Contains(allowed, pkg.PkgPath) {
			continue
		}
		for _, file := range pkg.Syntax {
			ast.Inspect(file, func(n ast.Node) bool {
				sel, ok := n.(*ast.SelectorExpr)
				if !ok || !strings.HasPrefix(sel.Sel.Name, "Set") {
					return true
				}
				fn, ok := pkg.TypesInfo.Uses[sel.Sel].(*types.Func)
				if !ok || fn.Pkg() == nil || fn.Pkg().Path() != domainPath || !takesEvent(fn) {
					return true
				}
				pos := pkg.Fset.Position(sel.Pos())
				v := pos.Filename + ": " + sel.Sel.Name
				if !slices.Contains(violations, v) {
					violations = append(violations, v)
				}
				return true
			})
		}
	}
	slices.Sort(violations)
	for _, v := range violations {
		t.Errorf("domain setter called outside a command: %s", v)
	}
}

func takesEvent(fn *types.Func) bool {
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() == nil || sig.Params().Len() == 0 {
		return false
	}
	ptr, ok := sig.Params().At(0).Type().(*types.Pointer)
	if !ok {
		return false
	}
	named, ok := ptr.Elem().(*types.Named)
	return ok && named.Obj().Name() == "Event" && named.Obj().Pkg().Path() == domainPath
}
