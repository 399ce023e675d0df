// Command csrlint statically audits this module for the exact class of
// bug the scheduling-policy switch historically carried: a switch whose
// branches silently fall into the next one. Go switches don't fall
// through by default, so the only way to reintroduce that bug is an
// explicit fallthrough statement; csrlint flags every one it finds so a
// future edit to ult's policy switch (or csr's CSR-kind switches) can't
// reintroduce it unnoticed.
//
// Grounded on the teacher's scripts/features.go (AST-walking over every
// package in the module) and misc/depgraph/main.go (shelling out to the
// go command to learn the module's own shape); csrlint replaces both with
// a single check built on golang.org/x/tools/go/packages instead of
// go/parser run file-by-file or a `go mod graph` text scrape.
package main

import (
	"fmt"
	"go/ast"
	"os"

	"golang.org/x/tools/go/packages"
)

func main() {
	pattern := "./..."
	if len(os.Args) > 1 {
		pattern = os.Args[1]
	}

	cfg := &packages.Config{Mode: packages.NeedSyntax | packages.NeedName | packages.NeedFiles}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "csrlint: %v\n", err)
		os.Exit(2)
	}

	var findings int
	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			ast.Inspect(file, func(n ast.Node) bool {
				stmt, ok := n.(*ast.BranchStmt)
				if !ok || stmt.Tok.String() != "fallthrough" {
					return true
				}
				pos := pkg.Fset.Position(stmt.Pos())
				fmt.Printf("%s:%d: fallthrough in %s (verify this switch still honors every case explicitly)\n",
					pos.Filename, pos.Line, pkg.PkgPath)
				findings++
				return true
			})
		}
	}

	if findings > 0 {
		os.Exit(1)
	}
}
