//go:build tools

package main

// The linters used on this module, pinned by go.mod.
import (
	_ "golang.org/x/lint/golint"
	_ "honnef.co/go/tools/cmd/staticcheck"
)
