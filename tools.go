//go:build tools

package main

// Pin build tooling so `go run` picks up the same versions everywhere.
import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "golang.org/x/vuln/cmd/govulncheck"
)
