//go:build mage

// Package main contains Mage build targets for bindery developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "bindery"
	cmdPkg  = "./cmd/bindery"
)

// Build compiles the CLI binary into bin/ with version metadata.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}

	commit, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	date, _ := sh.Output("git", "log", "-1", "--format=%cs")
	ldflags := fmt.Sprintf(
		"-X github.com/cmaloney/bindery/version.GitCommit=%s -X github.com/cmaloney/bindery/version.GitCommitDate=%s",
		commit, date,
	)

	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the full test suite with race detection.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet across the module.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	return sh.Rm(binDir)
}
