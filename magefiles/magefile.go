//go:build mage

// Package main contains Mage build targets for scrub.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "scrub"

var Default = Build

// Build compiles the CLI into bin/scrub. go-sqlite3 needs cgo.
func Build() error {
	if err := os.MkdirAll("bin", 0o755); err != nil {
		return err
	}
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"},
		"go", "build", "-ldflags", "-X main.version="+version,
		"-o", filepath.Join("bin", binary), "./cli")
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs vet and the tests.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Install copies the binary into $GOBIN (or $GOPATH/bin).
func Install() error {
	mg.Deps(Build)
	dir := os.Getenv("GOBIN")
	if dir == "" {
		gopath, err := sh.Output("go", "env", "GOPATH")
		if err != nil {
			return err
		}
		dir = filepath.Join(gopath, "bin")
	}
	fmt.Println("installing to", dir)
	return sh.Copy(filepath.Join(dir, binary), filepath.Join("bin", binary))
}

// Clean removes build output.
func Clean() error {
	return sh.Rm("bin")
}
