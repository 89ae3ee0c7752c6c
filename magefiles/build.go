//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "schemata"
	binaryDir  = "bin"
	cmdDir     = "./cmd/schemata"
	versionVar = "github.com/mesh-intelligence/schemata/internal/cli.Version"
)

// ldflags stamps the binary with SCHEMATA_VERSION when it is set.
func ldflags() string {
	v := os.Getenv("SCHEMATA_VERSION")
	if v == "" {
		return ""
	}
	return "-X " + versionVar + "=" + v
}

// Build compiles the schemata binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags(),
		"-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
