//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Databases the import tests read from.
const (
	envTestDSN      = "SCHEMATA_TEST_DSN"
	envTestMySQLDSN = "SCHEMATA_TEST_MYSQL_DSN"
)

// Test groups test targets (all, unit, cover, databases).
type Test mg.Namespace

// All runs every test. Database-backed tests skip unless their DSN is set.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs the tests in short mode with the race detector.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "-short", "-race", "./...")
}

// Cover writes a coverage profile to bin/cover.out and prints the summary.
func (Test) Cover() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	profile := binaryDir + "/cover.out"
	if err := sh.RunV(binGo, "test", "-coverprofile", profile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func", profile)
}

// Databases runs the catalog import tests against SCHEMATA_TEST_DSN
// (PostgreSQL) and SCHEMATA_TEST_MYSQL_DSN.
func (Test) Databases() error {
	if os.Getenv(envTestDSN) == "" && os.Getenv(envTestMySQLDSN) == "" {
		fmt.Printf("neither %s nor %s is set; nothing to run.\n", envTestDSN, envTestMySQLDSN)
		return nil
	}
	return sh.RunV(binGo, "test", "-v", "-run", "Postgres|MySQL", "./internal/introspect/...")
}
