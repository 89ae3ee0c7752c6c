// Package main provides the schemata CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/mesh-intelligence/schemata/internal/cli"
)

func main() {
	// A .env file in the working directory may carry SCHEMATA_* settings
	// such as SCHEMATA_POSTGRES_DSN. Variables already set win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}
	cli.Execute()
}
