// Package cli implements the schemata command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/schemata/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

var flags rootFlags

// NewRootCmd creates the top-level "schemata" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "schemata",
		Short: "Keep relational schema metadata consistent",
		Long: "Schemata stores schemas, tables, columns, constraints, relationships and indexes,\n" +
			"and propagates primary key changes along relationships so the model stays consistent.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: ./.schemata)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newTableCmd())
	root.AddCommand(newColumnCmd())
	root.AddCommand(newConstraintCmd())
	root.AddCommand(newRelationshipCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newImportCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if err == nil {
		os.Exit(exitSuccess)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(exitCode(err))
}

// usageError marks bad command-line input.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{msg: err.Error()}
		}
		return nil
	}
}

// exitCode maps rule violations and bad input to exitUserError and
// everything else to exitSysError.
func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return exitUserError
	}
	switch types.KindOf(err) {
	case types.KindNotFound, types.KindInvalid, types.KindDuplicate, types.KindConflict:
		return exitUserError
	default:
		return exitSysError
	}
}
