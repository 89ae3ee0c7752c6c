package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/mesh-intelligence/schemata"

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "0.1.0-dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the schemata version",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := &app{cmd: cmd}
			info := map[string]string{"version": Version, "module": modulePath, "go": runtime.Version()}
			return a.emit(info, func(w io.Writer) {
				fmt.Fprintf(w, "schemata v%s\nmodule: %s\n", Version, modulePath)
			})
		},
	}
}
