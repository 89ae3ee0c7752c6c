package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/schemata/internal/service"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "index",
		Aliases: []string{"idx"},
		Short:   "Manage indexes and their columns",
	}
	cmd.AddCommand(
		newIndexAddCmd(),
		newIndexAddColumnCmd(),
		newIndexRemoveColumnCmd(),
		newIndexMoveColumnCmd(),
		newIndexDeleteCmd(),
	)
	return cmd
}

// sortDirOf maps --desc to a sort direction.
func sortDirOf(desc bool) types.SortDir {
	if desc {
		return types.SortDesc
	}
	return types.SortAsc
}

func newIndexAddCmd() *cobra.Command {
	var typ string
	var columns []string
	cmd := &cobra.Command{
		Use:   "add <table> <name>",
		Short: "Create an index; columns are column or column:DESC",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				tableID, err := a.tableID(args[0])
				if err != nil {
					return err
				}
				specs := make([]service.IndexColumnSpec, 0, len(columns))
				for _, c := range columns {
					ref, dir, hasDir := strings.Cut(c, ":")
					id, err := a.columnID(ref)
					if err != nil {
						return err
					}
					spec := service.IndexColumnSpec{ColumnID: id}
					if hasDir {
						spec.SortDir = types.SortDir(enumArg(dir))
					}
					specs = append(specs, spec)
				}
				res, err := a.svc.Indexes.CreateIndex(cmd.Context(), service.CreateIndexRequest{
					TableID: tableID, Name: args[1], Type: types.IndexType(enumArg(typ)), Columns: specs,
				})
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					fmt.Fprintf(w, "index %s %s created: %s\n", res.Payload.Index.Name, res.Payload.Index.Type, res.Payload.Index.IndexID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", string(types.IndexBTree), "BTREE, HASH, GIN, GIST, FULLTEXT or SPATIAL")
	cmd.Flags().StringSliceVar(&columns, "column", nil, "indexed column, optionally :DESC (repeatable)")
	return cmd
}

func newIndexAddColumnCmd() *cobra.Command {
	var at int
	var desc bool
	cmd := &cobra.Command{
		Use:   "add-column <index> <column>",
		Short: "Add a column to an index",
		Args:  exactArgs(2),
	}
	cmd.Flags().IntVar(&at, "at", 0, "0-based position (default: append)")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			colID, err := a.columnID(args[1])
			if err != nil {
				return err
			}
			res, err := a.svc.Indexes.AddIndexColumn(cmd.Context(), service.AddIndexColumnRequest{
				IndexID: args[0], ColumnID: colID, SeqNo: atFlag(cmd, &at), SortDir: sortDirOf(desc),
			})
			if err != nil {
				return err
			}
			return emitResult(a, res, func(w io.Writer) {
				fmt.Fprintf(w, "column %s added at %d: %s\n", res.Payload.ColumnID, res.Payload.SeqNo, res.Payload.IndexColumnID)
			})
		})
	}
	return cmd
}

func newIndexRemoveColumnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-column <index-column>",
		Short: "Remove a column from an index; an emptied index is deleted",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				res, err := a.svc.Indexes.RemoveIndexColumn(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					fmt.Fprintf(w, "index column %s removed\n", args[0])
					if res.Payload.IndexDeleted {
						fmt.Fprintf(w, "index %s deleted\n", res.Payload.IndexID)
					}
				})
			})
		},
	}
}

func newIndexMoveColumnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move-column <index-column> <position>",
		Short: "Move an index column to a 0-based position",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := positionArg(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				res, err := a.svc.Indexes.ChangeIndexColumnPosition(cmd.Context(), service.ChangeIndexColumnPositionRequest{
					IndexColumnID: args[0], SeqNo: pos,
				})
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					for _, ic := range res.Payload {
						fmt.Fprintf(w, "%d\t%s\t%s %s\n", ic.SeqNo, ic.IndexColumnID, ic.ColumnID, ic.SortDir)
					}
				})
			})
		},
	}
}

func newIndexDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete an index",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				res, err := a.svc.Indexes.DeleteIndex(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					fmt.Fprintf(w, "index %s deleted\n", res.Payload)
				})
			})
		},
	}
}
