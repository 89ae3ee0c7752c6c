package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/schemata/internal/service"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// enumArg upper-cases s and turns dashes and spaces into underscores, so
// "primary-key" names PRIMARY_KEY.
func enumArg(s string) string {
	return strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToUpper(strings.TrimSpace(s)))
}

// positionArg parses a 0-based position argument.
func positionArg(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, usagef("position %q is not a number", s)
	}
	return n, nil
}

// atFlag returns a pointer to at when --at was given.
func atFlag(cmd *cobra.Command, at *int) *int {
	if cmd.Flags().Changed("at") {
		return at
	}
	return nil
}

func newConstraintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "constraint",
		Aliases: []string{"con"},
		Short:   "Manage constraints and their columns",
	}
	cmd.AddCommand(
		newConstraintAddCmd(),
		newConstraintAddColumnCmd(),
		newConstraintRemoveColumnCmd(),
		newConstraintMoveColumnCmd(),
		newConstraintExprCmd(),
		newConstraintRenameCmd(),
		newConstraintDeleteCmd(),
	)
	return cmd
}

func newConstraintAddCmd() *cobra.Command {
	var columns []string
	var check, def string
	cmd := &cobra.Command{
		Use:   "add <table> <name> <kind>",
		Short: "Create a constraint (PRIMARY_KEY, UNIQUE, CHECK, DEFAULT, NOT_NULL)",
		Long: "Create a constraint. A new primary key propagates its columns into every\n" +
			"table that references this one.",
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				tableID, err := a.tableID(args[0])
				if err != nil {
					return err
				}
				colIDs, err := a.columnIDs(columns)
				if err != nil {
					return err
				}
				res, err := a.svc.Constraints.CreateConstraint(cmd.Context(), service.CreateConstraintRequest{
					TableID: tableID, Name: args[1], Kind: types.ConstraintKind(enumArg(args[2])),
					ColumnIDs: colIDs, CheckExpr: check, DefaultExpr: def,
				})
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					c := res.Payload.Constraint
					fmt.Fprintf(w, "%s %s created: %s\n", c.Kind, c.Name, c.ConstraintID)
					printCreated(w, res.Payload.Cascade)
				})
			})
		},
	}
	cmd.Flags().StringSliceVar(&columns, "column", nil, "member column, in key order (repeatable)")
	cmd.Flags().StringVar(&check, "check", "", "CHECK expression")
	cmd.Flags().StringVar(&def, "default", "", "DEFAULT expression")
	return cmd
}

func newConstraintAddColumnCmd() *cobra.Command {
	var at int
	cmd := &cobra.Command{
		Use:   "add-column <constraint> <column>",
		Short: "Add a column to a constraint; primary key members propagate",
		Args:  exactArgs(2),
	}
	cmd.Flags().IntVar(&at, "at", 0, "0-based position (default: append)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			colID, err := a.columnID(args[1])
			if err != nil {
				return err
			}
			res, err := a.svc.Constraints.AddConstraintColumn(cmd.Context(), service.AddConstraintColumnRequest{
				ConstraintID: args[0], ColumnID: colID, SeqNo: atFlag(cmd, &at),
			})
			if err != nil {
				return err
			}
			return emitResult(a, res, func(w io.Writer) {
				cc := res.Payload.ConstraintColumn
				fmt.Fprintf(w, "column %s added at %d: %s\n", cc.ColumnID, cc.SeqNo, cc.ConstraintColumnID)
				printCreated(w, res.Payload.Cascade)
			})
		})
	}
	return cmd
}

func newConstraintRemoveColumnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-column <constraint-column>",
		Short: "Remove a column from a constraint; primary key members cascade",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				res, err := a.svc.Constraints.RemoveConstraintColumn(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					fmt.Fprintf(w, "constraint column %s removed\n", args[0])
					if res.Payload.ConstraintDeleted {
						fmt.Fprintf(w, "constraint %s deleted\n", res.Payload.ConstraintID)
					}
					printRemoved(w, res.Payload.Cascade)
				})
			})
		},
	}
}

func newConstraintMoveColumnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move-column <constraint-column> <position>",
		Short: "Move a constraint column to a 0-based position",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := positionArg(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				res, err := a.svc.Constraints.ChangeConstraintColumnPosition(cmd.Context(), service.ChangeConstraintColumnPositionRequest{
					ConstraintColumnID: args[0], SeqNo: pos,
				})
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					for _, cc := range res.Payload {
						fmt.Fprintf(w, "%d\t%s\t%s\n", cc.SeqNo, cc.ConstraintColumnID, cc.ColumnID)
					}
				})
			})
		},
	}
}

func newConstraintExprCmd() *cobra.Command {
	var check, def string
	cmd := &cobra.Command{
		Use:   "expr <constraint>",
		Short: "Change a CHECK or DEFAULT expression",
		Args:  exactArgs(1),
	}
	cmd.Flags().StringVar(&check, "check", "", "new CHECK expression")
	cmd.Flags().StringVar(&def, "default", "", "new DEFAULT expression")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		req := service.ChangeConstraintExpressionRequest{ConstraintID: args[0]}
		if cmd.Flags().Changed("check") {
			req.CheckExpr = &check
		}
		if cmd.Flags().Changed("default") {
			req.DefaultExpr = &def
		}
		if req.CheckExpr == nil && req.DefaultExpr == nil {
			return usagef("one of --check or --default is required")
		}
		return withApp(cmd, func(a *app) error {
			res, err := a.svc.Constraints.ChangeConstraintExpression(cmd.Context(), req)
			if err != nil {
				return err
			}
			return emitResult(a, res, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s: %s\n", res.Payload.Kind, res.Payload.Name, res.Payload.Expression())
			})
		})
	}
	return cmd
}

func newConstraintRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <constraint> <name>",
		Short: "Rename a constraint",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				res, err := a.svc.Constraints.ChangeConstraintName(cmd.Context(), service.ChangeConstraintNameRequest{
					ConstraintID: args[0], Name: args[1],
				})
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					fmt.Fprintf(w, "constraint %s renamed to %s\n", args[0], res.Payload.Name)
				})
			})
		},
	}
}

func newConstraintDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <constraint>",
		Short: "Delete a constraint; deleting a primary key cascades",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				res, err := a.svc.Constraints.DeleteConstraint(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					fmt.Fprintf(w, "constraint %s deleted\n", args[0])
					printRemoved(w, res.Payload.Cascade)
				})
			})
		},
	}
}
