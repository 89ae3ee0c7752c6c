package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/schemata/internal/service"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

func newRelationshipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relationship",
		Aliases: []string{"rel"},
		Short:   "Link tables and change how they are linked",
	}
	cmd.AddCommand(newRelationshipAddCmd(), newRelationshipKindCmd(), newRelationshipDeleteCmd())
	return cmd
}

func newRelationshipAddCmd() *cobra.Command {
	var kind, cardinality string
	var pairs []string
	cmd := &cobra.Command{
		Use:   "add <parent-table> <child-table> <name>",
		Short: "Create a relationship from a child table to a parent table",
		Long: "Create a relationship. Without --pair, a column is generated in the child\n" +
			"table for every parent primary key column. With --pair parent:child, the\n" +
			"given child columns are linked instead and every parent key column must\n" +
			"appear exactly once.",
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				parentID, err := a.tableID(args[0])
				if err != nil {
					return err
				}
				childID, err := a.tableID(args[1])
				if err != nil {
					return err
				}
				cols := make([]service.ColumnPair, 0, len(pairs))
				for _, p := range pairs {
					parent, child, ok := strings.Cut(p, ":")
					if !ok {
						return usagef("--pair %q: want parent-column:child-column", p)
					}
					ids, err := a.columnIDs([]string{parent, child})
					if err != nil {
						return err
					}
					cols = append(cols, service.ColumnPair{ParentColumnID: ids[0], ChildColumnID: ids[1]})
				}
				res, err := a.svc.Relationships.CreateRelationship(cmd.Context(), service.CreateRelationshipRequest{
					ParentTableID: parentID, ChildTableID: childID, Name: args[2],
					Kind: types.RelationshipKind(enumArg(kind)), Cardinality: types.Cardinality(enumArg(cardinality)),
					Columns: cols,
				})
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					r := res.Payload.Relationship
					fmt.Fprintf(w, "relationship %s %s created: %s\n", r.Name, r.Kind, r.RelationshipID)
					printCreated(w, res.Payload.Cascade)
				})
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(types.RelationshipNonIdentifying), "IDENTIFYING or NON_IDENTIFYING")
	cmd.Flags().StringVar(&cardinality, "cardinality", string(types.CardinalityOneToMany), "ONE_TO_ONE, ONE_TO_MANY, ZERO_OR_ONE or ZERO_OR_MANY")
	cmd.Flags().StringSliceVar(&pairs, "pair", nil, "parent-column:child-column (repeatable)")
	return cmd
}

func newRelationshipKindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kind <relationship> <kind>",
		Short: "Switch between IDENTIFYING and NON_IDENTIFYING",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				res, err := a.svc.Relationships.ChangeRelationshipKind(cmd.Context(), service.ChangeRelationshipKindRequest{
					RelationshipID: args[0], Kind: types.RelationshipKind(enumArg(args[1])),
				})
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					fmt.Fprintf(w, "relationship %s is now %s\n", res.Payload.Relationship.Name, res.Payload.Relationship.Kind)
					ch := res.Payload.Change
					if ch == nil {
						return
					}
					if len(ch.KeyColumns) > 0 {
						ids := make([]string, 0, len(ch.KeyColumns))
						for _, cc := range ch.KeyColumns {
							ids = append(ids, cc.ColumnID)
						}
						fmt.Fprintf(w, "  child key columns: %s\n", strings.Join(ids, ", "))
					}
					if len(ch.KeyRemoved) > 0 {
						fmt.Fprintf(w, "  left child key: %s\n", strings.Join(ch.KeyRemoved, ", "))
					}
					if ch.PrimaryKeyDeleted {
						fmt.Fprintln(w, "  child primary key deleted")
					}
				})
			})
		},
	}
}

func newRelationshipDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <relationship>",
		Short: "Delete a relationship and its child foreign key columns",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				res, err := a.svc.Relationships.DeleteRelationship(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					fmt.Fprintf(w, "relationship %s deleted\n", args[0])
					printRemoved(w, res.Payload.Cascade)
				})
			})
		},
	}
}
