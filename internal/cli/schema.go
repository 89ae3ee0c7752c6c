package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/schemata/internal/service"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create and list schemas",
	}

	var charset, collation string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty schema",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				res, err := a.svc.Schemas.CreateSchema(cmd.Context(), service.CreateSchemaRequest{
					Name: args[0], Charset: charset, Collation: collation,
				})
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					fmt.Fprintf(w, "schema %s created: %s\n", res.Payload.Name, res.Payload.SchemaID)
				})
			})
		},
	}
	create.Flags().StringVar(&charset, "charset", "", "default character set for tables")
	create.Flags().StringVar(&collation, "collation", "", "default collation for tables")

	list := &cobra.Command{
		Use:   "list",
		Short: "List schemas",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				schemas, err := a.svc.Schemas.ListSchemas(cmd.Context())
				if err != nil {
					return err
				}
				if schemas == nil {
					schemas = []*types.Schema{}
				}
				return a.emit(schemas, func(w io.Writer) {
					for _, s := range schemas {
						fmt.Fprintf(w, "%s\t%s\n", s.SchemaID, s.Name)
					}
				})
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func newTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Create tables",
	}

	var charset, collation, comment string
	create := &cobra.Command{
		Use:   "create <schema> <name>",
		Short: "Create a table; charset and collation default to the schema's",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				schema, err := a.svc.Schemas.FindSchema(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				res, err := a.svc.Schemas.CreateTable(cmd.Context(), service.CreateTableRequest{
					SchemaID: schema.SchemaID, Name: args[1],
					Charset: charset, Collation: collation, Comment: comment,
				})
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					fmt.Fprintf(w, "table %s.%s created: %s\n", schema.Name, res.Payload.Name, res.Payload.TableID)
				})
			})
		},
	}
	create.Flags().StringVar(&charset, "charset", "", "character set (default: schema charset)")
	create.Flags().StringVar(&collation, "collation", "", "collation (default: schema collation)")
	create.Flags().StringVar(&comment, "comment", "", "table comment")

	cmd.AddCommand(create)
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <schema>",
		Short: "Display a schema with all its tables and relationships",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				snap, err := a.svc.Schemas.Snapshot(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.emit(snap, func(w io.Writer) { printSnapshot(w, snap) })
			})
		},
	}
}

// printSnapshot renders a schema as an indented outline.
func printSnapshot(w io.Writer, snap *service.Snapshot) {
	fmt.Fprintf(w, "Schema %s (%s)\n", snap.Schema.Name, snap.Schema.SchemaID)
	names := make(map[string]string)
	for _, ts := range snap.Tables {
		for _, c := range ts.Columns {
			names[c.ColumnID] = ts.Table.Name + "." + c.Name
		}
	}
	colNames := func(ids []string) string {
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = names[id]
		}
		return strings.Join(out, ", ")
	}

	for _, ts := range snap.Tables {
		fmt.Fprintf(w, "\nTable %s (%s)\n", ts.Table.Name, ts.Table.TableID)
		for _, c := range ts.Columns {
			fmt.Fprintf(w, "  %-3d %-24s %s%s\n", c.SeqNo, c.Name, formatType(c), columnFlags(c))
		}
		for _, cs := range ts.Constraints {
			ids := make([]string, len(cs.Columns))
			for i, cc := range cs.Columns {
				ids[i] = cc.ColumnID
			}
			fmt.Fprintf(w, "  %s %s (%s)", cs.Constraint.Kind, cs.Constraint.Name, colNames(ids))
			if expr := cs.Constraint.Expression(); expr != "" {
				fmt.Fprintf(w, " %s", expr)
			}
			fmt.Fprintln(w)
		}
		for _, is := range ts.Indexes {
			parts := make([]string, len(is.Columns))
			for i, ic := range is.Columns {
				parts[i] = names[ic.ColumnID] + " " + string(ic.SortDir)
			}
			fmt.Fprintf(w, "  INDEX %s %s (%s)\n", is.Index.Name, is.Index.Type, strings.Join(parts, ", "))
		}
	}

	if len(snap.Relationships) > 0 {
		fmt.Fprintln(w, "\nRelationships")
	}
	for _, rs := range snap.Relationships {
		r := rs.Relationship
		pairs := make([]string, len(rs.Columns))
		for i, rc := range rs.Columns {
			pairs[i] = names[rc.FkColumnID] + " -> " + names[rc.PkColumnID]
		}
		fmt.Fprintf(w, "  %s %s %s: %s\n", r.Name, r.Kind, r.Cardinality, strings.Join(pairs, ", "))
	}
}

// formatType renders a column type with its modifiers, e.g. DECIMAL(10,2).
func formatType(c *types.Column) string {
	switch {
	case c.Precision != nil && c.Scale != nil:
		return fmt.Sprintf("%s(%d,%d)", c.DataType, *c.Precision, *c.Scale)
	case c.Precision != nil:
		return fmt.Sprintf("%s(%d)", c.DataType, *c.Precision)
	case c.Length != nil:
		return fmt.Sprintf("%s(%d)", c.DataType, *c.Length)
	default:
		return c.DataType
	}
}

func columnFlags(c *types.Column) string {
	var b strings.Builder
	if c.AutoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	}
	if c.Charset != "" {
		fmt.Fprintf(&b, " CHARSET %s", c.Charset)
	}
	if c.Collation != "" {
		fmt.Fprintf(&b, " COLLATE %s", c.Collation)
	}
	if c.Comment != "" {
		fmt.Fprintf(&b, " -- %s", c.Comment)
	}
	return b.String()
}
