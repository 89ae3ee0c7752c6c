package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mesh-intelligence/schemata/internal/service"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// typeFlags binds --length, --precision and --scale.
type typeFlags struct {
	fs                       *pflag.FlagSet
	length, precision, scale int
}

func bindTypeFlags(fs *pflag.FlagSet) *typeFlags {
	tf := &typeFlags{fs: fs}
	fs.IntVar(&tf.length, "length", 0, "length for character types")
	fs.IntVar(&tf.precision, "precision", 0, "numeric precision")
	fs.IntVar(&tf.scale, "scale", 0, "numeric scale")
	return tf
}

// columnType builds a type from dataType and only the flags that were set.
func (tf *typeFlags) columnType(dataType string) types.ColumnType {
	t := types.ColumnType{DataType: dataType}
	if tf.fs.Changed("length") {
		t.Length = &tf.length
	}
	if tf.fs.Changed("precision") {
		t.Precision = &tf.precision
	}
	if tf.fs.Changed("scale") {
		t.Scale = &tf.scale
	}
	return t
}

func newColumnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "column",
		Short: "Add, change and delete columns",
	}
	cmd.AddCommand(newColumnAddCmd(), newColumnRenameCmd(), newColumnTypeCmd(), newColumnMetaCmd(), newColumnDeleteCmd())
	return cmd
}

func newColumnAddCmd() *cobra.Command {
	var autoInc bool
	var charset, collation, comment string
	cmd := &cobra.Command{
		Use:   "add <table> <name> <type>",
		Short: "Append a column to a table",
		Args:  exactArgs(3),
	}
	tf := bindTypeFlags(cmd.Flags())
	cmd.Flags().BoolVar(&autoInc, "auto-increment", false, "auto increment")
	cmd.Flags().StringVar(&charset, "charset", "", "character set (text types only)")
	cmd.Flags().StringVar(&collation, "collation", "", "collation (text types only)")
	cmd.Flags().StringVar(&comment, "comment", "", "column comment")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			tableID, err := a.tableID(args[0])
			if err != nil {
				return err
			}
			res, err := a.svc.Columns.CreateColumn(cmd.Context(), service.CreateColumnRequest{
				TableID: tableID, Name: args[1], Type: tf.columnType(args[2]),
				AutoIncrement: autoInc, Charset: charset, Collation: collation, Comment: comment,
			})
			if err != nil {
				return err
			}
			return emitResult(a, res, func(w io.Writer) {
				fmt.Fprintf(w, "column %s %s created: %s\n", res.Payload.Name, formatType(res.Payload), res.Payload.ColumnID)
			})
		})
	}
	return cmd
}

func newColumnRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <column> <name>",
		Short: "Rename a column",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				id, err := a.columnID(args[0])
				if err != nil {
					return err
				}
				res, err := a.svc.Columns.ChangeColumnName(cmd.Context(), service.ChangeColumnNameRequest{ColumnID: id, Name: args[1]})
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					fmt.Fprintf(w, "column %s renamed to %s\n", id, res.Payload.Name)
				})
			})
		},
	}
}

func newColumnTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type <column> <type>",
		Short: "Change a column's type; key columns propagate the change to child tables",
		Args:  exactArgs(2),
	}
	tf := bindTypeFlags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			id, err := a.columnID(args[0])
			if err != nil {
				return err
			}
			res, err := a.svc.Columns.ChangeColumnType(cmd.Context(), service.ChangeColumnTypeRequest{ColumnID: id, Type: tf.columnType(args[1])})
			if err != nil {
				return err
			}
			return emitResult(a, res, func(w io.Writer) {
				fmt.Fprintf(w, "column %s is now %s\n", res.Payload.Column.Name, formatType(res.Payload.Column))
				for _, c := range res.Payload.Cascade {
					fmt.Fprintf(w, "  propagated to %s via %s\n", c.ColumnID, c.RelationshipID)
				}
			})
		})
	}
	return cmd
}

func newColumnMetaCmd() *cobra.Command {
	var autoInc bool
	var charset, collation, comment string
	cmd := &cobra.Command{
		Use:   "meta <column>",
		Short: "Change auto increment, charset, collation or comment",
		Args:  exactArgs(1),
	}
	fs := cmd.Flags()
	fs.BoolVar(&autoInc, "auto-increment", false, "auto increment")
	fs.StringVar(&charset, "charset", "", "character set")
	fs.StringVar(&collation, "collation", "", "collation")
	fs.StringVar(&comment, "comment", "", "comment")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var meta types.ColumnMeta
		if fs.Changed("auto-increment") {
			meta.AutoIncrement = &autoInc
		}
		if fs.Changed("charset") {
			meta.Charset = &charset
		}
		if fs.Changed("collation") {
			meta.Collation = &collation
		}
		if fs.Changed("comment") {
			meta.Comment = &comment
		}
		return withApp(cmd, func(a *app) error {
			id, err := a.columnID(args[0])
			if err != nil {
				return err
			}
			res, err := a.svc.Columns.ChangeColumnMeta(cmd.Context(), service.ChangeColumnMetaRequest{ColumnID: id, Meta: meta})
			if err != nil {
				return err
			}
			return emitResult(a, res, func(w io.Writer) {
				fmt.Fprintf(w, "column %s updated:%s\n", res.Payload.Name, columnFlags(res.Payload))
			})
		})
	}
	return cmd
}

func newColumnDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <column>",
		Short: "Delete a column and every reference to it",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				id, err := a.columnID(args[0])
				if err != nil {
					return err
				}
				res, err := a.svc.Columns.DeleteColumn(cmd.Context(), id)
				if err != nil {
					return err
				}
				return emitResult(a, res, func(w io.Writer) {
					fmt.Fprintf(w, "column %s deleted\n", id)
					printRemoved(w, res.Payload.Cascade)
				})
			})
		},
	}
}

func printRemoved(w io.Writer, removed []types.CascadeRemovedInfo) {
	for _, r := range removed {
		fmt.Fprintf(w, "  removed %s from %s", r.ColumnID, r.TableID)
		if r.RelationshipDeleted {
			fmt.Fprintf(w, " (relationship %s deleted)", r.RelationshipID)
		}
		fmt.Fprintln(w)
	}
}

func printCreated(w io.Writer, created []types.CascadeCreatedInfo) {
	for _, c := range created {
		fmt.Fprintf(w, "  created %s (%s) in %s", c.ColumnName, c.ColumnID, c.TableID)
		if c.ConstraintID != "" {
			fmt.Fprint(w, " [primary key]")
		}
		fmt.Fprintln(w)
	}
}
