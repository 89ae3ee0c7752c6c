package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/schemata/internal/introspect"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import schema metadata from a live database",
	}
	cmd.AddCommand(newImportPostgresCmd(), newImportMySQLCmd())
	return cmd
}

// dsnOrConfig returns flagValue, falling back to the config key.
func (a *app) dsnOrConfig(flagValue, key, engine string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if dsn := a.cfg.v.GetString(key); dsn != "" {
		return dsn, nil
	}
	return "", usagef("no %s DSN: pass --dsn or set %s_%s", engine, envPrefix, strings.ToUpper(key))
}

// applyCatalog replays cat into a new schema and prints the report.
func (a *app) applyCatalog(cmd *cobra.Command, source, as string, cat *introspect.Catalog) error {
	a.log.Info("catalog read", "schema", cat.Schema, "tables", len(cat.Tables))
	report, err := introspect.Apply(cmd.Context(), a.svc, as, cat)
	if err != nil {
		return err
	}
	return a.emit(report, func(w io.Writer) {
		fmt.Fprintf(w, "imported %s %s as %s (%s)\n", source, cat.Schema, report.Schema.Name, report.Schema.SchemaID)
		fmt.Fprintf(w, "  tables %d, columns %d, constraints %d, relationships %d, indexes %d\n",
			report.Tables, report.Columns, report.Constraints, report.Relationships, report.Indexes)
		for _, s := range report.Skipped {
			fmt.Fprintf(w, "  skipped %s %s on %s: %s\n", s.Object, s.Name, s.Table, s.Reason)
		}
	})
}

func newImportPostgresCmd() *cobra.Command {
	var dsn, pgSchema, as string
	cmd := &cobra.Command{
		Use:   "postgres",
		Short: "Read a PostgreSQL schema from its catalogs into a new schema",
		Long: "Read tables, columns, constraints, foreign keys and indexes from the\n" +
			"PostgreSQL system catalogs. Only SELECT statements are issued. The DSN\n" +
			"comes from --dsn, postgres_dsn in config.yaml, or SCHEMATA_POSTGRES_DSN.",
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				dsn, err := a.dsnOrConfig(dsn, cfgKeyPostgresDSN, "PostgreSQL")
				if err != nil {
					return err
				}
				ctx := cmd.Context()
				pool, err := introspect.Connect(ctx, dsn)
				if err != nil {
					return err
				}
				defer pool.Close()

				cat, err := introspect.Fetch(ctx, pool, pgSchema)
				if err != nil {
					return fmt.Errorf("read catalog: %w", err)
				}
				return a.applyCatalog(cmd, "postgres", as, cat)
			})
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&pgSchema, "schema", "public", "PostgreSQL schema to read")
	cmd.Flags().StringVar(&as, "as", "", "name of the new schema (default: the PostgreSQL schema name)")
	return cmd
}

func newImportMySQLCmd() *cobra.Command {
	var dsn, database, as string
	cmd := &cobra.Command{
		Use:   "mysql",
		Short: "Read a MySQL database from information_schema into a new schema",
		Long: "Read tables, columns, constraints, foreign keys and indexes from\n" +
			"information_schema. Only SELECT statements are issued. The DSN uses the\n" +
			"go-sql-driver format (user:pass@tcp(host:3306)/db) and comes from --dsn,\n" +
			"mysql_dsn in config.yaml, or SCHEMATA_MYSQL_DSN.",
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				dsn, err := a.dsnOrConfig(dsn, cfgKeyMySQLDSN, "MySQL")
				if err != nil {
					return err
				}
				ctx := cmd.Context()
				db, named, err := introspect.ConnectMySQL(ctx, dsn)
				if err != nil {
					return err
				}
				defer db.Close()

				if database == "" {
					database = named
				}
				cat, err := introspect.FetchMySQL(ctx, db, database)
				if err != nil {
					return fmt.Errorf("read catalog: %w", err)
				}
				return a.applyCatalog(cmd, "mysql", as, cat)
			})
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "MySQL connection string")
	cmd.Flags().StringVar(&database, "database", "", "database to read (default: the one named in the DSN)")
	cmd.Flags().StringVar(&as, "as", "", "name of the new schema (default: the database name)")
	return cmd
}
