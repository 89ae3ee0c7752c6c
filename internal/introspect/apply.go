package introspect

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/schemata/internal/naming"
	"github.com/mesh-intelligence/schemata/internal/service"
	"github.com/mesh-intelligence/schemata/pkg/types"
)

// Skip records a catalog object the engine would not accept.
type Skip struct {
	Table  string `json:"table"`
	Object string `json:"object"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Report summarizes an import.
type Report struct {
	Schema        *types.Schema `json:"schema"`
	Tables        int           `json:"tables"`
	Columns       int           `json:"columns"`
	Constraints   int           `json:"constraints"`
	Relationships int           `json:"relationships"`
	Indexes       int           `json:"indexes"`
	Skipped       []Skip        `json:"skipped,omitempty"`
}

func (r *Report) skip(table, object, name string, err error) {
	r.Skipped = append(r.Skipped, Skip{Table: table, Object: object, Name: name, Reason: err.Error()})
}

// rejected reports whether err is a model rule violation rather than a
// storage failure.
func rejected(err error) bool {
	switch types.KindOf(err) {
	case types.KindInvalid, types.KindDuplicate, types.KindConflict:
		return true
	default:
		return false
	}
}

type importer struct {
	ctx    context.Context
	svc    *service.Services
	cat    *Catalog
	report *Report

	tables  map[string]*types.Table
	columns map[string]map[string]string
	names   naming.Set
	rels    naming.Set
	indexes naming.Set
}

// Apply creates a new schema named name (or the catalog's schema name when
// empty) and replays cat into it: tables and columns first, then primary
// keys, the remaining constraints, relationships and indexes. Objects the
// engine rejects are listed in the report; tables and columns are never
// skipped.
func Apply(ctx context.Context, svc *service.Services, name string, cat *Catalog) (*Report, error) {
	if name == "" {
		name = cat.Schema
	}
	res, err := svc.Schemas.CreateSchema(ctx, service.CreateSchemaRequest{
		Name:      name,
		Charset:   cat.Encoding,
		Collation: cat.Collation,
	})
	if err != nil {
		return nil, fmt.Errorf("creating schema %s: %w", name, err)
	}

	im := &importer{
		ctx:     ctx,
		svc:     svc,
		cat:     cat,
		report:  &Report{Schema: res.Payload},
		tables:  make(map[string]*types.Table),
		columns: make(map[string]map[string]string),
		names:   naming.NewSet(),
		rels:    naming.NewSet(),
		indexes: naming.NewSet(),
	}
	for _, t := range cat.Tables {
		if err := im.table(t); err != nil {
			return im.report, err
		}
	}
	for _, t := range cat.Tables {
		if pk := t.PrimaryKey(); pk != nil {
			if err := im.constraint(t, *pk); err != nil {
				return im.report, err
			}
		}
	}
	for _, t := range cat.Tables {
		if err := im.secondary(t); err != nil {
			return im.report, err
		}
	}
	for _, t := range cat.Tables {
		for _, fk := range t.ForeignKeys {
			if err := im.relationship(t, fk); err != nil {
				return im.report, err
			}
		}
	}
	for _, t := range cat.Tables {
		for _, ix := range t.Indexes {
			if err := im.index(t, ix); err != nil {
				return im.report, err
			}
		}
	}
	return im.report, nil
}

func (im *importer) table(t *Table) error {
	res, err := im.svc.Schemas.CreateTable(im.ctx, service.CreateTableRequest{
		SchemaID:  im.report.Schema.SchemaID,
		Name:      t.Name,
		Charset:   t.Charset,
		Collation: t.Collation,
		Comment:   t.Comment,
	})
	if err != nil {
		return fmt.Errorf("creating table %s: %w", t.Name, err)
	}
	im.tables[t.Name] = res.Payload
	im.report.Tables++

	cols := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		res, err := im.svc.Columns.CreateColumn(im.ctx, service.CreateColumnRequest{
			TableID: im.tables[t.Name].TableID,
			Name:    c.Name,
			Type: types.ColumnType{
				DataType:  c.DataType,
				Length:    c.Length,
				Precision: c.Precision,
				Scale:     c.Scale,
			},
			AutoIncrement: c.AutoIncrement,
			Charset:       c.Charset,
			Collation:     c.Collation,
			Comment:       c.Comment,
		})
		if err != nil {
			return fmt.Errorf("creating column %s.%s: %w", t.Name, c.Name, err)
		}
		cols[c.Name] = res.Payload.ColumnID
		im.report.Columns++
	}
	im.columns[t.Name] = cols
	return nil
}

// columnIDs resolves column names of table t.
func (im *importer) columnIDs(t string, names []string) ([]string, error) {
	ids := make([]string, len(names))
	for i, n := range names {
		id, ok := im.columns[t][n]
		if !ok {
			return nil, fmt.Errorf("column %s.%s: %w", t, n, types.ErrColumnNotFound)
		}
		ids[i] = id
	}
	return ids, nil
}

// constraint creates con on t under a schema-unique name.
func (im *importer) constraint(t *Table, con Constraint) error {
	ids, err := im.columnIDs(t.Name, con.Columns)
	if err != nil {
		im.report.skip(t.Name, "constraint", con.Name, err)
		return nil
	}
	name := naming.UniqueIn(con.Name, im.names)
	req := service.CreateConstraintRequest{
		TableID:   im.tables[t.Name].TableID,
		Name:      name,
		Kind:      con.Kind,
		ColumnIDs: ids,
	}
	switch con.Kind {
	case types.ConstraintCheck:
		req.CheckExpr = con.Expr
	case types.ConstraintDefault:
		req.DefaultExpr = con.Expr
	}
	if _, err := im.svc.Constraints.CreateConstraint(im.ctx, req); err != nil {
		if rejected(err) {
			im.report.skip(t.Name, "constraint", con.Name, err)
			return nil
		}
		return fmt.Errorf("creating constraint %s: %w", con.Name, err)
	}
	im.names.Add(name)
	im.report.Constraints++
	return nil
}

// secondary creates unique and check constraints, then NOT NULL and
// DEFAULT constraints for the columns that carry them.
func (im *importer) secondary(t *Table) error {
	inKey := make(map[string]bool)
	if pk := t.PrimaryKey(); pk != nil {
		for _, c := range pk.Columns {
			inKey[c] = true
		}
	}
	for _, con := range t.Constraints {
		if con.Kind == types.ConstraintPrimaryKey {
			continue
		}
		if err := im.constraint(t, con); err != nil {
			return err
		}
	}
	for _, c := range t.Columns {
		if c.NotNull && !inKey[c.Name] {
			con := Constraint{Name: "nn_" + t.Name + "_" + c.Name, Kind: types.ConstraintNotNull, Columns: []string{c.Name}}
			if err := im.constraint(t, con); err != nil {
				return err
			}
		}
		if c.Default != "" && !c.AutoIncrement {
			con := Constraint{Name: "df_" + t.Name + "_" + c.Name, Kind: types.ConstraintDefault, Columns: []string{c.Name}, Expr: c.Default}
			if err := im.constraint(t, con); err != nil {
				return err
			}
		}
	}
	return nil
}

// cardinality is ONE_TO_ONE when the foreign key columns are exactly the
// child's primary key or one of its unique constraints.
func cardinality(t *Table, fk ForeignKey) types.Cardinality {
	for _, con := range t.Constraints {
		if con.Kind != types.ConstraintPrimaryKey && con.Kind != types.ConstraintUnique {
			continue
		}
		if sameColumns(con.Columns, fk.Columns) {
			return types.CardinalityOneToOne
		}
	}
	return types.CardinalityOneToMany
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if !set[c] {
			return false
		}
	}
	return true
}

// relationship links fk's columns to the parent key. A foreign key held
// entirely in the child key becomes identifying, unless that would close an
// identifying cycle.
func (im *importer) relationship(t *Table, fk ForeignKey) error {
	parent, ok := im.tables[fk.ParentTable]
	if !ok {
		im.report.skip(t.Name, "relationship", fk.Name, fmt.Errorf("table %s: %w", fk.ParentTable, types.ErrTableNotFound))
		return nil
	}
	childIDs, err := im.columnIDs(t.Name, fk.Columns)
	if err != nil {
		im.report.skip(t.Name, "relationship", fk.Name, err)
		return nil
	}
	parentIDs, err := im.columnIDs(fk.ParentTable, fk.ParentColumns)
	if err != nil {
		im.report.skip(t.Name, "relationship", fk.Name, err)
		return nil
	}
	pairs := make([]service.ColumnPair, len(childIDs))
	for i := range childIDs {
		pairs[i] = service.ColumnPair{ParentColumnID: parentIDs[i], ChildColumnID: childIDs[i]}
	}

	kind := types.RelationshipNonIdentifying
	if t.Identifying(fk) {
		kind = types.RelationshipIdentifying
	}
	name := naming.UniqueIn(fk.Name, im.rels)
	req := service.CreateRelationshipRequest{
		ParentTableID: parent.TableID,
		ChildTableID:  im.tables[t.Name].TableID,
		Name:          name,
		Kind:          kind,
		Cardinality:   cardinality(t, fk),
		Columns:       pairs,
	}
	_, err = im.svc.Relationships.CreateRelationship(im.ctx, req)
	if errors.Is(err, types.ErrIdentifyingCycle) {
		req.Kind = types.RelationshipNonIdentifying
		_, err = im.svc.Relationships.CreateRelationship(im.ctx, req)
	}
	if err != nil {
		if rejected(err) {
			im.report.skip(t.Name, "relationship", fk.Name, err)
			return nil
		}
		return fmt.Errorf("creating relationship %s: %w", fk.Name, err)
	}
	im.rels.Add(name)
	im.report.Relationships++
	return nil
}

func (im *importer) index(t *Table, ix Index) error {
	typ, ok := IndexType(ix.Method)
	if !ok {
		im.report.skip(t.Name, "index", ix.Name, fmt.Errorf("access method %q: %w", ix.Method, types.ErrInvalidIndexType))
		return nil
	}
	names := make([]string, len(ix.Columns))
	for i, c := range ix.Columns {
		names[i] = c.Name
	}
	ids, err := im.columnIDs(t.Name, names)
	if err != nil {
		im.report.skip(t.Name, "index", ix.Name, err)
		return nil
	}
	specs := make([]service.IndexColumnSpec, len(ids))
	for i, id := range ids {
		specs[i] = service.IndexColumnSpec{ColumnID: id, SortDir: types.SortAsc}
		if ix.Columns[i].Desc {
			specs[i].SortDir = types.SortDesc
		}
	}
	name := naming.UniqueIn(ix.Name, im.indexes)
	_, err = im.svc.Indexes.CreateIndex(im.ctx, service.CreateIndexRequest{
		TableID: im.tables[t.Name].TableID,
		Name:    name,
		Type:    typ,
		Columns: specs,
	})
	if err != nil {
		if rejected(err) {
			im.report.skip(t.Name, "index", ix.Name, err)
			return nil
		}
		return fmt.Errorf("creating index %s: %w", ix.Name, err)
	}
	im.indexes.Add(name)
	im.report.Indexes++
	return nil
}
