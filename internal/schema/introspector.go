package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"dqc/internal/database"
	"dqc/internal/dialect"
	"dqc/internal/logger"

	"github.com/pkg/errors"
)

// Introspector reads table structure from catalog metadata. It never samples
// data except for exact row counts.
type Introspector struct {
	q      database.Querier
	d      dialect.Dialect
	schema string
	log    *logger.Logger
}

func NewIntrospector(q database.Querier, d dialect.Dialect, schemaName string, log *logger.Logger) *Introspector {
	return &Introspector{q: q, d: d, schema: schemaName, log: log}
}

func (in *Introspector) Schema() string { return in.schema }

// TableNames lists the base tables of the schema in lexical order.
func (in *Introspector) TableNames(ctx context.Context) ([]string, error) {
	rows, err := in.q.QueryContext(ctx, in.d.GetTablesQuery(), in.schema)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query tables")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan table name")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating tables")
	}

	sort.Strings(names)
	return names, nil
}

// DescribeTable returns the structure of one table. A name that differs from
// exactly one table only by case resolves to that table.
func (in *Introspector) DescribeTable(ctx context.Context, name string) (*Table, error) {
	columns, err := in.columns(ctx, name)
	if err != nil {
		return nil, err
	}

	if len(columns) == 0 {
		names, err := in.TableNames(ctx)
		if err != nil {
			return nil, err
		}
		resolved, ok := resolveName(name, names)
		if !ok {
			return nil, &TableNotFoundError{Name: name, Suggestions: Suggest(name, names)}
		}
		if resolved != name {
			in.log.Debugf("resolved table %q to %q", name, resolved)
			name = resolved
			if columns, err = in.columns(ctx, name); err != nil {
				return nil, err
			}
		}
	}

	t := &Table{Name: name, Schema: in.schema, Columns: columns}

	if t.PrimaryKey, err = in.primaryKey(ctx, name); err != nil {
		return nil, err
	}
	if t.ForeignKeys, err = in.foreignKeys(ctx, name); err != nil {
		return nil, err
	}
	if t.Indexes, err = in.indexes(ctx, name); err != nil {
		return nil, err
	}
	if t.RowEstimate, t.RowCountExact, err = in.estimateRows(ctx, name); err != nil {
		return nil, err
	}

	return t, nil
}

func (in *Introspector) columns(ctx context.Context, table string) ([]*Column, error) {
	rows, err := in.q.QueryContext(ctx, in.d.GetColumnsQuery(), in.schema, table)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query columns of %s", table)
	}
	defer rows.Close()

	var columns []*Column
	for rows.Next() {
		var cName, dType, isNull, def sql.NullString
		var pos sql.NullInt64
		if err := rows.Scan(&cName, &dType, &isNull, &def, &pos); err != nil {
			return nil, errors.Wrapf(err, "failed to scan column (table: %s)", table)
		}
		if !cName.Valid {
			continue
		}

		col := in.newColumn(cName.String, dType.String, isNull.String)
		col.Position = int(pos.Int64)
		if def.Valid {
			v := def.String
			col.Default = &v
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "error iterating columns of %s", table)
	}
	return columns, nil
}

func (in *Introspector) newColumn(name, dataType, nullable string) *Column {
	native := in.d.NormalizeType(dataType)
	return &Column{
		Name:       name,
		DataType:   native,
		Class:      Classify(native),
		IsNullable: strings.EqualFold(nullable, "YES"),
		Meaning:    AnalyzeMeaning(name),
	}
}

func (in *Introspector) primaryKey(ctx context.Context, table string) (*PrimaryKey, error) {
	rows, err := in.q.QueryContext(ctx, in.d.GetPrimaryKeyQuery(), in.schema, table)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query primary key of %s", table)
	}
	defer rows.Close()

	var pk *PrimaryKey
	for rows.Next() {
		var cName, cCol sql.NullString
		if err := rows.Scan(&cName, &cCol); err != nil {
			return nil, errors.Wrapf(err, "failed to scan primary key (table: %s)", table)
		}
		if pk == nil {
			pk = &PrimaryKey{Name: cName.String}
		}
		pk.Columns = append(pk.Columns, cCol.String)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "error iterating primary key of %s", table)
	}
	return pk, nil
}

// foreignKeys groups catalog rows by constraint name. Rows arrive ordered by
// constraint, then by key position.
func (in *Introspector) foreignKeys(ctx context.Context, table string) ([]*ForeignKey, error) {
	rows, err := in.q.QueryContext(ctx, in.d.GetForeignKeysQuery(), in.schema, table)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query foreign keys of %s", table)
	}
	defer rows.Close()

	var fks []*ForeignKey
	byName := make(map[string]*ForeignKey)
	for rows.Next() {
		var cConst, cName, rSchema, rTable, rCol sql.NullString
		if err := rows.Scan(&cConst, &cName, &rSchema, &rTable, &rCol); err != nil {
			return nil, errors.Wrapf(err, "failed to scan foreign key (table: %s)", table)
		}
		if !cName.Valid || !rTable.Valid || !rCol.Valid {
			continue
		}

		fk, ok := byName[cConst.String]
		if !ok {
			fk = &ForeignKey{Name: cConst.String, RefSchema: rSchema.String, RefTable: rTable.String}
			byName[cConst.String] = fk
			fks = append(fks, fk)
		}
		fk.Pairs = append(fk.Pairs, ColumnPair{Local: cName.String, Referenced: rCol.String})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "error iterating foreign keys of %s", table)
	}
	return fks, nil
}

func (in *Introspector) indexes(ctx context.Context, table string) ([]*Index, error) {
	rows, err := in.q.QueryContext(ctx, in.d.GetIndexesQuery(), in.schema, table)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query indexes of %s", table)
	}
	defer rows.Close()

	var idxs []*Index
	byName := make(map[string]*Index)
	for rows.Next() {
		var iName, cName sql.NullString
		var unique, primary int
		if err := rows.Scan(&iName, &cName, &unique, &primary); err != nil {
			return nil, errors.Wrapf(err, "failed to scan index (table: %s)", table)
		}
		idx, ok := byName[iName.String]
		if !ok {
			idx = &Index{Name: iName.String, Unique: unique == 1, Primary: primary == 1}
			byName[iName.String] = idx
			idxs = append(idxs, idx)
		}
		// expression key parts have no column name
		if cName.Valid {
			idx.Columns = append(idx.Columns, cName.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "error iterating indexes of %s", table)
	}
	return idxs, nil
}

// EstimateRows reads the catalog row estimate. Tables without statistics
// fall back to an exact count.
func (in *Introspector) EstimateRows(ctx context.Context, table string) (int64, error) {
	n, _, err := in.estimateRows(ctx, table)
	return n, err
}

// estimateRows also reports whether the number is an exact count.
func (in *Introspector) estimateRows(ctx context.Context, table string) (int64, bool, error) {
	var estimate sql.NullInt64
	err := in.q.QueryRowContext(ctx, in.d.GetRowEstimateQuery(), in.schema, table).Scan(&estimate)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, false, errors.Wrapf(err, "failed to estimate rows of %s", table)
	}
	if err == nil && estimate.Valid && estimate.Int64 >= 0 {
		return estimate.Int64, false, nil
	}
	in.log.Debugf("no statistics for %s, counting rows", table)
	n, err := in.CountRows(ctx, table)
	return n, err == nil, err
}

// CountRows runs an exact COUNT(*).
func (in *Introspector) CountRows(ctx context.Context, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", in.d.QualifiedTable(in.schema, table))
	in.log.Debug(query)

	var n int64
	if err := in.q.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "failed to count rows of %s", table)
	}
	return n, nil
}

// FindColumn looks a column up in every table of the schema with a single
// catalog query. Tables lacking the column get a match with a nil Column.
func (in *Introspector) FindColumn(ctx context.Context, column string) ([]ColumnMatch, error) {
	rows, err := in.q.QueryContext(ctx, in.d.GetAllColumnsQuery(), in.schema)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query columns")
	}
	defer rows.Close()

	found := make(map[string]*Column)
	var tables []string
	var allColumns []string
	seenColumn := make(map[string]bool)

	for rows.Next() {
		var tName, cName, dType, isNull sql.NullString
		if err := rows.Scan(&tName, &cName, &dType, &isNull); err != nil {
			return nil, errors.Wrap(err, "failed to scan column")
		}
		if !tName.Valid || !cName.Valid {
			continue
		}
		if _, ok := found[tName.String]; !ok {
			found[tName.String] = nil
			tables = append(tables, tName.String)
		}
		if !seenColumn[cName.String] {
			seenColumn[cName.String] = true
			allColumns = append(allColumns, cName.String)
		}

		if !strings.EqualFold(cName.String, column) {
			continue
		}
		// exact-case match beats a case-insensitive one
		if prev := found[tName.String]; prev == nil || (prev.Name != column && cName.String == column) {
			found[tName.String] = in.newColumn(cName.String, dType.String, isNull.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating columns")
	}

	sort.Strings(tables)
	matches := make([]ColumnMatch, 0, len(tables))
	hits := 0
	for _, name := range tables {
		if found[name] != nil {
			hits++
		}
		matches = append(matches, ColumnMatch{Table: name, Column: found[name]})
	}
	if hits == 0 {
		sort.Strings(allColumns)
		return matches, &ColumnNotFoundError{Name: column, Suggestions: Suggest(column, allColumns)}
	}
	return matches, nil
}
