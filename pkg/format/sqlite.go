package format

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	_ "modernc.org/sqlite"

	"github.com/ajitpratap0/shapeshifter/pkg/compression"
	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/pool"
	stringpool "github.com/ajitpratap0/shapeshifter/pkg/strings"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// sqliteTable is the table holding the rows inside a SQLite file
const sqliteTable = "data"

// sqliteAdapter stores a table as the single table "data" of a SQLite
// database. Column types are declared as TEXT, INTEGER, REAL or BOOLEAN.
type sqliteAdapter struct{}

func (a *sqliteAdapter) Format() Format { return SQLite }

func (a *sqliteAdapter) Read(ctx context.Context, path string, opts ReadOptions) (*table.Table, error) {
	db, cleanup, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	all, err := sqliteColumns(ctx, db)
	if err != nil {
		return nil, err
	}
	selected := all
	if len(opts.Columns) > 0 {
		selected = make([]string, 0, len(opts.Columns)+1)
		if contains(all, opts.index()) {
			selected = append(selected, opts.index())
		}
		for _, name := range opts.Columns {
			if !contains(all, name) {
				return nil, errors.ColumnNotFound(name)
			}
			if !contains(selected, name) {
				selected = append(selected, name)
			}
		}
	}

	sb := stringpool.NewSQLBuilder(64 + 16*len(selected))
	defer sb.Close()
	sb.WriteQuery("SELECT ").WriteIdentifierList(selected).
		WriteQuery(" FROM ").WriteIdentifier(sqliteTable).
		WriteQuery(" ORDER BY rowid")

	rows, err := db.QueryContext(ctx, sb.String())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to query sqlite table").WithDetail("path", path)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read sqlite column types")
	}

	columns := make([][]interface{}, len(selected))
	cells := make([]interface{}, len(selected))
	ptrs := make([]interface{}, len(selected))
	for i := range cells {
		ptrs[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan sqlite row")
		}
		for i, v := range cells {
			columns[i] = append(columns[i], sqliteValue(colTypes[i].DatabaseTypeName(), v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read sqlite rows")
	}

	fields := make([]arrow.Field, len(selected))
	for i, name := range selected {
		dt := sqliteArrowType(colTypes[i].DatabaseTypeName())
		if dt == nil {
			dt = table.InferType(columns[i])
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	for i := range columns {
		if columns[i] == nil {
			columns[i] = []interface{}{}
		}
	}
	return table.FromTypedValues(arrow.NewSchema(fields, nil), columns, opts.index())
}

func (a *sqliteAdapter) Write(ctx context.Context, t *table.Table, path string, opts WriteOptions) (string, error) {
	final := outputPath(path, opts)
	alg := compression.FromPath(final)

	target := final
	if alg != compression.None {
		tmp, err := os.CreateTemp(filepath.Dir(final), ".shapeshifter-*.sqlite")
		if err != nil {
			return "", fileError(err, "failed to create temporary file", final)
		}
		target = tmp.Name()
		tmp.Close()
		defer os.Remove(target)
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return "", fileError(err, "failed to replace file", target)
	}

	if err := a.writeDB(ctx, t, target); err != nil {
		return "", err
	}
	if alg == compression.None {
		return final, nil
	}

	src, err := os.Open(target)
	if err != nil {
		return "", fileError(err, "failed to open file", target)
	}
	defer src.Close()

	out, err := createFile(final, alg, opts.Level)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", fileError(err, "failed to write file", final)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return final, nil
}

func (a *sqliteAdapter) writeDB(ctx context.Context, t *table.Table, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to open sqlite database").WithDetail("path", path)
	}
	defer db.Close()

	names := t.ColumnNames()

	create := stringpool.NewSQLBuilder(64 + 24*len(names))
	defer create.Close()
	create.WriteQuery("CREATE TABLE ").WriteIdentifier(sqliteTable).WriteQuery(" (")
	for i, f := range t.Schema().Fields() {
		if i > 0 {
			create.WriteQuery(", ")
		}
		create.WriteIdentifier(f.Name).WriteQuery(" ").WriteQuery(sqliteDeclType(f.Type))
	}
	create.WriteQuery(")")
	if _, err := db.ExecContext(ctx, create.String()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to create sqlite table")
	}

	insert := stringpool.NewSQLBuilder(64 + 24*len(names))
	defer insert.Close()
	insert.WriteQuery("INSERT INTO ").WriteIdentifier(sqliteTable).
		WriteQuery(" (").WriteIdentifierList(names).
		WriteQuery(") VALUES (").WritePlaceholders(len(names)).WriteQuery(")")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to begin sqlite transaction")
	}
	stmt, err := tx.PrepareContext(ctx, insert.String())
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, errors.ErrorTypeData, "failed to prepare sqlite insert")
	}
	defer stmt.Close()

	rec := t.Record()
	row := pool.GetValues(t.NumCols())
	defer pool.PutValues(row)
	for r := 0; r < t.NumRows(); r++ {
		for c := range row {
			v := table.ValueAt(rec.Column(c), r)
			if u, ok := v.(uint64); ok {
				// database/sql rejects uint64 above math.MaxInt64
				if i, ok := table.AsInt(u); ok {
					v = i
				} else {
					v = float64(u)
				}
			}
			row[c] = v
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			tx.Rollback()
			return errors.Wrap(err, errors.ErrorTypeData, "failed to insert sqlite row")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to commit sqlite rows")
	}
	return nil
}

func (a *sqliteAdapter) ListColumns(ctx context.Context, path string, index string) ([]string, error) {
	db, cleanup, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	names, err := sqliteColumns(ctx, db)
	if err != nil {
		return nil, err
	}
	return dataColumns(names, indexOr(index)), nil
}

// openSQLite opens the database at path. Compressed files are first
// expanded into a temporary file, removed by the returned cleanup.
func openSQLite(path string) (*sql.DB, func(), error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fileError(err, "failed to open file", path)
	}

	local := path
	var remove func()
	if compression.FromPath(path) != compression.None {
		data, err := readBytes(path)
		if err != nil {
			return nil, nil, err
		}
		tmp, err := os.CreateTemp("", "shapeshifter-*.sqlite")
		if err != nil {
			return nil, nil, fileError(err, "failed to create temporary file", path)
		}
		local = tmp.Name()
		remove = func() { os.Remove(local) }
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			remove()
			return nil, nil, fileError(err, "failed to write temporary file", local)
		}
		tmp.Close()
	}

	db, err := sql.Open("sqlite", local)
	if err != nil {
		if remove != nil {
			remove()
		}
		return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open sqlite database").WithDetail("path", path)
	}
	cleanup := func() {
		db.Close()
		if remove != nil {
			remove()
		}
	}
	return db, cleanup, nil
}

func sqliteColumns(ctx context.Context, db *sql.DB) ([]string, error) {
	sb := stringpool.NewSQLBuilder(64)
	defer sb.Close()
	sb.WriteQuery("SELECT name FROM pragma_table_info(").WriteStringLiteral(sqliteTable).
		WriteQuery(") ORDER BY cid")

	rows, err := db.QueryContext(ctx, sb.String())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read sqlite columns")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read sqlite columns")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read sqlite columns")
	}
	if len(names) == 0 {
		return nil, errors.New(errors.ErrorTypeData, "sqlite file has no "+sqliteTable+" table")
	}
	return names, nil
}

func sqliteDeclType(dt arrow.DataType) string {
	switch typeName(dt) {
	case "bool":
		return "BOOLEAN"
	case "int64":
		return "INTEGER"
	case "float64":
		return "REAL"
	default:
		return "TEXT"
	}
}

// sqliteArrowType maps a declared column type; nil means infer from values
func sqliteArrowType(decl string) arrow.DataType {
	switch strings.ToUpper(decl) {
	case "BOOLEAN", "BOOL":
		return arrow.FixedWidthTypes.Boolean
	case "INTEGER", "INT", "BIGINT":
		return arrow.PrimitiveTypes.Int64
	case "REAL", "DOUBLE", "FLOAT":
		return arrow.PrimitiveTypes.Float64
	case "TEXT", "VARCHAR":
		return arrow.BinaryTypes.String
	}
	return nil
}

func sqliteValue(decl string, v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil
	}
	switch sqliteArrowType(decl) {
	case arrow.FixedWidthTypes.Boolean:
		switch x := v.(type) {
		case int64:
			return x != 0
		case bool:
			return x
		}
	case arrow.PrimitiveTypes.Float64:
		if x, ok := v.(int64); ok {
			return float64(x)
		}
	case arrow.BinaryTypes.String:
		if _, ok := v.(string); !ok {
			return table.FormatValue(v)
		}
	}
	return v
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
