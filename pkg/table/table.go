// Package table provides the in-memory tabular model shared by every format
// adapter. A Table wraps a single Arrow record and remembers which column, if
// any, holds the sample identifier.
package table

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	stringpool "github.com/ajitpratap0/shapeshifter/pkg/strings"
)

// DefaultIndex is the conventional name of the sample identifier column
const DefaultIndex = "Sample"

// Table is an ordered set of named, row-aligned columns
type Table struct {
	record arrow.Record
	index  string
	mem    memory.Allocator
}

// New wraps rec. index names the sample identifier column; it is ignored
// when rec has no column with that name. The table takes ownership of rec.
func New(rec arrow.Record, index string) *Table {
	t := &Table{record: rec, mem: memory.DefaultAllocator}
	if index != "" && len(rec.Schema().FieldIndices(index)) > 0 {
		t.index = index
	}
	return t
}

// Empty returns a zero-row table with the given schema
func Empty(schema *arrow.Schema, index string) *Table {
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()
	return New(bldr.NewRecord(), index)
}

// Record returns the underlying Arrow record
func (t *Table) Record() arrow.Record { return t.record }

// Schema returns the Arrow schema
func (t *Table) Schema() *arrow.Schema { return t.record.Schema() }

// Index returns the identifier column name, or "" when the table has none
func (t *Table) Index() string { return t.index }

// HasIndex reports whether the table carries an identifier column
func (t *Table) HasIndex() bool { return t.index != "" }

// NumRows returns the number of rows
func (t *Table) NumRows() int { return int(t.record.NumRows()) }

// NumCols returns the number of columns, identifier included
func (t *Table) NumCols() int { return int(t.record.NumCols()) }

// Release releases the underlying record
func (t *Table) Release() {
	if t.record != nil {
		t.record.Release()
	}
}

// ColumnNames returns all column names in order
func (t *Table) ColumnNames() []string {
	fields := t.Schema().Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// DataColumnNames returns the column names without the identifier column
func (t *Table) DataColumnNames() []string {
	names := make([]string, 0, t.NumCols())
	for _, f := range t.Schema().Fields() {
		if f.Name == t.index {
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

// ColumnIndex returns the position of the named column or -1
func (t *Table) ColumnIndex(name string) int {
	idx := t.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return -1
	}
	return idx[0]
}

// Column returns the named column
func (t *Table) Column(name string) (arrow.Array, error) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return nil, errors.ColumnNotFound(name)
	}
	return t.record.Column(i), nil
}

// Value returns the cell at (row, column name) as a Go value; nil for null
func (t *Table) Value(column string, row int) (interface{}, error) {
	col, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= col.Len() {
		return nil, errors.Newf(errors.ErrorTypeValidation, "row %d out of range [0, %d)", row, col.Len())
	}
	return ValueAt(col, row), nil
}

// Identifiers returns the identifier of every row as text. Tables without an
// identifier column use the row position.
func (t *Table) Identifiers() []string {
	ids := make([]string, t.NumRows())
	if !t.HasIndex() {
		for i := range ids {
			ids[i] = fmt.Sprint(i)
		}
		return ids
	}

	col, _ := t.Column(t.index)
	for i := range ids {
		ids[i] = FormatValue(ValueAt(col, i))
	}
	return ids
}

// Select projects the table onto names. The identifier column is kept as the
// first column even when names does not mention it. An empty names slice
// selects every column.
func (t *Table) Select(names []string) (*Table, error) {
	if len(names) == 0 {
		t.record.Retain()
		return &Table{record: t.record, index: t.index, mem: t.mem}, nil
	}

	indices := make([]int, 0, len(names)+1)
	seen := make(map[string]bool, len(names)+1)
	if t.HasIndex() {
		indices = append(indices, t.ColumnIndex(t.index))
		seen[t.index] = true
	}
	for _, name := range names {
		if seen[name] {
			continue
		}
		i := t.ColumnIndex(name)
		if i < 0 {
			return nil, errors.ColumnNotFound(name)
		}
		indices = append(indices, i)
		seen[name] = true
	}

	fields := make([]arrow.Field, len(indices))
	cols := make([]arrow.Array, len(indices))
	for j, i := range indices {
		fields[j] = t.Schema().Field(i)
		cols[j] = t.record.Column(i)
	}

	meta := t.Schema().Metadata()
	rec := array.NewRecord(arrow.NewSchema(fields, &meta), cols, t.record.NumRows())
	return &Table{record: rec, index: t.index, mem: t.mem}, nil
}

// Head returns the first n rows
func (t *Table) Head(n int) *Table {
	if n < 0 || n > t.NumRows() {
		n = t.NumRows()
	}
	return &Table{record: t.record.NewSlice(0, int64(n)), index: t.index, mem: t.mem}
}

// Filter keeps the rows whose mask entry is true
func (t *Table) Filter(ctx context.Context, mask []bool) (*Table, error) {
	if len(mask) != t.NumRows() {
		return nil, errors.Newf(errors.ErrorTypeInternal, "mask has %d entries for %d rows", len(mask), t.NumRows())
	}

	bldr := array.NewBooleanBuilder(t.mem)
	defer bldr.Release()
	bldr.AppendValues(mask, nil)
	filter := bldr.NewArray()
	defer filter.Release()

	rec, err := compute.FilterRecordBatch(ctx, t.record, filter, compute.DefaultFilterOptions())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to filter rows")
	}
	return &Table{record: rec, index: t.index, mem: t.mem}, nil
}

// Equal reports whether both tables hold the same columns, values and order.
// Field metadata and nullability are not compared.
func (t *Table) Equal(other *Table) bool {
	if other == nil || t.NumCols() != other.NumCols() || t.NumRows() != other.NumRows() {
		return false
	}
	for i := 0; i < t.NumCols(); i++ {
		a, b := t.Schema().Field(i), other.Schema().Field(i)
		if a.Name != b.Name || !arrow.TypeEqual(a.Type, b.Type) {
			return false
		}
		if !array.Equal(t.record.Column(i), other.record.Column(i)) {
			return false
		}
	}
	return true
}

// String renders the table as tab separated text, for logs and debugging
func (t *Table) String() string {
	return stringpool.BuildString(func(b *stringpool.Builder) {
		b.WriteString(stringpool.JoinPooled(t.ColumnNames(), "\t"))
		for r := 0; r < t.NumRows(); r++ {
			b.WriteByte('\n')
			for c := 0; c < t.NumCols(); c++ {
				if c > 0 {
					b.WriteByte('\t')
				}
				v := ValueAt(t.record.Column(c), r)
				if v == nil {
					b.WriteString("NA")
					continue
				}
				b.WriteString(FormatValue(v))
			}
		}
	})
}
