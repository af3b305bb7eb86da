package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	stringpool "github.com/ajitpratap0/shapeshifter/pkg/strings"
)

// ValueAt returns the Go value at row i of arr: bool, int64, uint64,
// float64 or string. Nulls are returned as nil.
func ValueAt(arr arrow.Array, i int) interface{} {
	if arr.IsNull(i) {
		return nil
	}

	switch c := arr.(type) {
	case *array.Boolean:
		return c.Value(i)
	case *array.Int8:
		return int64(c.Value(i))
	case *array.Int16:
		return int64(c.Value(i))
	case *array.Int32:
		return int64(c.Value(i))
	case *array.Int64:
		return c.Value(i)
	case *array.Uint8:
		return uint64(c.Value(i))
	case *array.Uint16:
		return uint64(c.Value(i))
	case *array.Uint32:
		return uint64(c.Value(i))
	case *array.Uint64:
		return c.Value(i)
	case *array.Float32:
		return float64(c.Value(i))
	case *array.Float64:
		return c.Value(i)
	case *array.String:
		return c.Value(i)
	case *array.LargeString:
		return c.Value(i)
	case *array.Binary:
		return string(c.Value(i))
	case *array.Dictionary:
		// categorical columns written by dataframe libraries
		return ValueAt(c.Dictionary(), c.GetValueIndex(i))
	default:
		return arr.ValueStr(i)
	}
}

// FormatValue renders a cell for delimited text. Floats always carry a
// decimal point or exponent so they read back as floats.
func FormatValue(v interface{}) string {
	switch f := v.(type) {
	case float64:
		return formatFloat(f)
	case float32:
		return formatFloat(float64(f))
	}
	return stringpool.ValueToString(v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// AsFloat converts a numeric Go value to float64
func AsFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// AsInt converts an integer Go value to int64. Unsigned values above
// math.MaxInt64 do not fit and report false.
func AsInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	}
	return 0, false
}

// IsNumeric reports whether dt holds numbers
func IsNumeric(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return true
	}
	return false
}

// InferType picks the narrowest column type that holds every value:
// bool, int64, float64 or utf8. Columns of nulls only become utf8.
func InferType(values []interface{}) arrow.DataType {
	var sawBool, sawInt, sawFloat, sawOther bool
	for _, v := range values {
		if v == nil {
			continue
		}
		switch v.(type) {
		case bool:
			sawBool = true
		case float32, float64:
			sawFloat = true
		default:
			if _, ok := AsInt(v); ok {
				sawInt = true
			} else if _, ok := AsFloat(v); ok {
				sawFloat = true
			} else {
				sawOther = true
			}
		}
	}

	switch {
	case sawOther:
		return arrow.BinaryTypes.String
	case sawBool && !sawInt && !sawFloat:
		return arrow.FixedWidthTypes.Boolean
	case sawBool:
		return arrow.BinaryTypes.String
	case sawFloat:
		return arrow.PrimitiveTypes.Float64
	case sawInt:
		return arrow.PrimitiveTypes.Int64
	default:
		return arrow.BinaryTypes.String
	}
}

// FromValues builds a table from column-major Go values, inferring each
// column's type with InferType
func FromValues(names []string, columns [][]interface{}, index string) (*Table, error) {
	if len(names) != len(columns) {
		return nil, errors.Newf(errors.ErrorTypeInternal, "%d names for %d columns", len(names), len(columns))
	}

	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: InferType(columns[i]), Nullable: true}
	}
	return FromTypedValues(arrow.NewSchema(fields, nil), columns, index)
}

// FromTypedValues builds a table with an explicit schema from column-major values
func FromTypedValues(schema *arrow.Schema, columns [][]interface{}, index string) (*Table, error) {
	if schema.NumFields() != len(columns) {
		return nil, errors.Newf(errors.ErrorTypeInternal, "schema has %d fields for %d columns", schema.NumFields(), len(columns))
	}

	rows := -1
	for i, col := range columns {
		if rows >= 0 && len(col) != rows {
			return nil, errors.Newf(errors.ErrorTypeData, "column %q has %d values, expected %d", schema.Field(i).Name, len(col), rows)
		}
		rows = len(col)
	}

	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()

	for i, col := range columns {
		fb := bldr.Field(i)
		for _, v := range col {
			if err := appendValue(fb, v); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to build column "+schema.Field(i).Name)
			}
		}
	}

	return New(bldr.NewRecord(), index), nil
}

func appendValue(builder array.Builder, value interface{}) error {
	if value == nil {
		builder.AppendNull()
		return nil
	}

	switch b := builder.(type) {
	case *array.BooleanBuilder:
		v, ok := value.(bool)
		if !ok {
			return errors.Newf(errors.ErrorTypeData, "cannot store %T in a boolean column", value)
		}
		b.Append(v)

	case *array.Int64Builder:
		v, ok := AsInt(value)
		if !ok {
			return errors.Newf(errors.ErrorTypeData, "cannot store %T in an integer column", value)
		}
		b.Append(v)

	case *array.Float64Builder:
		v, ok := AsFloat(value)
		if !ok {
			return errors.Newf(errors.ErrorTypeData, "cannot store %T in a float column", value)
		}
		b.Append(v)

	case *array.StringBuilder:
		if v, ok := value.(string); ok {
			b.Append(v)
		} else {
			b.Append(FormatValue(value))
		}

	default:
		return errors.Newf(errors.ErrorTypeCapability, "unsupported builder type: %T", builder)
	}

	return nil
}

// ColumnValues returns every cell of the named column as Go values
func (t *Table) ColumnValues(name string) ([]interface{}, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, col.Len())
	for i := range out {
		out[i] = ValueAt(col, i)
	}
	return out, nil
}

// Rows returns the table row-major, in column order
func (t *Table) Rows() [][]interface{} {
	rows := make([][]interface{}, t.NumRows())
	for r := range rows {
		row := make([]interface{}, t.NumCols())
		for c := range row {
			row[c] = ValueAt(t.record.Column(c), r)
		}
		rows[r] = row
	}
	return rows
}
