package table

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// Transpose swaps rows and columns. Identifier values become the new column
// names and the former data column names fill the identifier column. Cell
// types are kept when every data column shares one; mixed numeric columns
// become float64 and any other mix becomes utf8.
func (t *Table) Transpose() (*Table, error) {
	index := t.index
	if index == "" {
		index = DefaultIndex
	}

	dataNames := t.DataColumnNames()
	ids := t.Identifiers()

	cols := make([]arrow.Array, len(dataNames))
	for i, name := range dataNames {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	cellType := commonType(cols)

	fields := make([]arrow.Field, 0, len(ids)+1)
	fields = append(fields, arrow.Field{Name: index, Type: arrow.BinaryTypes.String, Nullable: true})
	columns := make([][]interface{}, 0, len(ids)+1)

	names := make([]interface{}, len(dataNames))
	for i, name := range dataNames {
		names[i] = name
	}
	columns = append(columns, names)

	for r, id := range ids {
		fields = append(fields, arrow.Field{Name: id, Type: cellType, Nullable: true})
		values := make([]interface{}, len(cols))
		for c, col := range cols {
			values[c] = ValueAt(col, r)
		}
		columns = append(columns, values)
	}

	return FromTypedValues(arrow.NewSchema(fields, nil), columns, index)
}

// commonType returns the single storage type able to hold every cell of cols
func commonType(cols []arrow.Array) arrow.DataType {
	if len(cols) == 0 {
		return arrow.BinaryTypes.String
	}

	first := storageType(cols[0].DataType())
	same, numeric := true, true
	for _, col := range cols {
		st := storageType(col.DataType())
		if !arrow.TypeEqual(st, first) {
			same = false
		}
		if !IsNumeric(st) {
			numeric = false
		}
	}

	switch {
	case same:
		return first
	case numeric:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

// storageType maps an Arrow type onto the four types tables are built from
func storageType(dt arrow.DataType) arrow.DataType {
	switch dt.ID() {
	case arrow.BOOL:
		return arrow.FixedWidthTypes.Boolean
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return arrow.PrimitiveTypes.Int64
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return arrow.PrimitiveTypes.Float64
	case arrow.DICTIONARY:
		return storageType(dt.(*arrow.DictionaryType).ValueType)
	default:
		return arrow.BinaryTypes.String
	}
}
