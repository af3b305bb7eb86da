package format

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// splitTable is the column-ordered document layout shared by the JSON and
// MessagePack formats: column names, optional column types, then rows.
type splitTable struct {
	Columns []string        `json:"columns" msgpack:"columns"`
	Types   []string        `json:"types,omitempty" msgpack:"types,omitempty"`
	Data    [][]interface{} `json:"data" msgpack:"data"`
}

// newSplitTable lays t out by rows. encodeFloat converts non-null floats;
// NaN and infinities become null.
func newSplitTable(t *table.Table, encodeFloat func(float64) interface{}) *splitTable {
	s := &splitTable{
		Columns: t.ColumnNames(),
		Types:   make([]string, t.NumCols()),
		Data:    t.Rows(),
	}
	for i, f := range t.Schema().Fields() {
		s.Types[i] = typeName(f.Type)
	}
	for _, row := range s.Data {
		for c, v := range row {
			if f, ok := v.(float64); ok {
				if math.IsNaN(f) || math.IsInf(f, 0) {
					row[c] = nil
				} else {
					row[c] = encodeFloat(f)
				}
			}
		}
	}
	return s
}

// toTable rebuilds a table. decode turns each decoded cell into a bool,
// int64, float64, string or nil.
func (s *splitTable) toTable(index string, decode func(interface{}) (interface{}, error)) (*table.Table, error) {
	columns := make([][]interface{}, len(s.Columns))
	for c := range columns {
		columns[c] = make([]interface{}, len(s.Data))
	}
	for r, row := range s.Data {
		if len(row) != len(s.Columns) {
			return nil, errors.Newf(errors.ErrorTypeData, "row %d has %d values, expected %d", r, len(row), len(s.Columns))
		}
		for c, v := range row {
			cell, err := decode(v)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid value in column "+s.Columns[c])
			}
			columns[c][r] = cell
		}
	}

	if len(s.Types) != len(s.Columns) {
		return table.FromValues(s.Columns, columns, index)
	}

	fields := make([]arrow.Field, len(s.Columns))
	for i, name := range s.Columns {
		dt, err := typeFromName(s.Types[i])
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	return table.FromTypedValues(arrow.NewSchema(fields, nil), columns, index)
}

func typeName(dt arrow.DataType) string {
	switch {
	case dt.ID() == arrow.BOOL:
		return "bool"
	case dt.ID() == arrow.DICTIONARY:
		return typeName(dt.(*arrow.DictionaryType).ValueType)
	case table.IsNumeric(dt):
		switch dt.ID() {
		case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
			return "float64"
		}
		return "int64"
	default:
		return "utf8"
	}
}

func typeFromName(name string) (arrow.DataType, error) {
	switch name {
	case "bool":
		return arrow.FixedWidthTypes.Boolean, nil
	case "int64":
		return arrow.PrimitiveTypes.Int64, nil
	case "float64":
		return arrow.PrimitiveTypes.Float64, nil
	case "utf8":
		return arrow.BinaryTypes.String, nil
	}
	return nil, errors.New(errors.ErrorTypeData, "unknown column type: "+name)
}
