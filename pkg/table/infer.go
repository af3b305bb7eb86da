package table

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
)

// NullTokens are the cell values read as null from delimited text
var NullTokens = []string{"NA", ""}

// IsNullToken reports whether s is one of NullTokens
func IsNullToken(s string) bool {
	for _, tok := range NullTokens {
		if s == tok {
			return true
		}
	}
	return false
}

type textKind int

const (
	textNull textKind = iota
	textInt
	textFloat
	textBool
	textString
)

func classifyText(s string) textKind {
	if IsNullToken(s) {
		return textNull
	}
	if paddedNumber(s) {
		return textString
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return textInt
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return textFloat
	}
	switch s {
	case "True", "False", "true", "false":
		return textBool
	}
	return textString
}

// paddedNumber reports whether s carries a sign or leading zeros that a
// number would lose when written back, as in "+3" or "007"
func paddedNumber(s string) bool {
	if s != "" && s[0] == '+' {
		return true
	}
	if s != "" && s[0] == '-' {
		s = s[1:]
	}
	return len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9'
}

// InferTextType returns the column type for a column of text cells: int64
// when every non-null cell is an integer, float64 when every cell is a
// number, bool when every cell is a boolean word, utf8 otherwise.
func InferTextType(cells []string) arrow.DataType {
	kind := textNull
	for _, cell := range cells {
		k := classifyText(cell)
		switch {
		case k == textNull || k == kind:
		case kind == textNull:
			kind = k
		case (kind == textInt && k == textFloat) || (kind == textFloat && k == textInt):
			kind = textFloat
		default:
			return arrow.BinaryTypes.String
		}
	}

	switch kind {
	case textInt:
		return arrow.PrimitiveTypes.Int64
	case textFloat:
		return arrow.PrimitiveTypes.Float64
	case textBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// InferTextSchema infers a schema from a header and row-major text records
func InferTextSchema(header []string, records [][]string) *arrow.Schema {
	fields := make([]arrow.Field, len(header))
	cells := make([]string, len(records))
	for c, name := range header {
		for r, rec := range records {
			if c < len(rec) {
				cells[r] = rec[c]
			} else {
				cells[r] = ""
			}
		}
		fields[c] = arrow.Field{Name: name, Type: InferTextType(cells), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}
