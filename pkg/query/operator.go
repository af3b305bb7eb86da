package query

import (
	"strconv"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
)

// Operator is a comparison between a column and a literal
type Operator int

// The zero Operator is invalid.
const (
	Equals Operator = iota + 1
	NotEquals
	LessThan
	LessThanOrEqualTo
	GreaterThan
	GreaterThanOrEqualTo
)

var operatorSymbols = map[Operator]string{
	Equals:               "==",
	NotEquals:            "!=",
	LessThan:             "<",
	LessThanOrEqualTo:    "<=",
	GreaterThan:          ">",
	GreaterThanOrEqualTo: ">=",
}

var operatorNames = map[Operator]string{
	Equals:               "Equals",
	NotEquals:            "NotEquals",
	LessThan:             "LessThan",
	LessThanOrEqualTo:    "LessThanOrEqualTo",
	GreaterThan:          "GreaterThan",
	GreaterThanOrEqualTo: "GreaterThanOrEqualTo",
}

// Symbol returns the textual form of the operator. Operators outside the
// fixed set fail with errors.ErrUnsupportedOperator.
func (o Operator) Symbol() (string, error) {
	s, ok := operatorSymbols[o]
	if !ok {
		return "", unsupportedOperator(o)
	}
	return s, nil
}

// Valid reports whether o is one of the six comparison operators
func (o Operator) Valid() bool {
	_, ok := operatorSymbols[o]
	return ok
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return "Operator(" + strconv.Itoa(int(o)) + ")"
}

// ParseOperator accepts a symbol ("==", ">=", ...; "=" for Equals) or a
// name ("GreaterThan", ...).
func ParseOperator(s string) (Operator, error) {
	if s == "=" {
		return Equals, nil
	}
	for op, sym := range operatorSymbols {
		if sym == s {
			return op, nil
		}
	}
	for op, name := range operatorNames {
		if name == s {
			return op, nil
		}
	}
	return 0, errors.New(errors.ErrorTypeQuery, "unsupported operator: "+s).
		WithKind(errors.ErrUnsupportedOperator)
}

// MarshalText implements encoding.TextMarshaler using the operator name
func (o Operator) MarshalText() ([]byte, error) {
	name, ok := operatorNames[o]
	if !ok {
		return nil, unsupportedOperator(o)
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (o *Operator) UnmarshalText(text []byte) error {
	op, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

func (o Operator) compare(cmp int) bool {
	switch o {
	case Equals:
		return cmp == 0
	case NotEquals:
		return cmp != 0
	case LessThan:
		return cmp < 0
	case LessThanOrEqualTo:
		return cmp <= 0
	case GreaterThan:
		return cmp > 0
	case GreaterThanOrEqualTo:
		return cmp >= 0
	}
	return false
}

func unsupportedOperator(o Operator) error {
	return errors.Newf(errors.ErrorTypeQuery, "unsupported operator: %d", int(o)).
		WithKind(errors.ErrUnsupportedOperator)
}
