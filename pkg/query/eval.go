package query

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// Evaluate computes the row mask of expr over t. A nil expression keeps
// every row.
func Evaluate(expr Expression, t *table.Table) ([]bool, error) {
	if expr == nil {
		return fill(t.NumRows(), true), nil
	}
	mask, err := expr.eval(t)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "filter evaluation failed")
	}
	return mask, nil
}

// Apply returns the rows of t matching expr
func Apply(ctx context.Context, expr Expression, t *table.Table) (*table.Table, error) {
	mask, err := Evaluate(expr, t)
	if err != nil {
		return nil, err
	}
	return t.Filter(ctx, mask)
}

func fill(n int, v bool) []bool {
	mask := make([]bool, n)
	if v {
		for i := range mask {
			mask[i] = true
		}
	}
	return mask
}

func (a *And) eval(t *table.Table) ([]bool, error) {
	mask := fill(t.NumRows(), true)
	for _, term := range a.Terms {
		m, err := term.eval(t)
		if err != nil {
			return nil, err
		}
		for i := range mask {
			mask[i] = mask[i] && m[i]
		}
	}
	return mask, nil
}

func (o *Or) eval(t *table.Table) ([]bool, error) {
	mask := fill(t.NumRows(), false)
	for _, term := range o.Terms {
		m, err := term.eval(t)
		if err != nil {
			return nil, err
		}
		for i := range mask {
			mask[i] = mask[i] || m[i]
		}
	}
	return mask, nil
}

func (c *Comparison) eval(t *table.Table) ([]bool, error) {
	if !c.Op.Valid() {
		return nil, unsupportedOperator(c.Op)
	}
	col, err := t.Column(c.Column)
	if err != nil {
		return nil, err
	}

	mask := make([]bool, col.Len())
	lit := operand{raw: c.Value}
	for i := range mask {
		v := table.ValueAt(col, i)
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			v = nil
		}
		if v == nil {
			// a missing value is unequal to everything and unordered
			mask[i] = c.Op == NotEquals
			continue
		}
		cmp, err := lit.compare(v)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "cannot evaluate "+c.String()).
				WithDetail("column", c.Column)
		}
		mask[i] = c.Op.compare(cmp)
	}
	return mask, nil
}

// operand caches the coerced forms of a comparison value
type operand struct {
	raw interface{}

	num    float64
	numErr error
	numSet bool

	flag    bool
	flagErr error
	flagSet bool
}

// compare orders the cell v against the literal: negative when v sorts
// first, zero when equal, positive otherwise.
func (l *operand) compare(v interface{}) (int, error) {
	switch x := v.(type) {
	case string:
		s, ok := l.raw.(string)
		if !ok {
			return 0, errors.New(errors.ErrorTypeQuery, "cannot compare a text column with "+renderLiteral(l.raw))
		}
		return strings.Compare(x, s), nil

	case bool:
		b, err := l.boolean()
		if err != nil {
			return 0, err
		}
		return compareFloat(boolNumber(x), boolNumber(b)), nil

	default:
		f, ok := table.AsFloat(v)
		if !ok {
			return 0, errors.Newf(errors.ErrorTypeQuery, "cannot compare values of type %T", v)
		}
		n, err := l.number()
		if err != nil {
			return 0, err
		}
		return compareFloat(f, n), nil
	}
}

func (l *operand) number() (float64, error) {
	if !l.numSet {
		l.num, l.numErr = toNumber(l.raw)
		l.numSet = true
	}
	return l.num, l.numErr
}

func (l *operand) boolean() (bool, error) {
	if !l.flagSet {
		l.flag, l.flagErr = toBool(l.raw)
		l.flagSet = true
	}
	return l.flag, l.flagErr
}

func toNumber(v interface{}) (float64, error) {
	switch x := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, errors.New(errors.ErrorTypeQuery, "cannot compare a numeric column with "+renderLiteral(x))
		}
		return f, nil
	case bool:
		return 0, errors.New(errors.ErrorTypeQuery, "cannot compare a numeric column with "+renderLiteral(x))
	}
	if f, ok := table.AsFloat(v); ok {
		return f, nil
	}
	return 0, errors.Newf(errors.ErrorTypeQuery, "unsupported literal type %T", v)
}

func toBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch x {
		case "True", "true", "1":
			return true, nil
		case "False", "false", "0":
			return false, nil
		}
	default:
		if f, ok := table.AsFloat(v); ok && (f == 0 || f == 1) {
			return f == 1, nil
		}
	}
	return false, errors.New(errors.ErrorTypeQuery, "cannot compare a boolean column with "+renderLiteral(v))
}

func boolNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
