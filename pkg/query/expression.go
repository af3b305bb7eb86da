package query

import (
	"regexp"
	"strings"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	stringpool "github.com/ajitpratap0/shapeshifter/pkg/strings"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// Expression is a boolean predicate over the rows of a table. The set of
// implementations is closed: *Comparison, *And and *Or.
type Expression interface {
	// String renders the expression in filter text form
	String() string
	// Columns lists the referenced columns in first-seen order
	Columns() []string

	eval(t *table.Table) ([]bool, error)
	writeTo(b *stringpool.Builder, nested bool)
}

// Comparison compares one column against a literal value. Value is a
// string, bool, int64 or float64.
type Comparison struct {
	Column string
	Op     Operator
	Value  interface{}
}

// And holds when every term holds. An empty And matches every row.
type And struct {
	Terms []Expression
}

// Or holds when any term holds. An empty Or matches no row.
type Or struct {
	Terms []Expression
}

// NewComparison validates and builds a comparison leaf
func NewComparison(column string, op Operator, value interface{}) (*Comparison, error) {
	if column == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "comparison column must not be empty")
	}
	if !op.Valid() {
		return nil, unsupportedOperator(op)
	}
	lit, err := normalizeLiteral(value)
	if err != nil {
		return nil, err
	}
	return &Comparison{Column: column, Op: op, Value: lit}, nil
}

func normalizeLiteral(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x, nil
	case float32:
		return float64(x), nil
	case nil:
		return nil, errors.New(errors.ErrorTypeValidation, "comparison value must not be null")
	}
	if f, ok := table.AsFloat(v); ok {
		if i, ok := table.AsInt(v); ok {
			return i, nil
		}
		return f, nil
	}
	return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported comparison value type %T", v)
}

func (c *Comparison) String() string {
	return stringpool.BuildString(func(b *stringpool.Builder) { c.writeTo(b, false) })
}

func (c *Comparison) Columns() []string { return []string{c.Column} }

func (c *Comparison) writeTo(b *stringpool.Builder, _ bool) {
	b.WriteString(quoteColumn(c.Column))
	sym, err := c.Op.Symbol()
	if err != nil {
		sym = "?"
	}
	b.WriteString(sym)
	b.WriteString(renderLiteral(c.Value))
}

func (a *And) String() string {
	return stringpool.BuildString(func(b *stringpool.Builder) { a.writeTo(b, false) })
}

func (a *And) Columns() []string { return collectColumns(a.Terms) }

func (a *And) writeTo(b *stringpool.Builder, nested bool) {
	if len(a.Terms) == 1 {
		a.Terms[0].writeTo(b, nested)
		return
	}
	if nested {
		b.WriteByte('(')
	}
	for i, term := range a.Terms {
		if i > 0 {
			b.WriteString(" and ")
		}
		term.writeTo(b, false)
	}
	if nested {
		b.WriteByte(')')
	}
}

func (o *Or) String() string {
	return stringpool.BuildString(func(b *stringpool.Builder) { o.writeTo(b, false) })
}

func (o *Or) Columns() []string { return collectColumns(o.Terms) }

func (o *Or) writeTo(b *stringpool.Builder, _ bool) {
	b.WriteByte('(')
	for i, term := range o.Terms {
		if i > 0 {
			b.WriteString(" or ")
		}
		term.writeTo(b, true)
	}
	b.WriteByte(')')
}

func collectColumns(terms []Expression) []string {
	var out []string
	seen := make(map[string]bool)
	for _, term := range terms {
		for _, col := range term.Columns() {
			if !seen[col] {
				seen[col] = true
				out = append(out, col)
			}
		}
	}
	return out
}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

var keywords = map[string]bool{
	"and": true, "or": true,
	"True": true, "False": true, "true": true, "false": true,
}

func quoteColumn(name string) string {
	if plainIdent.MatchString(name) && !keywords[name] {
		return name
	}
	return "`" + name + "`"
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func renderLiteral(v interface{}) string {
	if s, ok := v.(string); ok {
		return "'" + literalEscaper.Replace(s) + "'"
	}
	return stringpool.ValueToString(v)
}
