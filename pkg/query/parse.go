package query

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
)

// Filter text grammar:
//
//	expr       = conjunction { "or" conjunction }
//	conjunction = term { "and" term }
//	term       = "(" expr ")" | column op literal
//	op         = "==" | "=" | "!=" | "<" | "<=" | ">" | ">="
//	literal    = number | 'text' | "text" | True | False
//
// Column names that are not plain identifiers are written in back quotes.
type grammar struct {
	Or []*andExpr `@@ ( "or" @@ )*`
}

type andExpr struct {
	And []*term `@@ ( "and" @@ )*`
}

type term struct {
	Group *grammar    `  "(" @@ ")"`
	Cmp   *comparison `| @@`
}

type comparison struct {
	Column string   `@(Ident | QuotedIdent)`
	Op     string   `@Operator`
	Value  *literal `@@`
}

type literal struct {
	Number *string `  @Number`
	String *string `| @String`
	Bool   *string `| @("True" | "False" | "true" | "false")`
}

var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `'(\\.|[^'\\])*'|"(\\.|[^"\\])*"`},
	{Name: "QuotedIdent", Pattern: "`[^`]+`"},
	{Name: "Operator", Pattern: `==|!=|<=|>=|=|<|>`},
	{Name: "Number", Pattern: `[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.]*`},
	{Name: "Punct", Pattern: `[()]`},
})

var filterParser = participle.MustBuild[grammar](
	participle.Lexer(filterLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse reads filter text such as
//
//	Age>30 and (Sex=='M' or Sex=='F')
//
// into an expression. Blank text yields a nil expression.
func Parse(text string) (Expression, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	g, err := filterParser.ParseString("", text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "invalid filter expression").
			WithDetail("filter", text)
	}
	return g.toExpression()
}

// MustParse is like Parse but panics on error
func MustParse(text string) Expression {
	expr, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return expr
}

func (g *grammar) toExpression() (Expression, error) {
	terms := make([]Expression, 0, len(g.Or))
	for _, a := range g.Or {
		e, err := a.toExpression()
		if err != nil {
			return nil, err
		}
		terms = append(terms, e)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &Or{Terms: terms}, nil
}

func (a *andExpr) toExpression() (Expression, error) {
	terms := make([]Expression, 0, len(a.And))
	for _, t := range a.And {
		e, err := t.toExpression()
		if err != nil {
			return nil, err
		}
		terms = append(terms, e)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &And{Terms: terms}, nil
}

func (t *term) toExpression() (Expression, error) {
	if t.Group != nil {
		return t.Group.toExpression()
	}

	column := t.Cmp.Column
	if strings.HasPrefix(column, "`") {
		column = strings.Trim(column, "`")
	}
	op, err := ParseOperator(t.Cmp.Op)
	if err != nil {
		return nil, err
	}
	value, err := t.Cmp.Value.value()
	if err != nil {
		return nil, err
	}
	return NewComparison(column, op, value)
}

func (l *literal) value() (interface{}, error) {
	switch {
	case l.Number != nil:
		n := *l.Number
		if !strings.ContainsAny(n, ".eE") {
			if i, err := strconv.ParseInt(n, 10, 64); err == nil {
				return i, nil
			}
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "invalid number "+n)
		}
		return f, nil
	case l.String != nil:
		return unquote(*l.String), nil
	case l.Bool != nil:
		return strings.EqualFold(*l.Bool, "true"), nil
	}
	return nil, errors.New(errors.ErrorTypeQuery, "missing literal")
}

// unquote strips the surrounding quotes and resolves backslash escapes
func unquote(s string) string {
	s = s[1 : len(s)-1]
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
