package query

import (
	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// ContinuousQuery selects rows whose numeric column compares to Value
type ContinuousQuery struct {
	Column   string   `yaml:"column" json:"column"`
	Operator Operator `yaml:"operator" json:"operator"`
	Value    float64  `yaml:"value" json:"value"`
}

// DiscreteQuery selects rows whose column equals any of Values
type DiscreteQuery struct {
	Column string        `yaml:"column" json:"column"`
	Values []interface{} `yaml:"values" json:"values"`
}

// Expression returns the comparison leaf for q
func (q ContinuousQuery) Expression() (*Comparison, error) {
	return NewComparison(q.Column, q.Operator, q.Value)
}

// Expression returns the disjunction of equality tests for q. Values are
// compared as text, so 1 and "1" select the same rows.
func (q DiscreteQuery) Expression() (*Or, error) {
	if len(q.Values) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "discrete query on "+q.Column+" has no values").
			WithDetail("column", q.Column)
	}

	or := &Or{Terms: make([]Expression, 0, len(q.Values))}
	for _, v := range q.Values {
		if v != nil {
			v = table.FormatValue(v)
		}
		c, err := NewComparison(q.Column, Equals, v)
		if err != nil {
			return nil, err
		}
		or.Terms = append(or.Terms, c)
	}
	return or, nil
}

// Build combines the queries into one predicate: every continuous query and
// every discrete query must hold. It returns nil when both lists are empty.
func Build(continuous []ContinuousQuery, discrete []DiscreteQuery) (Expression, error) {
	if len(continuous) == 0 && len(discrete) == 0 {
		return nil, nil
	}

	and := &And{Terms: make([]Expression, 0, len(continuous)+len(discrete))}
	for _, q := range continuous {
		c, err := q.Expression()
		if err != nil {
			return nil, err
		}
		and.Terms = append(and.Terms, c)
	}
	for _, q := range discrete {
		or, err := q.Expression()
		if err != nil {
			return nil, err
		}
		and.Terms = append(and.Terms, or)
	}
	return and, nil
}

// Combine joins non-nil expressions with And. It returns nil when none are given.
func Combine(exprs ...Expression) Expression {
	terms := make([]Expression, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			terms = append(terms, e)
		}
	}
	switch len(terms) {
	case 0:
		return nil
	case 1:
		return terms[0]
	}
	return &And{Terms: terms}
}
