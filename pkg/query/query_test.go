package query

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

type person struct {
	id     string
	age    int64
	sex    string
	height interface{}
	smoker bool
}

var people = []person{
	{"A", 25, "M", 1.71, false},
	{"B", 35, "F", nil, true},
	{"C", 45, "M", 1.80, true},
	{"D", 31, "X", 1.65, false},
	{"E", 30, "F", 1.62, false},
}

func peopleTable(t *testing.T) *table.Table {
	t.Helper()
	cols := make([][]interface{}, 5)
	for _, p := range people {
		cols[0] = append(cols[0], p.id)
		cols[1] = append(cols[1], p.age)
		cols[2] = append(cols[2], p.sex)
		cols[3] = append(cols[3], p.height)
		cols[4] = append(cols[4], p.smoker)
	}
	tbl, err := table.FromValues([]string{"Sample", "Age", "Sex", "Height", "Smoker"}, cols, table.DefaultIndex)
	require.NoError(t, err)
	t.Cleanup(tbl.Release)
	return tbl
}

func selected(t *testing.T, expr Expression, tbl *table.Table) []string {
	t.Helper()
	out, err := Apply(context.Background(), expr, tbl)
	require.NoError(t, err)
	defer out.Release()
	return out.Identifiers()
}

func TestBuildRendersExample(t *testing.T) {
	expr, err := Build(
		[]ContinuousQuery{{Column: "Age", Operator: GreaterThan, Value: 30}},
		[]DiscreteQuery{{Column: "Sex", Values: []interface{}{"M", "F"}}},
	)
	require.NoError(t, err)
	assert.Equal(t, "Age>30 and (Sex=='M' or Sex=='F')", expr.String())
	assert.Equal(t, []string{"Age", "Sex"}, expr.Columns())
}

func TestBuildRendering(t *testing.T) {
	tests := []struct {
		name       string
		continuous []ContinuousQuery
		discrete   []DiscreteQuery
		want       string
	}{
		{
			name:       "single continuous",
			continuous: []ContinuousQuery{{Column: "Age", Operator: LessThanOrEqualTo, Value: 30.5}},
			want:       "Age<=30.5",
		},
		{
			name: "continuous block",
			continuous: []ContinuousQuery{
				{Column: "Age", Operator: GreaterThanOrEqualTo, Value: 30},
				{Column: "Height", Operator: NotEquals, Value: 1.8},
			},
			want: "Age>=30 and Height!=1.8",
		},
		{
			name: "discrete only",
			discrete: []DiscreteQuery{
				{Column: "Sex", Values: []interface{}{"F"}},
				{Column: "Smoker", Values: []interface{}{true}},
			},
			want: "(Sex=='F') and (Smoker=='True')",
		},
		{
			name:     "quoted names and values",
			discrete: []DiscreteQuery{{Column: "Body Site", Values: []interface{}{"it's"}}},
			want:     "(`Body Site`=='it\\'s')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Build(tt.continuous, tt.discrete)
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr.String())
		})
	}
}

func TestBuildEmpty(t *testing.T) {
	expr, err := Build(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, expr)

	tbl := peopleTable(t)
	mask, err := Evaluate(expr, tbl)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, true, true}, mask)
}

func TestBuildErrors(t *testing.T) {
	t.Run("unmapped operator", func(t *testing.T) {
		_, err := Build([]ContinuousQuery{{Column: "Age", Value: 3}}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUnsupportedOperator))
		assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))

		_, err = Build([]ContinuousQuery{{Column: "Age", Operator: Operator(42), Value: 3}}, nil)
		assert.True(t, errors.Is(err, errors.ErrUnsupportedOperator))
	})

	t.Run("empty values", func(t *testing.T) {
		_, err := Build(nil, []DiscreteQuery{{Column: "Sex"}})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})

	t.Run("empty column", func(t *testing.T) {
		_, err := Build([]ContinuousQuery{{Operator: Equals, Value: 1}}, nil)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})
}

func TestEvaluateMatchesReferenceSelection(t *testing.T) {
	tbl := peopleTable(t)

	expr, err := Build(
		[]ContinuousQuery{{Column: "Age", Operator: GreaterThan, Value: 30}},
		[]DiscreteQuery{{Column: "Sex", Values: []interface{}{"M", "F"}}},
	)
	require.NoError(t, err)

	var want []string
	for _, p := range people {
		if p.age > 30 && (p.sex == "M" || p.sex == "F") {
			want = append(want, p.id)
		}
	}
	assert.Equal(t, want, selected(t, expr, tbl))
	assert.Equal(t, []string{"B", "C"}, want)
}

func TestEvaluateNulls(t *testing.T) {
	tbl := peopleTable(t)

	assert.Equal(t, []string{"A", "C"}, selected(t, MustParse("Height>1.7"), tbl))
	assert.Equal(t, []string{"A", "B", "D", "E"}, selected(t, MustParse("Height!=1.8"), tbl))
	assert.Empty(t, selected(t, MustParse("Height==0"), tbl))
}

func TestEvaluateCoercion(t *testing.T) {
	tbl := peopleTable(t)

	assert.Equal(t, []string{"C"}, selected(t, MustParse("Age>='40'"), tbl))
	assert.Equal(t, []string{"B", "C"}, selected(t, MustParse("Smoker==True"), tbl))
	assert.Equal(t, []string{"B", "C"}, selected(t, MustParse("Smoker=='true'"), tbl))
	assert.Equal(t, []string{"A", "D", "E"}, selected(t, MustParse("Smoker==0"), tbl))
	assert.Equal(t, []string{"D"}, selected(t, MustParse("Sex>'M'"), tbl))

	_, err := Evaluate(MustParse("Sex==1"), tbl)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))

	_, err = Evaluate(MustParse("Age=='old'"), tbl)
	assert.Error(t, err)
}

func TestEvaluateMissingColumn(t *testing.T) {
	tbl := peopleTable(t)

	_, err := Evaluate(MustParse("Weight>3"), tbl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrColumnNotFound))
	assert.Contains(t, err.Error(), "column not found: Weight")
}

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Age>30 and (Sex=='M' or Sex=='F')", []string{"B", "C"}},
		{`Sex == "X" or Age < 26`, []string{"A", "D"}},
		{"Age>30 and Sex=='M' or Sample=='E'", []string{"C", "E"}},
		{"(Age>=30) and Weight==1 or Age==25", nil},
		{"`Sex`!='M' and Age<=30.0", []string{"E"}},
		{"Age=35", []string{"B"}},
	}

	tbl := peopleTable(t)
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			expr, err := Parse(tt.text)
			require.NoError(t, err)
			if tt.want == nil {
				_, err := Evaluate(expr, tbl)
				assert.True(t, errors.Is(err, errors.ErrColumnNotFound))
				return
			}
			assert.Equal(t, tt.want, selected(t, expr, tbl))
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{"Age >", "Age ~ 3", "(Age>3", "and Age>3"} {
		_, err := Parse(text)
		assert.Error(t, err, text)
		assert.True(t, errors.IsType(err, errors.ErrorTypeQuery), text)
	}

	expr, err := Parse("   ")
	require.NoError(t, err)
	assert.Nil(t, expr)
}

func TestParseRenderRoundTrip(t *testing.T) {
	tbl := peopleTable(t)

	expr, err := Build(
		[]ContinuousQuery{
			{Column: "Age", Operator: GreaterThanOrEqualTo, Value: 30},
			{Column: "Height", Operator: LessThan, Value: 1.75},
		},
		[]DiscreteQuery{{Column: "Sex", Values: []interface{}{"F", "X"}}},
	)
	require.NoError(t, err)

	parsed, err := Parse(expr.String())
	require.NoError(t, err)
	assert.Equal(t, expr.String(), parsed.String())

	want, err := Evaluate(expr, tbl)
	require.NoError(t, err)
	got, err := Evaluate(parsed, tbl)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCombine(t *testing.T) {
	assert.Nil(t, Combine(nil, nil))

	a := MustParse("Age>30")
	assert.Same(t, a, Combine(nil, a))
	assert.Equal(t, "Age>30 and (Sex=='M' or Sex=='F')", Combine(a, MustParse("Sex=='M' or Sex=='F'")).String())
}

func TestComparisonKeepsLargeUnsigned(t *testing.T) {
	c, err := NewComparison("Reads", GreaterThan, uint64(math.MaxUint64))
	require.NoError(t, err)
	assert.Equal(t, float64(math.MaxUint64), c.Value)

	c, err = NewComparison("Reads", GreaterThan, uint32(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.Value)
}

func TestOperatorText(t *testing.T) {
	for _, in := range []string{">=", "GreaterThanOrEqualTo"} {
		var op Operator
		require.NoError(t, op.UnmarshalText([]byte(in)))
		assert.Equal(t, GreaterThanOrEqualTo, op)
	}

	var op Operator
	err := op.UnmarshalText([]byte("=~"))
	assert.True(t, errors.Is(err, errors.ErrUnsupportedOperator))

	text, err := LessThan.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "LessThan", string(text))

	_, err = Operator(0).Symbol()
	assert.True(t, errors.Is(err, errors.ErrUnsupportedOperator))
}

func TestQueriesFromYAML(t *testing.T) {
	var doc struct {
		Continuous []ContinuousQuery `yaml:"continuous"`
		Discrete   []DiscreteQuery   `yaml:"discrete"`
	}
	src := `
continuous:
  - column: Age
    operator: ">"
    value: 30
discrete:
  - column: Sex
    values: [M, F]
`
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))

	expr, err := Build(doc.Continuous, doc.Discrete)
	require.NoError(t, err)
	assert.Equal(t, "Age>30 and (Sex=='M' or Sex=='F')", expr.String())
}

func TestDiscreteValuesCompareAsText(t *testing.T) {
	var doc struct {
		Discrete []DiscreteQuery `yaml:"discrete"`
	}
	src := `
discrete:
  - column: Sex
    values: [1, 2]
  - column: Age
    values: [25, 45]
  - column: Smoker
    values: [true]
`
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))

	expr, err := Build(nil, doc.Discrete[:1])
	require.NoError(t, err)
	assert.Equal(t, "(Sex=='1' or Sex=='2')", expr.String())

	tbl := peopleTable(t)
	assert.Empty(t, selected(t, expr, tbl))

	expr, err = Build(nil, doc.Discrete[1:])
	require.NoError(t, err)
	assert.Equal(t, "(Age=='25' or Age=='45') and (Smoker=='True')", expr.String())
	assert.Equal(t, []string{"C"}, selected(t, expr, tbl))
}
