package table

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
)

// Kind classifies a column by the values it holds
type Kind string

const (
	// KindDiscrete columns hold strings or booleans
	KindDiscrete Kind = "discrete"
	// KindContinuous columns hold numbers
	KindContinuous Kind = "continuous"
)

// ClassifyValue returns the kind of a single non-null value
func ClassifyValue(v interface{}) (Kind, bool) {
	switch v.(type) {
	case string, bool:
		return KindDiscrete, true
	}
	if _, ok := AsFloat(v); ok {
		return KindContinuous, true
	}
	return "", false
}

// ColumnInfo describes the values observed in one column
type ColumnInfo struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`

	// UniqueValues holds distinct non-null values in first-seen order,
	// capped at the requested size limit.
	UniqueValues []interface{} `json:"unique_values" yaml:"unique_values"`
	NullCount    int           `json:"null_count" yaml:"null_count"`

	// Set for continuous columns only
	Min  float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max  float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Mean float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
}

// ColumnInfo inspects the named column. sizeLimit caps the number of unique
// values collected; zero or less means no cap. A column without a single
// non-null value fails with errors.ErrCannotClassify.
func (t *Table) ColumnInfo(name string, sizeLimit int) (ColumnInfo, error) {
	values, err := t.ColumnValues(name)
	if err != nil {
		return ColumnInfo{}, err
	}

	info := ColumnInfo{Name: name, UniqueValues: []interface{}{}}
	seen := make(map[interface{}]struct{})
	var numbers []float64

	for _, v := range values {
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			v = nil
		}
		if v == nil {
			info.NullCount++
			continue
		}
		if f, ok := AsFloat(v); ok {
			numbers = append(numbers, f)
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if sizeLimit <= 0 || len(info.UniqueValues) < sizeLimit {
			info.UniqueValues = append(info.UniqueValues, v)
		}
	}

	if len(info.UniqueValues) == 0 {
		return ColumnInfo{}, errors.New(errors.ErrorTypeData, "cannot classify column "+name+": no non-null values").
			WithKind(errors.ErrCannotClassify).
			WithDetail("column", name)
	}

	kind, ok := ClassifyValue(info.UniqueValues[0])
	if !ok {
		return ColumnInfo{}, errors.Newf(errors.ErrorTypeData, "cannot classify column %s: unexpected value type %T", name, info.UniqueValues[0]).
			WithKind(errors.ErrCannotClassify)
	}
	info.Kind = kind

	if kind == KindContinuous && len(numbers) > 0 {
		info.Min = floats.Min(numbers)
		info.Max = floats.Max(numbers)
		info.Mean = stat.Mean(numbers, nil)
	}
	return info, nil
}

// AllColumnsInfo inspects every data column, keyed by column name
func (t *Table) AllColumnsInfo(sizeLimit int) (map[string]ColumnInfo, error) {
	out := make(map[string]ColumnInfo, t.NumCols())
	for _, name := range t.DataColumnNames() {
		info, err := t.ColumnInfo(name, sizeLimit)
		if err != nil {
			return nil, err
		}
		out[name] = info
	}
	return out, nil
}
