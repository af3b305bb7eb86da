// Package query turns structured row filters into a predicate tree and
// evaluates it against a table.
//
// Continuous queries compare a numeric column with a value; discrete queries
// keep rows whose column takes one of a list of values. Build combines them
// with And, one Or per discrete query:
//
//	expr, err := query.Build(
//		[]query.ContinuousQuery{{Column: "Age", Operator: query.GreaterThan, Value: 30}},
//		[]query.DiscreteQuery{{Column: "Sex", Values: []interface{}{"M", "F"}}},
//	)
//	// expr.String() == "Age>30 and (Sex=='M' or Sex=='F')"
//
// The same text form is accepted by Parse.
package query
