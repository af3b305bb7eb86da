package table

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
)

// FromRecords joins record batches that share schema into one table. The
// batches are not released.
func FromRecords(schema *arrow.Schema, recs []arrow.Record, index string) (*Table, error) {
	switch len(recs) {
	case 0:
		return Empty(schema, index), nil
	case 1:
		recs[0].Retain()
		return New(recs[0], index), nil
	}

	mem := memory.DefaultAllocator
	cols := make([]arrow.Array, schema.NumFields())
	var rows int64
	for _, rec := range recs {
		rows += rec.NumRows()
	}

	for i := range cols {
		chunks := make([]arrow.Array, len(recs))
		for j, rec := range recs {
			chunks[j] = rec.Column(i)
		}
		col, err := array.Concatenate(chunks, mem)
		if err != nil {
			for _, c := range cols[:i] {
				c.Release()
			}
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to concatenate column "+schema.Field(i).Name)
		}
		cols[i] = col
	}

	rec := array.NewRecord(schema, cols, rows)
	for _, c := range cols {
		c.Release()
	}
	return New(rec, index), nil
}
