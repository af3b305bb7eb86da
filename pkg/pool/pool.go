// Package pool provides typed object pooling for the row buffers used when
// tables are streamed cell by cell into row-oriented writers.
//
// Example usage:
//
//	row := pool.GetStrings(t.NumCols())
//	defer pool.PutStrings(row)
//	for r := 0; r < t.NumRows(); r++ {
//	    for c := range row {
//	        row[c] = table.FormatValue(table.ValueAt(rec.Column(c), r))
//	    }
//	    w.Write(row)
//	}
package pool

import (
	"sync"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with an optional reset function. The pool is safe for
// concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
}

// New creates a new typed pool. newFn is called when the pool is empty;
// reset, if not nil, is called on every object handed back through Put.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool, creating one when it is empty.
// Return it with Put when no longer needed.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put resets obj and returns it to the pool
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	p.pool.Put(obj)
}

const defaultRowWidth = 64

var (
	stringRows = New(
		func() *[]string {
			s := make([]string, 0, defaultRowWidth)
			return &s
		},
		func(s *[]string) {
			clear(*s)
			*s = (*s)[:0]
		},
	)

	valueRows = New(
		func() *[]interface{} {
			s := make([]interface{}, 0, defaultRowWidth)
			return &s
		},
		func(s *[]interface{}) {
			clear(*s)
			*s = (*s)[:0]
		},
	)
)

// GetStrings returns a []string of length n from the pool
func GetStrings(n int) []string {
	s := *stringRows.Get()
	if cap(s) < n {
		s = make([]string, n)
	}
	return s[:n]
}

// PutStrings returns a slice obtained from GetStrings
func PutStrings(s []string) {
	if s == nil {
		return
	}
	stringRows.Put(&s)
}

// GetValues returns a []interface{} of length n from the pool
func GetValues(n int) []interface{} {
	s := *valueRows.Get()
	if cap(s) < n {
		s = make([]interface{}, n)
	}
	return s[:n]
}

// PutValues returns a slice obtained from GetValues
func PutValues(s []interface{}) {
	if s == nil {
		return
	}
	valueRows.Put(&s)
}
