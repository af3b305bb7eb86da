package format

import (
	"bytes"
	"context"
	stdcsv "encoding/csv"
	"io"

	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/pool"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// delimitedAdapter handles tab and comma separated text with a header row.
// Nulls are written as NA; NA and empty cells read back as null.
type delimitedAdapter struct {
	format Format
	comma  rune
}

func (a *delimitedAdapter) Format() Format { return a.format }

func (a *delimitedAdapter) Read(ctx context.Context, path string, opts ReadOptions) (*table.Table, error) {
	data, err := readBytes(path)
	if err != nil {
		return nil, err
	}

	// column types come from a first pass over the text cells
	r := a.newReader(bytes.NewReader(data))
	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrorTypeData, "file has no header row: "+path).WithDetail("path", path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse "+path).WithDetail("path", path)
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse "+path).WithDetail("path", path)
	}
	schema := table.InferTextSchema(header, records)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tr := csv.NewReader(bytes.NewReader(data), schema,
		csv.WithComma(a.comma),
		csv.WithHeader(true),
		csv.WithNullReader(true, table.NullTokens...),
		csv.WithChunk(-1),
		csv.WithAllocator(memory.DefaultAllocator),
	)
	defer tr.Release()

	var t *table.Table
	if tr.Next() {
		rec := tr.Record()
		rec.Retain()
		t = table.New(rec, opts.index())
	} else {
		if err := tr.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse "+path).WithDetail("path", path)
		}
		t = table.Empty(schema, opts.index())
	}
	if err := tr.Err(); err != nil {
		t.Release()
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse "+path).WithDetail("path", path)
	}

	return project(t, opts.Columns)
}

func (a *delimitedAdapter) Write(ctx context.Context, t *table.Table, path string, opts WriteOptions) (string, error) {
	out, err := createOutput(path, opts)
	if err != nil {
		return "", err
	}

	w := stdcsv.NewWriter(out)
	w.Comma = a.comma

	if err := w.Write(t.ColumnNames()); err != nil {
		out.Close()
		return "", fileError(err, "failed to write header", out.path)
	}

	rec := t.Record()
	row := pool.GetStrings(t.NumCols())
	defer pool.PutStrings(row)
	for r := 0; r < t.NumRows(); r++ {
		for c := range row {
			v := table.ValueAt(rec.Column(c), r)
			if v == nil {
				row[c] = table.NullTokens[0]
				continue
			}
			row[c] = table.FormatValue(v)
		}
		if err := w.Write(row); err != nil {
			out.Close()
			return "", fileError(err, "failed to write row", out.path)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		return "", fileError(err, "failed to write file", out.path)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return out.path, nil
}

func (a *delimitedAdapter) ListColumns(ctx context.Context, path string, index string) ([]string, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	header, err := a.newReader(in).Read()
	if err == io.EOF {
		return []string{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read header of "+path).WithDetail("path", path)
	}
	return dataColumns(header, indexOr(index)), nil
}

func (a *delimitedAdapter) newReader(r io.Reader) *stdcsv.Reader {
	cr := stdcsv.NewReader(r)
	cr.Comma = a.comma
	cr.ReuseRecord = false
	return cr
}
