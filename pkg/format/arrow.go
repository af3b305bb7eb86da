package format

import (
	"bytes"
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// arrowAdapter handles the Arrow IPC file format, also known as Feather v2
type arrowAdapter struct{}

func (a *arrowAdapter) Format() Format { return Arrow }

func (a *arrowAdapter) Read(ctx context.Context, path string, opts ReadOptions) (*table.Table, error) {
	data, err := readBytes(path)
	if err != nil {
		return nil, err
	}

	rdr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open arrow file "+path).WithDetail("path", path)
	}
	defer rdr.Close()

	recs := make([]arrow.Record, 0, rdr.NumRecords())
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for i := 0; i < rdr.NumRecords(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := rdr.RecordAt(i)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read record batch").WithDetail("path", path)
		}
		recs = append(recs, rec)
	}

	t, err := table.FromRecords(rdr.Schema(), recs, opts.index())
	if err != nil {
		return nil, err
	}
	return project(t, opts.Columns)
}

func (a *arrowAdapter) Write(ctx context.Context, t *table.Table, path string, opts WriteOptions) (string, error) {
	out, err := createOutput(path, opts)
	if err != nil {
		return "", err
	}

	w, err := ipc.NewFileWriter(struct{ io.Writer }{out},
		ipc.WithSchema(t.Schema()),
		ipc.WithAllocator(memory.DefaultAllocator),
	)
	if err != nil {
		out.Close()
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to create arrow writer")
	}
	if err := w.Write(t.Record()); err != nil {
		w.Close()
		out.Close()
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to write arrow data")
	}
	if err := w.Close(); err != nil {
		out.Close()
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to finish arrow file")
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return out.path, nil
}

func (a *arrowAdapter) ListColumns(ctx context.Context, path string, index string) ([]string, error) {
	data, err := readBytes(path)
	if err != nil {
		return nil, err
	}
	rdr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open arrow file "+path).WithDetail("path", path)
	}
	defer rdr.Close()

	fields := rdr.Schema().Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return dataColumns(names, indexOr(index)), nil
}
