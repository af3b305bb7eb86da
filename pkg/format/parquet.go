package format

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/shapeshifter/pkg/compression"
	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

const parquetBatchSize = 64 * 1024

// parquetAdapter reads and writes Parquet through pqarrow. Projections are
// pruned at read time; the identifier column is always read with them.
type parquetAdapter struct{}

func (a *parquetAdapter) Format() Format { return Parquet }

func (a *parquetAdapter) Read(ctx context.Context, path string, opts ReadOptions) (*table.Table, error) {
	data, err := readBytes(path)
	if err != nil {
		return nil, err
	}

	rdr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open parquet file "+path).WithDetail("path", path)
	}
	defer rdr.Close()

	mem := memory.DefaultAllocator
	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{BatchSize: parquetBatchSize}, mem)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to create arrow reader for "+path).WithDetail("path", path)
	}

	indices, err := a.columnIndices(rdr, opts)
	if err != nil {
		return nil, err
	}

	rr, err := fr.GetRecordReader(ctx, indices, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read "+path).WithDetail("path", path)
	}
	defer rr.Release()

	var recs []arrow.Record
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for rr.Next() {
		rec := rr.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	// a drained reader reports io.EOF
	if err := rr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read "+path).WithDetail("path", path)
	}

	t, err := table.FromRecords(rr.Schema(), recs, opts.index())
	if err != nil {
		return nil, err
	}
	return project(t, opts.Columns)
}

// columnIndices maps a projection onto leaf column indices, identifier
// first. Without a projection every column except dataframe index
// columns is read.
func (a *parquetAdapter) columnIndices(rdr *file.Reader, opts ReadOptions) ([]int, error) {
	schema := rdr.MetaData().Schema
	if len(opts.Columns) == 0 {
		indices := make([]int, 0, schema.NumColumns())
		for i := 0; i < schema.NumColumns(); i++ {
			if strings.Contains(schema.Column(i).Name(), "__index_level_") {
				continue
			}
			indices = append(indices, i)
		}
		return indices, nil
	}

	indices := make([]int, 0, len(opts.Columns)+1)
	seen := make(map[int]bool)
	if i := schema.ColumnIndexByName(opts.index()); i >= 0 {
		indices = append(indices, i)
		seen[i] = true
	}
	for _, name := range opts.Columns {
		i := schema.ColumnIndexByName(name)
		if i < 0 {
			return nil, errors.ColumnNotFound(name)
		}
		if !seen[i] {
			indices = append(indices, i)
			seen[i] = true
		}
	}
	return indices, nil
}

func (a *parquetAdapter) Write(ctx context.Context, t *table.Table, path string, opts WriteOptions) (string, error) {
	// gzip goes into the column chunks; the file only takes the name
	path = outputPath(path, opts)
	alg := compression.FromPath(path)
	codec := compress.Codecs.Snappy
	if alg == compression.Gzip {
		alg = compression.None
		codec = compress.Codecs.Gzip
	}

	out, err := createFile(path, alg, opts.Level)
	if err != nil {
		return "", err
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithAllocator(memory.DefaultAllocator),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
		pqarrow.WithAllocator(memory.DefaultAllocator),
	)

	// the anonymous struct hides Close so the parquet writer leaves the file open
	fw, err := pqarrow.NewFileWriter(t.Schema(), struct{ io.Writer }{out}, props, arrowProps)
	if err != nil {
		out.Close()
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to create parquet writer")
	}
	if err := fw.Write(t.Record()); err != nil {
		fw.Close()
		out.Close()
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to write parquet data")
	}
	if err := fw.Close(); err != nil {
		out.Close()
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to finish parquet file")
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return out.path, nil
}

func (a *parquetAdapter) ListColumns(ctx context.Context, path string, index string) ([]string, error) {
	data, err := readBytes(path)
	if err != nil {
		return nil, err
	}
	rdr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open parquet file "+path).WithDetail("path", path)
	}
	defer rdr.Close()

	schema := rdr.MetaData().Schema
	names := make([]string, schema.NumColumns())
	for i := range names {
		names[i] = schema.Column(i).Name()
	}
	return dataColumns(names, indexOr(index)), nil
}
