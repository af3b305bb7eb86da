package converter

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/shapeshifter/pkg/format"
	"github.com/ajitpratap0/shapeshifter/pkg/logger"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// Dataset inspects a file without converting it
type Dataset struct {
	path    string
	adapter format.Adapter
	index   string
	logger  *zap.Logger
}

// Open resolves the adapter for path. An empty f infers the format from the
// extension and an empty index means table.DefaultIndex.
func Open(path string, f format.Format, index string) (*Dataset, error) {
	adapter, err := format.ResolvePath(path, f)
	if err != nil {
		return nil, err
	}
	if index == "" {
		index = table.DefaultIndex
	}
	return &Dataset{
		path:    path,
		adapter: adapter,
		index:   index,
		logger: logger.With(
			zap.String("component", "dataset"),
			zap.String("path", path),
		),
	}, nil
}

// Path returns the file path
func (d *Dataset) Path() string { return d.path }

// Format returns the resolved file format
func (d *Dataset) Format() format.Format { return d.adapter.Format() }

// Index returns the identifier column name
func (d *Dataset) Index() string { return d.index }

// ColumnNames lists the data columns of the file, without the identifier
// column
func (d *Dataset) ColumnNames(ctx context.Context) ([]string, error) {
	return d.adapter.ListColumns(ctx, d.path, d.index)
}

// ColumnInfo loads only column name and describes it. At most sizeLimit
// unique values are reported; sizeLimit <= 0 reports them all.
func (d *Dataset) ColumnInfo(ctx context.Context, name string, sizeLimit int) (table.ColumnInfo, error) {
	t, err := d.adapter.Read(ctx, d.path, format.ReadOptions{Columns: []string{name}, Index: d.index})
	if err != nil {
		return table.ColumnInfo{}, err
	}
	defer t.Release()
	return t.ColumnInfo(name, sizeLimit)
}

// AllColumnsInfo describes every data column, keyed by column name
func (d *Dataset) AllColumnsInfo(ctx context.Context, sizeLimit int) (map[string]table.ColumnInfo, error) {
	t, err := d.adapter.Read(ctx, d.path, format.ReadOptions{Index: d.index})
	if err != nil {
		return nil, err
	}
	defer t.Release()
	d.logger.Debug("describing columns", zap.Int("columns", len(t.DataColumnNames())))
	return t.AllColumnsInfo(sizeLimit)
}

// Peek returns the identifier column with the first numCols data columns,
// limited to the first numRows rows. numCols is clamped to the columns
// available. A numCols of zero keeps only the identifier, a negative
// numCols keeps every column and a negative numRows keeps every row.
func (d *Dataset) Peek(ctx context.Context, numRows, numCols int) (*table.Table, error) {
	var columns []string
	switch {
	case numCols == 0:
		columns = []string{d.index}
	case numCols > 0:
		names, err := d.ColumnNames(ctx)
		if err != nil {
			return nil, err
		}
		if numCols < len(names) {
			names = names[:numCols]
		}
		columns = names
	}
	return d.PeekColumns(ctx, columns, numRows)
}

// PeekColumns returns the identifier column with the named columns, limited
// to the first numRows rows. Empty names keeps every column.
func (d *Dataset) PeekColumns(ctx context.Context, names []string, numRows int) (*table.Table, error) {
	t, err := d.adapter.Read(ctx, d.path, format.ReadOptions{Columns: names, Index: d.index})
	if err != nil {
		return nil, err
	}
	defer t.Release()
	return t.Head(numRows), nil
}
