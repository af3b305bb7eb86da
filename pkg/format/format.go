// Package format reads and writes tables in the supported file formats.
//
// Every format is an Adapter. The set is closed: Resolve maps a Format to
// its adapter and FromPath infers the Format of a file from its extension.
// Files whose name ends in a compression suffix (.gz, .zst, .lz4, .sz, .s2)
// are decompressed on read.
package format

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ajitpratap0/shapeshifter/pkg/compression"
	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// Format names a file format
type Format string

const (
	TSV     Format = "tsv"
	CSV     Format = "csv"
	Parquet Format = "parquet"
	Arrow   Format = "arrow"
	JSON    Format = "json"
	MsgPack Format = "msgpack"
	Avro    Format = "avro"
	SQLite  Format = "sqlite"
)

// Formats lists every supported format
func Formats() []Format {
	return []Format{TSV, CSV, Parquet, Arrow, JSON, MsgPack, Avro, SQLite}
}

var extensions = map[string]Format{
	".tsv":     TSV,
	".txt":     TSV,
	".tab":     TSV,
	".csv":     CSV,
	".parquet": Parquet,
	".pq":      Parquet,
	".arrow":   Arrow,
	".feather": Arrow,
	".ipc":     Arrow,
	".json":    JSON,
	".msgpack": MsgPack,
	".mp":      MsgPack,
	".avro":    Avro,
	".sqlite":  SQLite,
	".db":      SQLite,
}

// Extensions returns the file extensions recognised for f, sorted
func Extensions(f Format) []string {
	var out []string
	for ext, g := range extensions {
		if g == f {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// ReadOptions controls how a file is read
type ReadOptions struct {
	// Columns restricts the read to these columns plus the identifier
	// column. Empty reads every column.
	Columns []string
	// Index names the identifier column; empty means table.DefaultIndex
	Index string
}

func (o ReadOptions) index() string {
	return indexOr(o.Index)
}

// WriteOptions controls how a table is written
type WriteOptions struct {
	// Gzip compresses the output and appends ".gz" to the path
	Gzip bool
	// Level is the compression level; zero means the codec default
	Level compression.Level
}

// Adapter reads and writes one file format
type Adapter interface {
	// Format returns the format handled by the adapter
	Format() Format
	// Read loads the file at path
	Read(ctx context.Context, path string, opts ReadOptions) (*table.Table, error)
	// Write stores t at path and returns the path actually written, which
	// gains a compression suffix when one is requested
	Write(ctx context.Context, t *table.Table, path string, opts WriteOptions) (string, error)
	// ListColumns returns the data column names of the file at path,
	// without the identifier column named index and trailing synthetic
	// index columns
	ListColumns(ctx context.Context, path string, index string) ([]string, error)
}

// Resolve returns the adapter for f
func Resolve(f Format) (Adapter, error) {
	switch f {
	case TSV:
		return &delimitedAdapter{format: TSV, comma: '\t'}, nil
	case CSV:
		return &delimitedAdapter{format: CSV, comma: ','}, nil
	case Parquet:
		return &parquetAdapter{}, nil
	case Arrow:
		return &arrowAdapter{}, nil
	case JSON:
		return &jsonAdapter{}, nil
	case MsgPack:
		return &msgpackAdapter{}, nil
	case Avro:
		return &avroAdapter{}, nil
	case SQLite:
		return &sqliteAdapter{}, nil
	default:
		return nil, errors.New(errors.ErrorTypeCapability, "unsupported format: "+string(f)).
			WithKind(errors.ErrUnsupportedFormat)
	}
}

// Parse converts a format name to a Format. Matching ignores case and a
// leading dot; "feather" is accepted for Arrow and "pq" for Parquet.
func Parse(name string) (Format, error) {
	n := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	if f, ok := extensions["."+n]; ok {
		return f, nil
	}
	for _, f := range Formats() {
		if string(f) == n {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrorTypeCapability, "unsupported format: "+name).
		WithKind(errors.ErrUnsupportedFormat)
}

// FromPath infers the format of path from its extension, ignoring a
// compression suffix
func FromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(compression.TrimSuffix(path)))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", errors.New(errors.ErrorTypeCapability, "cannot infer format of "+path).
		WithKind(errors.ErrUnsupportedFormat).
		WithDetail("path", path)
}

// ResolvePath resolves the adapter for path. A non-empty declared format
// wins over the extension.
func ResolvePath(path string, declared Format) (Adapter, error) {
	f := declared
	if f == "" {
		var err error
		if f, err = FromPath(path); err != nil {
			return nil, err
		}
	}
	return Resolve(f)
}
