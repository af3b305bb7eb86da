// Package shapeshifter converts tabular sample data between file formats.
//
// A sample matrix holds one row per sample, identified by the values of an
// index column ("Sample" by default), and one column per measured variable.
// ShapeShifter reads such a matrix from one format, optionally filters its
// rows, projects its columns and transposes it, then writes it to another
// format.
//
// # Quick Start
//
// Convert a gzipped TSV file to Parquet, keeping adults only:
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/shapeshifter/pkg/converter"
//	    "github.com/ajitpratap0/shapeshifter/pkg/query"
//	)
//
//	res, err := converter.Convert(context.Background(), converter.Request{
//	    Input:   "cohort.tsv.gz",
//	    Output:  "adults.parquet",
//	    Columns: []string{"Age", "Sex"},
//	    Continuous: []query.ContinuousQuery{
//	        {Column: "Age", Operator: query.GreaterThan, Value: 30},
//	    },
//	    Discrete: []query.DiscreteQuery{
//	        {Column: "Sex", Values: []interface{}{"M", "F"}},
//	    },
//	})
//	// res.Filter == "Age>30 and (Sex=='M' or Sex=='F')"
//
// The same job from the command line:
//
//	shapeshifter convert cohort.tsv.gz adults.parquet \
//	    --filter "Age>30 and (Sex=='M' or Sex=='F')" --columns Age,Sex
//
// # Key Packages
//
//	pkg/table        - Arrow-backed in-memory table, transpose and column info
//	pkg/format       - Readers and writers for every supported file format
//	pkg/query        - Filter expressions: builder, parser and evaluator
//	pkg/converter    - Conversion orchestration and file inspection
//	pkg/compression  - Gzip, zstd, lz4, snappy and s2 streams
//	pkg/config       - YAML job files
//	pkg/errors       - Structured error handling
//	pkg/logger       - Structured logging
//	pkg/metrics      - Prometheus metrics, written as node_exporter textfiles
//	pkg/observability - OpenTelemetry tracing
//
// # Formats
//
// TSV, CSV, Parquet, Arrow IPC (Feather), JSON, MessagePack, Avro and
// SQLite. The format of a file is inferred from its extension; a trailing
// .gz, .zst, .lz4, .sz or .s2 suffix selects stream compression. Missing
// values are written as NA, and NA or empty cells read back as missing.
//
// # Configuration
//
// Jobs can be described in YAML and run with "shapeshifter convert --config
// job.yaml". Environment variables are supported with ${VAR_NAME} and
// ${VAR_NAME:-default} syntax, and every command line flag can be set
// through a SHAPESHIFTER_* environment variable.
package shapeshifter
