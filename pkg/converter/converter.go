// Package converter turns a tabular file of one format into another,
// optionally projecting columns, filtering rows and transposing the matrix
// on the way.
package converter

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/shapeshifter/pkg/compression"
	"github.com/ajitpratap0/shapeshifter/pkg/config"
	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/format"
	"github.com/ajitpratap0/shapeshifter/pkg/logger"
	"github.com/ajitpratap0/shapeshifter/pkg/metrics"
	"github.com/ajitpratap0/shapeshifter/pkg/observability"
	"github.com/ajitpratap0/shapeshifter/pkg/query"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// Request describes one conversion
type Request struct {
	Input        string
	InputFormat  format.Format // empty infers from Input
	Output       string
	OutputFormat format.Format // empty infers from Output

	// Columns projects the output; the identifier column is always kept
	Columns           []string
	IncludeAllColumns bool
	Transpose         bool

	Gzip bool
	// Compression appends the suffix of a codec to Output and compresses
	// with it; Gzip is the same as Compression set to compression.Gzip
	Compression compression.Algorithm
	Level       compression.Level

	// Index names the identifier column; empty means table.DefaultIndex
	Index string

	Continuous []query.ContinuousQuery
	Discrete   []query.DiscreteQuery
	// Filter is a textual filter such as "Age>30 and Sex=='F'"
	Filter string
}

// Result reports what a conversion did
type Result struct {
	OutputPath string
	RowsIn     int
	RowsOut    int
	ColumnsOut []string
	// Filter is the rendered filter expression, empty when none was applied
	Filter   string
	Duration time.Duration
}

// Converter runs conversions
type Converter struct {
	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  *observability.StepTracer
}

// Option configures a Converter
type Option func(*Converter)

// WithLogger sets the logger; the default is the global logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}

// WithMetrics records conversion metrics on collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Converter) {
		c.metrics = collector
	}
}

// New creates a Converter
func New(opts ...Option) *Converter {
	c := &Converter{
		tracer: observability.NewStepTracer("convert"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get()
	}
	c.logger = c.logger.With(zap.String("component", "converter"))
	return c
}

// Convert runs req with a default Converter
func Convert(ctx context.Context, req Request) (*Result, error) {
	return New().Convert(ctx, req)
}

// Convert reads req.Input, applies the projection, filter and transpose
// it asks for, and writes req.Output.
func (c *Converter) Convert(ctx context.Context, req Request) (*Result, error) {
	ctx = logger.NewJobContext(ctx, req.Input)
	log := logger.WithContext(ctx, c.logger)

	ctx, span := c.tracer.StartSpan(ctx, "run")
	span.SetAttribute("input", req.Input)
	span.SetAttribute("output", req.Output)

	inFormat, outFormat := req.InputFormat, req.OutputFormat
	res, err := c.convert(ctx, log, req, &inFormat, &outFormat)
	if err == nil {
		res.Duration = span.Duration()
		span.AddEvent("written",
			attribute.Int("rows_in", res.RowsIn),
			attribute.Int("rows_out", res.RowsOut),
			attribute.Int("columns_out", len(res.ColumnsOut)))
	}
	span.End(err)
	c.metrics.RecordConversion(string(inFormat), string(outFormat), err)
	if err != nil {
		log.Error("conversion failed", zap.Error(err))
		return nil, err
	}

	if secs := res.Duration.Seconds(); secs > 0 {
		c.metrics.SetThroughput(string(inFormat), string(outFormat), float64(res.RowsIn)/secs)
	}
	log.Info("conversion complete",
		zap.String("output", res.OutputPath),
		zap.Int("rows_in", res.RowsIn),
		zap.Int("rows_out", res.RowsOut),
		zap.Int("columns_out", len(res.ColumnsOut)),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (c *Converter) convert(ctx context.Context, log *zap.Logger, req Request, inFormat, outFormat *format.Format) (*Result, error) {
	if req.Input == "" || req.Output == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "input and output paths are required")
	}
	index := req.Index
	if index == "" {
		index = table.DefaultIndex
	}

	output, gzip := req.Output, req.Gzip
	switch req.Compression {
	case "", compression.None:
	case compression.Gzip:
		gzip = true
	default:
		if gzip {
			return nil, errors.New(errors.ErrorTypeValidation, "gzip conflicts with compression "+string(req.Compression))
		}
		output = compression.AppendSuffix(output, req.Compression)
	}

	in, err := format.ResolvePath(req.Input, req.InputFormat)
	if err != nil {
		return nil, err
	}
	out, err := format.ResolvePath(output, req.OutputFormat)
	if err != nil {
		return nil, err
	}
	*inFormat, *outFormat = in.Format(), out.Format()

	expr, err := buildFilter(req)
	if err != nil {
		return nil, err
	}

	var projection []string
	if !req.IncludeAllColumns && len(req.Columns) > 0 {
		projection = withoutIndex(req.Columns, index)
		if len(projection) == 0 {
			// only the identifier was asked for
			projection = []string{index}
		}
	}
	readColumns := projection
	if len(projection) > 0 && expr != nil {
		readColumns = union(projection, withoutIndex(expr.Columns(), index))
	}

	log.Debug("reading input",
		zap.String("format", string(in.Format())),
		zap.Strings("columns", readColumns))

	var t *table.Table
	err = c.step(ctx, "read", in.Format(), func(ctx context.Context) error {
		var err error
		t, err = in.Read(ctx, req.Input, format.ReadOptions{Columns: readColumns, Index: index})
		return err
	})
	if err != nil {
		return nil, err
	}
	defer func() { t.Release() }()

	res := &Result{RowsIn: t.NumRows()}
	c.metrics.RecordRows("read", string(in.Format()), int64(res.RowsIn))

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "conversion cancelled")
	}

	if expr != nil {
		res.Filter = expr.String()
		log.Debug("applying filter", zap.String("filter", res.Filter))
		err = c.step(ctx, "filter", in.Format(), func(ctx context.Context) error {
			filtered, err := query.Apply(ctx, expr, t)
			if err != nil {
				return err
			}
			t.Release()
			t = filtered
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(readColumns) > len(projection) {
		projected, err := t.Select(projection)
		if err != nil {
			return nil, err
		}
		t.Release()
		t = projected
	}

	if req.Transpose {
		err = c.step(ctx, "transpose", in.Format(), func(context.Context) error {
			transposed, err := t.Transpose()
			if err != nil {
				return err
			}
			t.Release()
			t = transposed
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "conversion cancelled")
	}

	err = c.step(ctx, "write", out.Format(), func(ctx context.Context) error {
		var err error
		res.OutputPath, err = out.Write(ctx, t, output, format.WriteOptions{Gzip: gzip, Level: req.Level})
		return err
	})
	if err != nil {
		return nil, err
	}

	res.RowsOut = t.NumRows()
	res.ColumnsOut = t.ColumnNames()
	c.metrics.RecordRows("write", string(out.Format()), int64(res.RowsOut))
	return res, nil
}

// step runs fn inside a span and records its duration
func (c *Converter) step(ctx context.Context, name string, f format.Format, fn func(context.Context) error) error {
	timer := metrics.NewTimer(name)
	err := c.tracer.TraceStep(ctx, name, fn)
	c.metrics.ObserveStep(timer.Name(), string(f), timer.Stop())
	return err
}

// buildFilter ANDs the structured queries of req with its text filter
func buildFilter(req Request) (query.Expression, error) {
	structured, err := query.Build(req.Continuous, req.Discrete)
	if err != nil {
		return nil, err
	}
	text, err := query.Parse(req.Filter)
	if err != nil {
		return nil, err
	}
	return query.Combine(structured, text), nil
}

// RequestFromConfig translates a job configuration into a Request
func RequestFromConfig(cfg *config.ConvertConfig) (Request, error) {
	req := Request{
		Input:             cfg.Input.Path,
		Output:            cfg.Output.Path,
		Columns:           cfg.Columns,
		IncludeAllColumns: cfg.IncludeAllColumns,
		Transpose:         cfg.Transpose,
		Gzip:              cfg.Output.Gzip,
		Level:             compression.Level(cfg.Output.CompressionLevel),
		Index:             cfg.Index,
		Continuous:        cfg.Filter.Continuous,
		Discrete:          cfg.Filter.Discrete,
		Filter:            cfg.Filter.Expression,
	}

	var err error
	if req.Compression, err = compression.Parse(cfg.Output.Compression); err != nil {
		return Request{}, err
	}
	if cfg.Input.Format != "" {
		if req.InputFormat, err = format.Parse(cfg.Input.Format); err != nil {
			return Request{}, err
		}
	}
	if cfg.Output.Format != "" {
		if req.OutputFormat, err = format.Parse(cfg.Output.Format); err != nil {
			return Request{}, err
		}
	}
	return req, nil
}

func withoutIndex(names []string, index string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name != index {
			out = append(out, name)
		}
	}
	return out
}

// union appends the names of extra missing from base, keeping order
func union(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, names := range [][]string{base, extra} {
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
