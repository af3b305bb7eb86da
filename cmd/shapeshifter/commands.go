package main

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/shapeshifter/pkg/compression"
	"github.com/ajitpratap0/shapeshifter/pkg/config"
	"github.com/ajitpratap0/shapeshifter/pkg/converter"
	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/format"
	jsonpool "github.com/ajitpratap0/shapeshifter/pkg/json"
	"github.com/ajitpratap0/shapeshifter/pkg/logger"
	"github.com/ajitpratap0/shapeshifter/pkg/metrics"
	"github.com/ajitpratap0/shapeshifter/pkg/observability"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

// envPrefix binds every flag to an environment variable, e.g. --log-level
// to SHAPESHIFTER_LOG_LEVEL
const envPrefix = "SHAPESHIFTER"

// bindEnv returns a viper instance resolving cmd's flags, falling back to
// SHAPESHIFTER_* environment variables for flags left unset
func bindEnv(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flags")
	}
	return v, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shapeshifter",
		Short: "ShapeShifter - convert, filter and transpose tabular sample data",
		Long: `ShapeShifter converts sample matrices between TSV, CSV, Parquet, Arrow,
JSON, MessagePack, Avro and SQLite files. Rows can be filtered with a query
such as "Age>30 and Sex=='F'", columns projected and the matrix transposed.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("index", table.DefaultIndex, "Name of the sample identifier column")

	root.AddCommand(
		newConvertCmd(),
		newColumnsCmd(),
		newInfoCmd(),
		newPeekCmd(),
		newFormatsCmd(),
		newVersionCmd(),
	)
	return root
}

func initLogger(v *viper.Viper) error {
	cfg := logger.DefaultConfig()
	cfg.Level = v.GetString("log-level")
	if err := logger.Init(cfg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid log level")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseFormat(name string) (format.Format, error) {
	if name == "" {
		return "", nil
	}
	return format.Parse(name)
}

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [input] [output]",
		Short: "Convert a file to another format",
		Long: `Convert reads the input file, applies the optional filter, column
projection and transpose, and writes the output file. Formats are inferred
from the file extensions unless given explicitly.

Example:
  shapeshifter convert cohort.tsv adults.parquet --filter "Age>30" --columns Age,Sex --gzip
  shapeshifter convert --config job.yaml`,
		Args: cobra.MaximumNArgs(2),
		RunE: runConvert,
	}

	flags := cmd.Flags()
	flags.String("config", "", "Path to a YAML job file")
	flags.String("input-format", "", "Input format (default: inferred from the extension)")
	flags.String("output-format", "", "Output format (default: inferred from the extension)")
	flags.String("filter", "", `Row filter, e.g. "Age>30 and (Sex=='M' or Sex=='F')"`)
	flags.String("columns", "", "Comma-separated columns to keep; the index column is always kept")
	flags.Bool("all-columns", false, "Keep every column, ignoring --columns")
	flags.Bool("transpose", false, "Swap rows and columns")
	flags.Bool("gzip", false, "Gzip the output and append .gz to its name")
	flags.String("compression", "", "Compress the output with this codec (gzip, zstd, lz4, snappy, s2) and append its suffix")
	flags.Int("level", int(compression.Default), "Compression level (1-9)")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file")
	flags.Bool("trace", false, "Export trace spans to stderr")
	return cmd
}

// convertConfig merges the job file, positional arguments and flags, in
// increasing order of precedence
func convertConfig(v *viper.Viper, args []string) (*config.ConvertConfig, error) {
	cfg := config.NewConvertConfig()
	if path := v.GetString("config"); path != "" {
		if err := config.Load(path, cfg); err != nil {
			return nil, err
		}
	}

	if len(args) > 0 {
		cfg.Input.Path = args[0]
	}
	if len(args) > 1 {
		cfg.Output.Path = args[1]
	}

	if v.IsSet("input-format") {
		cfg.Input.Format = v.GetString("input-format")
	}
	if v.IsSet("output-format") {
		cfg.Output.Format = v.GetString("output-format")
	}
	if v.IsSet("filter") {
		cfg.Filter.Expression = v.GetString("filter")
	}
	if v.IsSet("columns") {
		cfg.Columns = splitList(v.GetString("columns"))
	}
	if v.IsSet("all-columns") {
		cfg.IncludeAllColumns = v.GetBool("all-columns")
	}
	if v.IsSet("transpose") {
		cfg.Transpose = v.GetBool("transpose")
	}
	if v.IsSet("gzip") {
		cfg.Output.Gzip = v.GetBool("gzip")
	}
	if v.IsSet("compression") {
		cfg.Output.Compression = v.GetString("compression")
	}
	if v.IsSet("level") {
		cfg.Output.CompressionLevel = v.GetInt("level")
	}
	if v.IsSet("index") {
		cfg.Index = v.GetString("index")
	}
	if v.IsSet("log-level") {
		cfg.Observability.LogLevel = v.GetString("log-level")
	}
	if v.IsSet("metrics-file") {
		cfg.Observability.MetricsFile = v.GetString("metrics-file")
	}
	if v.IsSet("trace") {
		cfg.Observability.Trace = v.GetBool("trace")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	v, err := bindEnv(cmd)
	if err != nil {
		return err
	}
	cfg, err := convertConfig(v, args)
	if err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Observability.LogLevel
	if err := logger.Init(logCfg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid log level")
	}
	log := logger.With(zap.String("command", "convert"))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Observability.Trace {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    "shapeshifter",
			ServiceVersion: version,
			SamplingRate:   1.0,
			Writer:         cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}

	opts := []converter.Option{converter.WithLogger(logger.Get())}
	var collector *metrics.Collector
	if cfg.Observability.MetricsFile != "" {
		collector = metrics.NewCollector("convert")
		opts = append(opts, converter.WithMetrics(collector))
	}

	req, err := converter.RequestFromConfig(cfg)
	if err != nil {
		return err
	}
	res, convErr := converter.New(opts...).Convert(ctx, req)

	if collector != nil {
		if err := collector.WriteTextfile(cfg.Observability.MetricsFile); err != nil {
			log.Warn("failed to write metrics", zap.Error(err))
		}
	}
	if convErr != nil {
		return convErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %d rows x %d columns to %s\n", res.RowsOut, len(res.ColumnsOut), res.OutputPath)
	if res.Filter != "" {
		fmt.Fprintf(out, "Filter: %s (%d of %d rows kept)\n", res.Filter, res.RowsOut, res.RowsIn)
	}
	return nil
}

// openDataset is shared by the inspection commands
func openDataset(cmd *cobra.Command, path string) (*converter.Dataset, *viper.Viper, error) {
	v, err := bindEnv(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := initLogger(v); err != nil {
		return nil, nil, err
	}
	f, err := parseFormat(v.GetString("format"))
	if err != nil {
		return nil, nil, err
	}
	d, err := converter.Open(path, f, v.GetString("index"))
	if err != nil {
		return nil, nil, err
	}
	return d, v, nil
}

func newColumnsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns <input>",
		Short: "List the data columns of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := openDataset(cmd, args[0])
			if err != nil {
				return err
			}
			names, err := d.ColumnNames(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "", "Input format (default: inferred from the extension)")
	return cmd
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <input> [column]",
		Short: "Describe one column or every column of a file as JSON",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, v, err := openDataset(cmd, args[0])
			if err != nil {
				return err
			}
			limit := v.GetInt("limit")

			var info interface{}
			if len(args) == 2 {
				info, err = d.ColumnInfo(cmd.Context(), args[1], limit)
			} else {
				info, err = d.AllColumnsInfo(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			if err := jsonpool.MarshalToWriter(cmd.OutOrStdout(), info, "  "); err != nil {
				return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode column info")
			}
			return nil
		},
	}
	cmd.Flags().String("format", "", "Input format (default: inferred from the extension)")
	cmd.Flags().Int("limit", 0, "Maximum number of unique values to report (0 for all)")
	return cmd
}

func newPeekCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peek <input>",
		Short: "Print the first rows and columns of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, v, err := openDataset(cmd, args[0])
			if err != nil {
				return err
			}

			var t *table.Table
			if columns := splitList(v.GetString("columns")); len(columns) > 0 {
				t, err = d.PeekColumns(cmd.Context(), columns, v.GetInt("rows"))
			} else {
				t, err = d.Peek(cmd.Context(), v.GetInt("rows"), v.GetInt("cols"))
			}
			if err != nil {
				return err
			}
			defer t.Release()

			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.String("format", "", "Input format (default: inferred from the extension)")
	flags.Int("rows", 10, "Number of rows to show")
	flags.Int("cols", 10, "Number of data columns to show (0 for the identifier only, -1 for all)")
	flags.String("columns", "", "Comma-separated columns to show instead of the first --cols")
	return cmd
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported formats and their file extensions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, f := range format.Formats() {
				fmt.Fprintf(out, "%-8s %s\n", f, strings.Join(format.Extensions(f), " "))
			}
			fmt.Fprintf(out, "\nCompression suffixes: %s\n", strings.Join(compressionSuffixes(), " "))
		},
	}
}

func compressionSuffixes() []string {
	var out []string
	for _, alg := range compression.Algorithms() {
		if s := compression.Suffix(alg); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ShapeShifter v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
