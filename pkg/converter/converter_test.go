package converter

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/shapeshifter/pkg/compression"
	"github.com/ajitpratap0/shapeshifter/pkg/config"
	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/format"
	"github.com/ajitpratap0/shapeshifter/pkg/metrics"
	"github.com/ajitpratap0/shapeshifter/pkg/query"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
	"github.com/ajitpratap0/shapeshifter/pkg/testutil"
)

type ConvertSuite struct {
	testutil.IntegrationTestSuite
	input     string
	converter *Converter
}

func TestConvertSuite(t *testing.T) {
	suite.Run(t, new(ConvertSuite))
}

func (s *ConvertSuite) SetupSuite() {
	s.IntegrationTestSuite.SetupSuite()
	s.input = s.CreateTempFile("cohort.tsv", []byte(testutil.CohortTSV))
}

func (s *ConvertSuite) SetupTest() {
	s.converter = New(WithLogger(testutil.TestLogger(s.T())))
}

func (s *ConvertSuite) readBack(path string) *table.Table {
	adapter, err := format.ResolvePath(path, "")
	s.Require().NoError(err)
	t, err := adapter.Read(s.Context(), path, format.ReadOptions{})
	s.Require().NoError(err)
	s.T().Cleanup(t.Release)
	return t
}

func (s *ConvertSuite) TestFilterAndProject() {
	res, err := s.converter.Convert(s.Context(), Request{
		Input:      s.input,
		Output:     s.Path("adults.arrow"),
		Columns:    []string{"Age"},
		Continuous: []query.ContinuousQuery{{Column: "Age", Operator: query.GreaterThan, Value: 30}},
		Discrete:   []query.DiscreteQuery{{Column: "Sex", Values: []interface{}{"M", "F"}}},
	})
	s.Require().NoError(err)

	s.Equal(5, res.RowsIn)
	s.Equal(3, res.RowsOut)
	s.Equal([]string{"Sample", "Age"}, res.ColumnsOut)
	s.Equal("Age>30 and (Sex=='M' or Sex=='F')", res.Filter)
	s.Equal(s.Path("adults.arrow"), res.OutputPath)

	out := s.readBack(res.OutputPath)
	s.Equal([]string{"S2", "S3", "S4"}, out.Identifiers())
	s.Equal([]string{"Sample", "Age"}, out.ColumnNames())
}

func (s *ConvertSuite) TestIncludeAllColumnsIgnoresProjection() {
	res, err := s.converter.Convert(s.Context(), Request{
		Input:             s.input,
		Output:            s.Path("all.parquet"),
		Columns:           []string{"Age"},
		IncludeAllColumns: true,
	})
	s.Require().NoError(err)
	s.Equal([]string{"Sample", "Age", "Height", "Sex", "Smoker"}, res.ColumnsOut)
	s.Empty(res.Filter)
	s.Equal(5, res.RowsOut)
}

func (s *ConvertSuite) TestTextFilterIsAndedWithQueries() {
	res, err := s.converter.Convert(s.Context(), Request{
		Input:      s.input,
		Output:     s.Path("short.json"),
		Filter:     "Height < 1.79",
		Continuous: []query.ContinuousQuery{{Column: "Age", Operator: query.GreaterThan, Value: 30}},
	})
	s.Require().NoError(err)
	s.Equal("Age>30 and Height<1.79", res.Filter)

	out := s.readBack(res.OutputPath)
	s.Equal([]string{"S3", "S5"}, out.Identifiers())
}

func (s *ConvertSuite) TestProjectOntoIdentifierOnly() {
	res, err := s.converter.Convert(s.Context(), Request{
		Input:   s.input,
		Output:  s.Path("ids.tsv"),
		Columns: []string{"Sample"},
		Filter:  "Age > 40",
	})
	s.Require().NoError(err)
	s.Equal([]string{"Sample"}, res.ColumnsOut)

	out := s.readBack(res.OutputPath)
	s.Equal([]string{"Sample"}, out.ColumnNames())
	s.Equal([]string{"S2", "S4"}, out.Identifiers())
}

func (s *ConvertSuite) TestTranspose() {
	res, err := s.converter.Convert(s.Context(), Request{
		Input:     s.input,
		Output:    s.Path("transposed.tsv"),
		Columns:   []string{"Age", "Height"},
		Transpose: true,
	})
	s.Require().NoError(err)
	s.Equal([]string{"Sample", "S1", "S2", "S3", "S4", "S5"}, res.ColumnsOut)
	s.Equal(2, res.RowsOut)

	out := s.readBack(res.OutputPath)
	s.Equal([]string{"Age", "Height"}, out.Identifiers())
	v, err := out.Value("S2", 0)
	s.Require().NoError(err)
	s.Equal(42.0, v)
}

func (s *ConvertSuite) TestGzipOutput() {
	res, err := s.converter.Convert(s.Context(), Request{
		Input:  s.input,
		Output: s.Path("cohort.csv"),
		Gzip:   true,
	})
	s.Require().NoError(err)
	s.True(strings.HasSuffix(res.OutputPath, ".csv.gz"))

	_, err = os.Stat(res.OutputPath)
	s.NoError(err)
	s.Equal(5, s.readBack(res.OutputPath).NumRows())
}

func (s *ConvertSuite) TestCompressionCodec() {
	res, err := s.converter.Convert(s.Context(), Request{
		Input:       s.input,
		Output:      s.Path("cohort.json"),
		Compression: compression.Zstd,
	})
	s.Require().NoError(err)
	s.Equal(s.Path("cohort.json.zst"), res.OutputPath)

	data, err := os.ReadFile(res.OutputPath)
	s.Require().NoError(err)
	s.Equal(compression.Zstd, compression.Detect(data))
	s.Equal(5, s.readBack(res.OutputPath).NumRows())

	_, err = s.converter.Convert(s.Context(), Request{
		Input:       s.input,
		Output:      s.Path("never.json"),
		Gzip:        true,
		Compression: compression.LZ4,
	})
	s.True(errors.IsType(err, errors.ErrorTypeValidation))
}

func (s *ConvertSuite) TestMissingFilterColumn() {
	for _, columns := range [][]string{{"Age"}, nil} {
		_, err := s.converter.Convert(s.Context(), Request{
			Input:   s.input,
			Output:  s.Path("never.arrow"),
			Columns: columns,
			Filter:  "Weight > 3",
		})
		s.Require().Error(err)
		s.True(errors.Is(err, errors.ErrColumnNotFound), "columns %v: %v", columns, err)
	}
}

func (s *ConvertSuite) TestErrors() {
	_, err := s.converter.Convert(s.Context(), Request{Input: s.input, Output: s.Path("out.xlsx")})
	s.True(errors.Is(err, errors.ErrUnsupportedFormat))

	_, err = s.converter.Convert(s.Context(), Request{Input: s.input, Output: s.Path("x.tsv"), Columns: []string{"Weight"}})
	s.True(errors.Is(err, errors.ErrColumnNotFound))

	_, err = s.converter.Convert(s.Context(), Request{Input: s.input, Output: s.Path("x.tsv"), Filter: "Age >"})
	s.True(errors.IsType(err, errors.ErrorTypeQuery))

	_, err = s.converter.Convert(s.Context(), Request{Input: s.Path("missing.tsv"), Output: s.Path("x.tsv")})
	s.True(errors.IsType(err, errors.ErrorTypeNotFound))

	_, err = s.converter.Convert(s.Context(), Request{Output: s.Path("x.tsv")})
	s.True(errors.IsType(err, errors.ErrorTypeValidation))
}

func (s *ConvertSuite) TestMetrics() {
	collector := metrics.NewCollector("convert")
	c := New(WithLogger(testutil.TestLogger(s.T())), WithMetrics(collector))

	_, err := c.Convert(s.Context(), Request{Input: s.input, Output: s.Path("metrics.msgpack")})
	s.Require().NoError(err)

	path := s.Path("shapeshifter.prom")
	s.Require().NoError(collector.WriteTextfile(path))
	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Contains(string(data), `shapeshifter_conversions_total{component="convert",input_format="tsv",output_format="msgpack",status="success"} 1`)
	s.Contains(string(data), `shapeshifter_rows_total{component="convert",direction="read",format="tsv"} 5`)
}

func TestRequestFromConfig(t *testing.T) {
	cfg := config.NewConvertConfig()
	cfg.Input = config.FileConfig{Path: "in.txt", Format: "csv"}
	cfg.Output.Path = "out.db"
	cfg.Output.Gzip = true
	cfg.Columns = []string{"Age"}
	cfg.Filter.Expression = "Age > 3"

	req, err := RequestFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, format.CSV, req.InputFormat)
	assert.Equal(t, format.Format(""), req.OutputFormat)
	assert.Equal(t, "Sample", req.Index)
	assert.True(t, req.Gzip)
	assert.Equal(t, compression.None, req.Compression)
	assert.Equal(t, "Age > 3", req.Filter)

	cfg.Output.Compression = "zst"
	req, err = RequestFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, compression.Zstd, req.Compression)

	cfg.Output.Format = "xlsx"
	_, err = RequestFromConfig(cfg)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedFormat))
}

func TestUnion(t *testing.T) {
	assert.Equal(t, []string{"Age", "Sex", "Height"}, union([]string{"Age", "Sex"}, []string{"Sex", "Height", "Age"}))
	assert.Equal(t, []string{"Age"}, withoutIndex([]string{"Sample", "Age"}, "Sample"))
}
