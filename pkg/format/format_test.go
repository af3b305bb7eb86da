package format

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/shapeshifter/pkg/compression"
	"github.com/ajitpratap0/shapeshifter/pkg/errors"
	"github.com/ajitpratap0/shapeshifter/pkg/table"
)

var extensionsByFormat = map[Format]string{
	TSV:     ".tsv",
	CSV:     ".csv",
	Parquet: ".parquet",
	Arrow:   ".arrow",
	JSON:    ".json",
	MsgPack: ".msgpack",
	Avro:    ".avro",
	SQLite:  ".sqlite",
}

func cohort(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromValues(
		[]string{"Sample", "Age", "Height", "Smoker", "Sex"},
		[][]interface{}{
			{"A", "B", "C", "D"},
			{int64(25), int64(35), int64(-4), int64(61)},
			{1.75, 2.0, nil, 1.5e-3},
			{true, nil, false, true},
			{"M", "F", nil, "it's \"quoted\", with\ttabs"},
		},
		table.DefaultIndex,
	)
	require.NoError(t, err)
	t.Cleanup(tbl.Release)
	return tbl
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	want := cohort(t)

	for _, f := range Formats() {
		for _, gzip := range []bool{false, true} {
			name := string(f)
			if gzip {
				name += "+gzip"
			}
			t.Run(name, func(t *testing.T) {
				adapter, err := Resolve(f)
				require.NoError(t, err)
				assert.Equal(t, f, adapter.Format())

				path := filepath.Join(t.TempDir(), "cohort"+extensionsByFormat[f])
				written, err := adapter.Write(ctx, want, path, WriteOptions{Gzip: gzip})
				require.NoError(t, err)
				if gzip {
					assert.Equal(t, path+".gz", written)
				} else {
					assert.Equal(t, path, written)
				}

				got, err := adapter.Read(ctx, written, ReadOptions{})
				require.NoError(t, err)
				defer got.Release()

				assert.True(t, want.Equal(got), "want:\n%s\ngot:\n%s", want, got)
				assert.Equal(t, table.DefaultIndex, got.Index())

				cols, err := adapter.ListColumns(ctx, written, table.DefaultIndex)
				require.NoError(t, err)
				assert.Equal(t, []string{"Age", "Height", "Smoker", "Sex"}, cols)
			})
		}
	}
}

func TestReadProjection(t *testing.T) {
	ctx := context.Background()
	src := cohort(t)

	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			adapter, err := Resolve(f)
			require.NoError(t, err)
			path, err := adapter.Write(ctx, src, filepath.Join(t.TempDir(), "cohort"+extensionsByFormat[f]), WriteOptions{})
			require.NoError(t, err)

			got, err := adapter.Read(ctx, path, ReadOptions{Columns: []string{"Sex", "Age"}})
			require.NoError(t, err)
			defer got.Release()
			assert.Equal(t, []string{"Sample", "Sex", "Age"}, got.ColumnNames())
			assert.Equal(t, 4, got.NumRows())

			_, err = adapter.Read(ctx, path, ReadOptions{Columns: []string{"Weight"}})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrColumnNotFound))
		})
	}
}

func TestDelimitedRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.tsv")
	require.NoError(t, os.WriteFile(path, []byte("Sample\tAge\tSex\tBMI\nA\t25\tM\t20\nB\tNA\tF\t22.5\nC\t40\t\tNA\n"), 0o644))

	adapter, err := Resolve(TSV)
	require.NoError(t, err)
	tbl, err := adapter.Read(context.Background(), path, ReadOptions{})
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, arrow.PrimitiveTypes.Int64, tbl.Schema().Field(1).Type)
	assert.Equal(t, arrow.BinaryTypes.String, tbl.Schema().Field(2).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Float64, tbl.Schema().Field(3).Type)

	age, err := tbl.ColumnValues("Age")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(25), nil, int64(40)}, age)

	sex, err := tbl.ColumnValues("Sex")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"M", "F", nil}, sex)
}

func TestDelimitedHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tsv")
	require.NoError(t, os.WriteFile(path, []byte("Sample\tAge\n"), 0o644))

	adapter, err := Resolve(TSV)
	require.NoError(t, err)
	tbl, err := adapter.Read(context.Background(), path, ReadOptions{})
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, 0, tbl.NumRows())
	assert.Equal(t, []string{"Sample", "Age"}, tbl.ColumnNames())
}

func TestDelimitedKeepsPaddedNumbersAsText(t *testing.T) {
	ctx := context.Background()
	want, err := table.FromValues(
		[]string{"Sample", "Code", "Age"},
		[][]interface{}{{"001", "002"}, {"+7", "8"}, {int64(3), int64(-4)}},
		table.DefaultIndex,
	)
	require.NoError(t, err)
	defer want.Release()

	adapter, err := Resolve(TSV)
	require.NoError(t, err)
	path, err := adapter.Write(ctx, want, filepath.Join(t.TempDir(), "codes.tsv"), WriteOptions{})
	require.NoError(t, err)

	got, err := adapter.Read(ctx, path, ReadOptions{})
	require.NoError(t, err)
	defer got.Release()
	assert.True(t, want.Equal(got), "want:\n%s\ngot:\n%s", want, got)
	assert.Equal(t, []string{"001", "002"}, got.Identifiers())
}

func TestSQLiteWithoutDataTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.sqlite")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE samples ("Sample" TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	adapter, err := Resolve(SQLite)
	require.NoError(t, err)
	_, err = adapter.ListColumns(context.Background(), path, "Sample")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestListColumnsDropsSyntheticColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.csv")
	require.NoError(t, os.WriteFile(path, []byte("Sample,Age,Unnamed: 3,Sex,__index_level_0__\nA,1,x,M,0\n"), 0o644))

	adapter, err := Resolve(CSV)
	require.NoError(t, err)
	cols, err := adapter.ListColumns(context.Background(), path, "Sample")
	require.NoError(t, err)
	assert.Equal(t, []string{"Age", "Unnamed: 3", "Sex"}, cols)

	cols, err = adapter.ListColumns(context.Background(), path, "Age")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sample", "Unnamed: 3", "Sex"}, cols)
}

func TestGzipParquetUsesColumnCodec(t *testing.T) {
	ctx := context.Background()
	adapter, err := Resolve(Parquet)
	require.NoError(t, err)

	path, err := adapter.Write(ctx, cohort(t), filepath.Join(t.TempDir(), "cohort.parquet"), WriteOptions{Gzip: true})
	require.NoError(t, err)
	assert.Equal(t, ".gz", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, compression.None, compression.Detect(data))

	got, err := adapter.Read(ctx, path, ReadOptions{})
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, 4, got.NumRows())
}

func TestParquetReadsEveryBatch(t *testing.T) {
	ctx := context.Background()
	n := parquetBatchSize + 10
	ids := make([]interface{}, n)
	ages := make([]interface{}, n)
	for i := range ids {
		ids[i] = "S" + strconv.Itoa(i)
		ages[i] = int64(i % 90)
	}
	want, err := table.FromValues([]string{"Sample", "Age"}, [][]interface{}{ids, ages}, table.DefaultIndex)
	require.NoError(t, err)
	defer want.Release()

	adapter, err := Resolve(Parquet)
	require.NoError(t, err)
	path, err := adapter.Write(ctx, want, filepath.Join(t.TempDir(), "wide.parquet"), WriteOptions{})
	require.NoError(t, err)

	got, err := adapter.Read(ctx, path, ReadOptions{Columns: []string{"Age"}})
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, n, got.NumRows())
	assert.True(t, want.Equal(got))
}

func TestStreamCompressionBySuffix(t *testing.T) {
	ctx := context.Background()
	adapter, err := Resolve(TSV)
	require.NoError(t, err)

	path, err := adapter.Write(ctx, cohort(t), filepath.Join(t.TempDir(), "cohort.tsv.zst"), WriteOptions{})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, compression.Zstd, compression.Detect(data))

	got, err := adapter.Read(ctx, path, ReadOptions{})
	require.NoError(t, err)
	defer got.Release()
	assert.True(t, cohort(t).Equal(got))
}

func TestResolveAndInfer(t *testing.T) {
	_, err := Resolve("xlsx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedFormat))
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))

	for path, want := range map[string]Format{
		"a.tsv":            TSV,
		"a.TSV.gz":         TSV,
		"dir.v2/a.parquet": Parquet,
		"a.feather":        Arrow,
		"a.json.zst":       JSON,
		"a.db":             SQLite,
	} {
		got, err := FromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err = FromPath("a.xlsx")
	assert.True(t, errors.Is(err, errors.ErrUnsupportedFormat))

	f, err := Parse("Feather")
	require.NoError(t, err)
	assert.Equal(t, Arrow, f)

	adapter, err := ResolvePath("a.data", CSV)
	require.NoError(t, err)
	assert.Equal(t, CSV, adapter.Format())

	assert.Equal(t, []string{".arrow", ".feather", ".ipc"}, Extensions(Arrow))
}

func TestReadMissingFile(t *testing.T) {
	adapter, err := Resolve(TSV)
	require.NoError(t, err)

	_, err = adapter.Read(context.Background(), filepath.Join(t.TempDir(), "missing.tsv"), ReadOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestAvroName(t *testing.T) {
	taken := map[string]bool{}
	assert.Equal(t, "Age", avroName("Age", taken))
	assert.Equal(t, "Body_Site", avroName("Body Site", taken))
	assert.Equal(t, "_1st", avroName("1st", taken))
	assert.Equal(t, "Body_Site_1", avroName("Body-Site", taken))
}
