package compression

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
)

var payload = bytes.Repeat([]byte("Sample\tAge\tSex\nA\t25\tM\nB\t35\tF\n"), 200)

func TestRoundTrip(t *testing.T) {
	for _, alg := range append(Algorithms(), None) {
		for _, level := range []Level{Fastest, Default, Best} {
			t.Run(string(alg), func(t *testing.T) {
				compressed, err := Compress(payload, alg, level)
				require.NoError(t, err)
				if alg != None {
					assert.Less(t, len(compressed), len(payload))
					assert.Equal(t, alg, Detect(compressed))
				}

				out, err := Decompress(compressed, alg)
				require.NoError(t, err)
				assert.Equal(t, payload, out)
			})
		}
	}
}

func TestStreams(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Zstd, Default)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := w.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r, err := NewReader(&buf, FromPath("table.tsv.zst"))
	require.NoError(t, err)
	defer r.Close()

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat(payload, 10), out)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, Gzip, FromPath("data/cohort.TSV.GZ"))
	assert.Equal(t, S2, FromPath("cohort.parquet.s2"))
	assert.Equal(t, None, FromPath("cohort.tsv"))

	assert.Equal(t, "cohort.tsv", TrimSuffix("cohort.tsv.lz4"))
	assert.Equal(t, "cohort.tsv", TrimSuffix("cohort.tsv"))

	assert.Equal(t, "cohort.tsv.gz", AppendSuffix("cohort.tsv", Gzip))
	assert.Equal(t, "cohort.tsv.gz", AppendSuffix("cohort.tsv.gz", Gzip))
	assert.Equal(t, "cohort.tsv", AppendSuffix("cohort.tsv", None))
}

func TestParse(t *testing.T) {
	for in, want := range map[string]Algorithm{
		"gzip": Gzip, ".gz": Gzip, "gz": Gzip, "ZSTD": Zstd, "": None, "snappy": Snappy, "sz": Snappy,
	} {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("bzip2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedFormat))
}

func TestInvalidGzip(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("PAR1 not gzip")), Gzip)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
	assert.Equal(t, None, Detect([]byte("PAR1")))
}
