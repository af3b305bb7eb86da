package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/shapeshifter/pkg/errors"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollector("convert")

	c.RecordRows("read", "tsv", 10)
	c.RecordRows("read", "tsv", 5)
	c.RecordRows("write", "parquet", 0)
	c.RecordConversion("tsv", "parquet", nil)
	c.RecordConversion("tsv", "parquet", errors.ColumnNotFound("Age"))
	c.ObserveStep("read", "tsv", 20*time.Millisecond)

	assert.Equal(t, 15.0, promtest.ToFloat64(c.rows.WithLabelValues("convert", "read", "tsv")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.conversions.WithLabelValues("convert", "tsv", "parquet", "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.conversions.WithLabelValues("convert", "tsv", "parquet", "not_found")))
	assert.Equal(t, 1, promtest.CollectAndCount(c.stepLatency))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordRows("read", "tsv", 1)
		c.RecordConversion("tsv", "json", nil)
		c.ObserveStep("read", "tsv", time.Second)
		c.SetThroughput("tsv", "json", 1)
	})
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector("convert")
	c.RecordRows("write", "arrow", 3)
	c.SetThroughput("tsv", "arrow", 42)

	path := filepath.Join(t.TempDir(), "shapeshifter.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `shapeshifter_rows_total{component="convert",direction="write",format="arrow"} 3`)
	assert.Contains(t, string(data), "shapeshifter_throughput_rows_per_second")

	err = c.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestTimer(t *testing.T) {
	timer := NewTimer("step")
	assert.Equal(t, "step", timer.Name())
	assert.GreaterOrEqual(t, timer.Stop(), time.Duration(0))
}
