package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(Config{Level: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestGetReturnsLogger(t *testing.T) {
	require.NoError(t, Init(Config{Level: "error", Encoding: "json"}))
	assert.NotNil(t, Get())
}

func TestNewJobContext(t *testing.T) {
	ctx := NewJobContext(context.Background(), "in.tsv")
	other := NewJobContext(context.Background(), "in.tsv")

	assert.NotEmpty(t, JobID(ctx))
	assert.NotEqual(t, JobID(ctx), JobID(other))
	assert.Empty(t, JobID(context.Background()))
}

func TestWithContextAddsJobFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := NewJobContext(context.Background(), "samples.pq")

	WithContext(ctx, zap.New(core)).Info("reading")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, JobID(ctx), fields["job_id"])
	assert.Equal(t, "samples.pq", fields["input"])
}
