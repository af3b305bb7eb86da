// Package testutil provides testing utilities for ShapeShifter
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// CohortTSV is a small sample matrix: one row per sample, the identifier
// in the Sample column, with nulls written as NA.
const CohortTSV = "Sample\tAge\tHeight\tSex\tSmoker\n" +
	"S1\t25\t1.62\tF\tFalse\n" +
	"S2\t42\t1.80\tM\tTrue\n" +
	"S3\t31\t1.75\tM\tFalse\n" +
	"S4\t58\tNA\tF\tTrue\n" +
	"S5\t36\t1.68\tX\tNA\n"

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// WriteFile writes content to name inside dir and returns its path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// WriteCohort writes CohortTSV to a fresh temp directory and returns its path
func WriteCohort(t *testing.T) string {
	t.Helper()
	return WriteFile(t, t.TempDir(), "cohort.tsv", CohortTSV)
}
