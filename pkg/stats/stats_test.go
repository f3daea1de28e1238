package stats_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/privacy-pool-network/pool-daemon/pkg/stats"
)

func TestDumpMetrics(t *testing.T) {
	stats.UpdateMemoryStatistics()

	path := filepath.Join(t.TempDir(), "metrics.txt")
	require.NoError(t, stats.DumpMetrics(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "daemon_heap_allocated_bytes")
	require.Contains(t, string(content), "daemon_goroutines")
}

func TestEnableMemoryStatistics(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	stats.EnableMemoryStatistics(ctx, 10*time.Millisecond, dir)
	time.Sleep(30 * time.Millisecond)
	cancel()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "metrics.txt"))
		return err == nil
	}, time.Second, 10*time.Millisecond)
}
