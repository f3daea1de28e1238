package stats

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	BYTE = 1 << (10 * iota)
	KILOBYTE
	MEGABYTE
	GIGABYTE
)

const dumpFile = "metrics.txt"

var (
	heapAllocated = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "daemon",
		Name:      "heap_allocated_bytes",
		Help:      "Bytes of allocated heap objects.",
	})
	goroutines = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "daemon",
		Name:      "goroutines",
		Help:      "Number of running goroutines.",
	})
)

func init() {
	prometheus.MustRegister(heapAllocated, goroutines)
}

// EnableMemoryStatistics starts a goroutine that periodically logs and
// exports the memory usage of the process. If dumpDir is not empty, the
// gathered metrics are appended to a file in it once ctx is done.
func EnableMemoryStatistics(ctx context.Context, interval time.Duration, dumpDir string) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				UpdateMemoryStatistics()
			case <-ctx.Done():
				if dumpDir == "" {
					return
				}
				if err := DumpMetrics(filepath.Join(dumpDir, dumpFile)); err != nil {
					log.WithError(err).Warn("failed to dump metrics")
				}
				return
			}
		}
	}()
}

// UpdateMemoryStatistics refreshes the memory gauges and logs their values.
func UpdateMemoryStatistics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	numRoutines := runtime.NumGoroutine()

	heapAllocated.Set(float64(memStats.HeapAlloc))
	goroutines.Set(float64(numRoutines))

	log.Infof(
		"Total allocated: %.3fMB, Heap allocated: %.3fMB, "+
			"Allocated objects count: %v, Freed objects count: %v, "+
			"Num of go routines: %v",
		toMegabytes(memStats.TotalAlloc),
		toMegabytes(memStats.HeapAlloc),
		memStats.Mallocs,
		memStats.Frees,
		numRoutines,
	)
}

// DumpMetrics appends all the metrics of the default registry to the file
// at path.
func DumpMetrics(path string) error {
	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, v := range metricFamilies {
		if _, err := writer.WriteString(v.String() + "\n"); err != nil {
			return err
		}
	}
	return writer.Flush()
}

func toMegabytes(bytes uint64) float64 {
	return float64(bytes) / MEGABYTE
}
