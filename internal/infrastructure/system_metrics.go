package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is a point-in-time snapshot of the Go runtime, reported by
// the health endpoint.
type RuntimeStats struct {
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	SystemMB      float64 `json:"system_mb"`
	GCCount       uint32  `json:"gc_count"`
	LastGCPauseMS float64 `json:"last_gc_pause_ms"`
	CPUCount      int     `json:"cpu_count"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// CollectRuntimeStats reads the runtime counters. start is the process
// start time used for uptime.
func CollectRuntimeStats(start time.Time) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(mem.HeapAlloc) / 1024 / 1024,
		SystemMB:      float64(mem.Sys) / 1024 / 1024,
		GCCount:       mem.NumGC,
		LastGCPauseMS: float64(mem.PauseNs[(mem.NumGC+255)%256]) / 1e6,
		CPUCount:      runtime.NumCPU(),
		UptimeSeconds: time.Since(start).Seconds(),
	}
}

// RegisterRuntimeGauges exposes goroutine, heap and uptime gauges that are
// sampled on every collection.
func RegisterRuntimeGauges(meter metric.Meter, start time.Time) error {
	goroutines, err := meter.Int64ObservableGauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return err
	}

	heap, err := meter.Int64ObservableGauge(
		"system_memory_usage_bytes",
		metric.WithDescription("Heap memory in use in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	uptime, err := meter.Float64ObservableGauge(
		"process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
		o.ObserveInt64(heap, int64(mem.HeapAlloc))
		o.ObserveFloat64(uptime, time.Since(start).Seconds())
		return nil
	}, goroutines, heap, uptime)
	return err
}
