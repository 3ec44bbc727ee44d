package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"agencypulse/internal/dashboard"
	"agencypulse/internal/dataprocessing"
	"agencypulse/internal/infrastructure"
	"agencypulse/pkg/contracts"
)

// Readiness states reported by ReadinessCheck.
const (
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	dataset   *dataprocessing.Dataset
	registry  *dashboard.Registry
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                       `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Version   string                       `json:"version"`
	Runtime   *infrastructure.RuntimeStats `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth     `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// VersionResponse is the version endpoint payload.
type VersionResponse struct {
	contracts.VersionInfo
	StartTime     time.Time `json:"start_time"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

// NewHealthService creates a health service over the loaded dataset and
// layout registry.
func NewHealthService(version string, ds *dataprocessing.Dataset, reg *dashboard.Registry, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "health_service")

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.Int("records", ds.Len()))

	return &HealthService{
		version:   version,
		dataset:   ds,
		registry:  reg,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}

	hs.logger.DebugContext(ctx, "HealthCheck: completed",
		slog.String("status", status.Status),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return status
}

// ReadinessCheck reports ready once the dataset and the layouts are loaded.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"dataset": hs.checkDatasetHealth(),
			"layouts": hs.checkLayoutHealth(),
		},
	}

	for name, service := range status.Services {
		if service.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "ReadinessCheck: service not ready",
				slog.String("service", name),
				slog.String("message", service.Message))
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	stats := infrastructure.CollectRuntimeStats(hs.startTime)
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   &stats,
	}
}

// Version returns version information
func (hs *HealthService) Version() VersionResponse {
	info := contracts.GetVersionInfo()
	info.Version = hs.version
	return VersionResponse{
		VersionInfo:   info,
		StartTime:     hs.startTime.UTC(),
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
	}
}

func (hs *HealthService) checkDatasetHealth() ServiceHealth {
	if hs.dataset == nil {
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: "dataset not loaded",
		}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d records from %s", hs.dataset.Len(), hs.dataset.Source()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

func (hs *HealthService) checkLayoutHealth() ServiceHealth {
	if hs.registry == nil || len(hs.registry.List()) == 0 {
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: "no dashboard layouts registered",
		}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d layouts registered", len(hs.registry.List())),
	}
}
