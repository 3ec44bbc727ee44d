package config

import (
	"time"

	"agencypulse/pkg/contracts"
)

// Application constants
const (
	// Application Info
	AppName     = "Agency Pulse"
	AppVersion  = contracts.Version
	ServiceName = "agency-pulse"

	// Data
	DefaultDatasetFile     = "data/finalapi.csv"
	DefaultRetentionHigh   = 0.8
	DefaultRetentionMedium = 0.5
	DefaultMaxPanelWorkers = 4

	// Bin counts used by the built-in dashboards
	RetentionHistogramBins = 50
	LossHistogramBins      = 40
	GrowthHistogramBins    = 40
	MaxBins                = 500

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultRequestTimeout = 30 * time.Second
	WebSocketPingPeriod   = 30 * time.Second
	WebSocketPongWait     = 60 * time.Second
	WebSocketWriteWait    = 10 * time.Second

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024
	WebSocketMaxMessageSize  = 64 * 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// API routes
const (
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
