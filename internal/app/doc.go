// Package app wires the Agency Pulse web server together: configuration,
// logging, telemetry, the dataset and layouts, the services and the HTTP
// and websocket routes.
//
// # Initialization Flow
//
//  1. Load configuration (defaults, YAML file, environment)
//  2. Initialize the JSON logger and OpenTelemetry providers
//  3. Load the dataset; a load failure aborts startup
//  4. Load the layout registry and build the access gate
//  5. Create the dashboard and health services and the live session hub
//  6. Build the router and the HTTP server
//
// # Routes
//
//	/api/health, /api/health/ready, /api/health/live, /api/version   open
//	/api/...                                                          gated
//	/ws/dashboards/{layout}                                           gated
//	/metrics                                                          open
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then stops the HTTP server, closes
// live sessions and flushes telemetry. Errors are returned to the caller;
// the package never calls os.Exit.
package app
