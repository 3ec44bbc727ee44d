// Package http implements the REST and websocket handlers of the Agency
// Pulse server. Handlers stay thin: they read query parameters, validate
// them with the middleware Validator, call the dashboard service with the
// access context stored by the AccessGate middleware and render the
// result. Every failure is written as RFC 7807 problem details through
// errors.ErrorHandler.
//
// Filter parameters shared by every data endpoint:
//
//	year (agency_appointment_year), prod_line, prod_abbr, agency_id
//
// An empty value or "All" leaves the dimension unconstrained.
//
// The live endpoint /ws/dashboards/{layout} checks access and the layout
// before the upgrade, then hands the connection to a websocket.Session.
package http
