// Package api implements the HTTP REST API and WebSocket server for robotctl.
//
// This package provides:
//   - REST endpoints to list and invoke robot tools
//   - Call history queries backed by the call store
//   - WebSocket hub broadcasting completed calls in real time
//   - JWT bearer authentication with viewer/operator roles
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The API is a second transport next to the MCP stdio server. Every tool
// request goes through the same robot.Service dispatcher, so an envelope
// returned over HTTP is identical to one returned to an agent. A tool call
// that reached the upstream always answers HTTP 200; the envelope code tells
// the caller whether the robot accepted the command.
//
// # Security
//
// Everything except /health and /metrics requires a token minted with
// "robotctl token". WebSocket clients pass the token in the token query
// parameter because browsers cannot set headers on the upgrade request.
//
// # Graceful Degradation
//
// Without a database the /calls endpoint answers 503; tools keep working.
package api
