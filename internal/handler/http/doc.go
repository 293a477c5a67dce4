// Package http implements the record server's REST transport.
//
// It wires chi routes for the ping, record push/delete and change feed
// endpoints. Bearer authentication, body integrity checks, request tracing,
// access logging and response compression are handled here before requests
// reach the service layer.
package http
