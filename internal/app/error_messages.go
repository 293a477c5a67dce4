// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains shared application-layer constants used across the
// record server handlers, middleware and listener.
//
// All Msg* constants are human-readable message strings that are written into
// HTTP response bodies to describe the outcome of a request. Keeping them in
// one place ensures consistent wording throughout the API.
package app

const (
	// MsgInvalidJSON is returned when the request body cannot be decoded.
	MsgInvalidJSON = "Invalid JSON was passed"

	// MsgBodyDoesNotMatchPath is returned when a pushed record names a type
	// or id other than the one in the URL.
	MsgBodyDoesNotMatchPath = "record type or id does not match the path"

	// MsgStorageUnavailable is returned by the ping endpoint when the record
	// store cannot be reached.
	MsgStorageUnavailable = "storage unavailable"

	// MsgRequestTimedOut is the JSON body written when a request exceeds the
	// server request timeout.
	MsgRequestTimedOut = `{"error":"request timed out"}`

	// MsgIntegrityCheckFailed is returned when the HashSHA256 header does not
	// match the request body.
	MsgIntegrityCheckFailed = "request body integrity check failed"

	// MsgTokenIsExpiredOrInvalid is returned when a JWT bearer token is
	// either expired or cannot be verified (e.g. wrong signature).
	MsgTokenIsExpiredOrInvalid = "token is expired or invalid"

	// MsgNotFound is returned for unknown routes and unsupported methods.
	MsgNotFound = "not found"
)
