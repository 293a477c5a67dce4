// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import "errors"

// Sentinel errors returned by [RemoteClient] implementations. HTTP status
// codes are mapped onto them by mapHTTPError so callers can use [errors.Is]
// without knowing the transport.
var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("record not found")
	ErrVersionConflict     = errors.New("version conflict")
	ErrInternalServerError = errors.New("internal server error")
	ErrBadGateway          = errors.New("bad gateway")
	ErrServiceUnavailable  = errors.New("service unavailable")

	// ErrInvalidAddress is returned by the constructors for an unusable
	// record server address.
	ErrInvalidAddress = errors.New("invalid record server address")

	// ErrInvalidToken is returned when a change token cannot be decoded.
	ErrInvalidToken = errors.New("invalid change token")
)
