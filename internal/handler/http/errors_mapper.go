package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-favsync/internal/adapter"
	"github.com/MKhiriev/go-favsync/internal/service"
	"github.com/MKhiriev/go-favsync/internal/store"
	"github.com/MKhiriev/go-favsync/internal/utils"
)

var errorStatusMap = map[error]int{
	service.ErrInvalidDataProvided:     http.StatusBadRequest,
	service.ErrUnknownEntityType:       http.StatusBadRequest,
	service.ErrInvalidChangeToken:      http.StatusBadRequest,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,
	adapter.ErrInvalidToken:            http.StatusBadRequest,
	ErrInvalidLimit:                    http.StatusBadRequest,
	ErrIntegrityCheckFailed:            http.StatusBadRequest,
	ErrNoUserID:                        http.StatusUnauthorized,

	store.ErrRecordNotFound:  http.StatusNotFound,
	store.ErrVersionConflict: http.StatusConflict,

	store.ErrBuildingSQLQuery:     http.StatusInternalServerError,
	store.ErrExecutingQuery:       http.StatusInternalServerError,
	store.ErrBeginningTransaction: http.StatusInternalServerError,
	store.ErrCommitingTransaction: http.StatusInternalServerError,
	store.ErrExecutingStatement:   http.StatusInternalServerError,
	store.ErrScanningRow:          http.StatusInternalServerError,
	store.ErrScanningRows:         http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// writeServiceError answers with the status of err. Server-side failures get
// a generic message; client errors carry the error text.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	utils.WriteError(w, msg, status)
}
