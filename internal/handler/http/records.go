// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-favsync/internal/adapter"
	"github.com/MKhiriev/go-favsync/internal/app"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/service"
	"github.com/MKhiriev/go-favsync/internal/utils"
	"github.com/MKhiriev/go-favsync/models"
)

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.services.RecordService.Ping(r.Context()); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "*Handler.ping").Msg("storage is unreachable")
		utils.WriteError(w, app.MsgStorageUnavailable, http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// pushRecord stores the record in the body under the type and id of the
// path. Body values, when present, must agree with the path.
func (h *Handler) pushRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r).With().Str("func", "*Handler.pushRecord").Logger()

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Msg("no user ID was given")
		writeServiceError(w, ErrNoUserID)
		return
	}

	var rec models.RemoteRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		log.Err(err).Msg(app.MsgInvalidJSON)
		utils.WriteError(w, app.MsgInvalidJSON, http.StatusBadRequest)
		return
	}

	recordType, remoteID := models.EntityType(chi.URLParam(r, "type")), chi.URLParam(r, "id")
	if (rec.RecordType != "" && rec.RecordType != recordType) || (rec.RemoteID != "" && rec.RemoteID != remoteID) {
		writeServiceError(w, fmt.Errorf("%w: %s", service.ErrInvalidDataProvided, app.MsgBodyDoesNotMatchPath))
		return
	}
	rec.RecordType, rec.RemoteID = recordType, remoteID

	stored, err := h.services.RecordService.Push(ctx, userID, rec)
	if err != nil {
		log.Err(err).Str("record_type", string(recordType)).Str("remote_id", remoteID).Msg("push failed")
		writeServiceError(w, err)
		return
	}

	utils.WriteJSON(w, adapter.PushResponse{RemoteID: stored.RemoteID, VersionTag: stored.VersionTag}, http.StatusOK)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r).With().Str("func", "*Handler.deleteRecord").Logger()

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Msg("no user ID was given")
		writeServiceError(w, ErrNoUserID)
		return
	}

	recordType, remoteID := models.EntityType(chi.URLParam(r, "type")), chi.URLParam(r, "id")
	if err := h.services.RecordService.Delete(ctx, userID, recordType, remoteID); err != nil {
		log.Err(err).Str("record_type", string(recordType)).Str("remote_id", remoteID).Msg("delete failed")
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// changes serves one page of the change feed. Query: token (optional,
// base64url) and limit (optional, capped by the server page size).
func (h *Handler) changes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r).With().Str("func", "*Handler.changes").Logger()

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Msg("no user ID was given")
		writeServiceError(w, ErrNoUserID)
		return
	}

	query := r.URL.Query()
	token, err := adapter.DecodeToken(query.Get("token"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			writeServiceError(w, fmt.Errorf("%w: %q", ErrInvalidLimit, raw))
			return
		}
	}

	recordType := models.EntityType(chi.URLParam(r, "type"))
	changeSet, err := h.services.RecordService.Changes(ctx, userID, recordType, token, limit)
	if err != nil {
		log.Err(err).Str("record_type", string(recordType)).Msg("reading changes failed")
		writeServiceError(w, err)
		return
	}

	utils.WriteJSON(w, changeSet, http.StatusOK)
}
