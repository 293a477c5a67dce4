// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-favsync/internal/config"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/utils"
	"github.com/MKhiriev/go-favsync/models"
)

// HashHeader carries the hex HMAC-SHA256 of a request body.
const HashHeader = "HashSHA256"

const (
	pingPath    = "/api/ping"
	recordPath  = "/api/records/{type}/{id}"
	changesPath = "/api/records/{type}/changes"

	retryBase = 200 * time.Millisecond
)

// PushResponse is the body of a successful record push.
type PushResponse struct {
	RemoteID   string `json:"remote_id"`
	VersionTag string `json:"version_tag"`
}

type httpRemoteClient struct {
	client *utils.HTTPClient

	hashKey    string
	token      string
	retryCount uint64

	logger *logger.Logger
}

// NewHTTPRemoteClient constructs the HTTP/REST [RemoteClient]. It normalises
// adapterCfg.HTTPAddress into a base URL and configures the underlying resty
// client with the request timeout.
func NewHTTPRemoteClient(adapterCfg config.ClientAdapter, appCfg config.ClientApp, log *logger.Logger) (RemoteClient, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	return &httpRemoteClient{
		client:     utils.NewHTTPClient(baseURL, adapterCfg.RequestTimeout),
		hashKey:    appCfg.HashKey,
		token:      strings.TrimSpace(adapterCfg.Token),
		retryCount: uint64(max(adapterCfg.RetryCount, 0)),
		logger:     log,
	}, nil
}

// NewRemoteClient selects the implementation named by the adapter address:
// [config.MemoryAddress] yields a fresh [MemoryRemote], anything else the
// HTTP client.
func NewRemoteClient(adapterCfg config.ClientAdapter, appCfg config.ClientApp, log *logger.Logger) (RemoteClient, error) {
	if adapterCfg.HTTPAddress == config.MemoryAddress {
		return NewMemoryRemote(), nil
	}

	return NewHTTPRemoteClient(adapterCfg, appCfg, log)
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

func (h *httpRemoteClient) CheckAvailability(ctx context.Context) bool {
	resp, err := h.client.R().SetContext(ctx).Get(pingPath)
	if err != nil {
		h.logger.Debug().Err(err).Str("func", "httpRemoteClient.CheckAvailability").Msg("record server unreachable")
		return false
	}

	return mapHTTPError(resp) == nil
}

func (h *httpRemoteClient) Push(ctx context.Context, rec models.RemoteRecord) (string, string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", "", fmt.Errorf("encode record: %w", err)
	}

	var result PushResponse
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(h.hashHeaders(body)).
		SetPathParams(map[string]string{"type": string(rec.RecordType), "id": rec.RemoteID}).
		SetBody(body).
		SetResult(&result).
		Put(recordPath)
	if err != nil {
		return "", "", fmt.Errorf("push request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return "", "", err
	}

	return result.RemoteID, result.VersionTag, nil
}

func (h *httpRemoteClient) Delete(ctx context.Context, t models.EntityType, remoteID string) error {
	resp, err := h.authedRequest(ctx).
		SetPathParams(map[string]string{"type": string(t), "id": remoteID}).
		Delete(recordPath)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}

	return mapHTTPError(resp)
}

// FetchChanges reads one page of the change feed. Reads are idempotent, so
// transient failures are retried with exponential backoff.
func (h *httpRemoteClient) FetchChanges(ctx context.Context, t models.EntityType, token models.ChangeToken) (models.ChangeSet, error) {
	var changes models.ChangeSet

	backoff := retry.WithMaxRetries(h.retryCount, retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req := h.authedRequest(ctx).
			SetPathParam("type", string(t)).
			SetResult(&changes)
		if len(token) > 0 {
			req.SetQueryParam("token", EncodeToken(token))
		}

		resp, err := req.Get(changesPath)
		if err == nil {
			err = mapHTTPError(resp)
		}
		if isTransient(err) {
			h.logger.Warn().Err(err).Str("func", "httpRemoteClient.FetchChanges").Str("record_type", string(t)).Msg("retrying change fetch")
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return models.ChangeSet{}, fmt.Errorf("fetch changes of %s: %w", t, err)
	}

	return changes, nil
}

func (h *httpRemoteClient) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if h.token != "" {
		req.SetAuthToken(h.token)
	}
	return req
}

func (h *httpRemoteClient) hashHeaders(body []byte) map[string]string {
	if h.hashKey == "" {
		return nil
	}

	return map[string]string{HashHeader: utils.HashString(string(body), h.hashKey)}
}

// EncodeToken renders a change token for the changes query string.
func EncodeToken(token models.ChangeToken) string {
	return base64.RawURLEncoding.EncodeToString(token)
}

// DecodeToken parses a token produced by [EncodeToken].
func DecodeToken(s string) (models.ChangeToken, error) {
	if s == "" {
		return nil, nil
	}

	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return b, nil
}

// SeqToken encodes a change-feed sequence number as a token. Both the record
// server and [MemoryRemote] use this encoding; clients treat it as opaque.
func SeqToken(seq int64) models.ChangeToken {
	return models.ChangeToken(strconv.FormatInt(seq, 10))
}

// TokenSeq is the inverse of [SeqToken]. A nil token is sequence zero.
func TokenSeq(token models.ChangeToken) (int64, error) {
	if len(token) == 0 {
		return 0, nil
	}

	seq, err := strconv.ParseInt(string(token), 10, 64)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}

	return seq, nil
}
