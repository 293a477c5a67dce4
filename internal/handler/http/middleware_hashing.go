package http

import (
	"bytes"
	"io"
	"net/http"

	"github.com/MKhiriev/go-favsync/internal/adapter"
	"github.com/MKhiriev/go-favsync/internal/app"
	"github.com/MKhiriev/go-favsync/internal/logger"
	"github.com/MKhiriev/go-favsync/internal/utils"
)

// verifyHash checks the HashSHA256 header against the HMAC of the raw body.
// It is a no-op when the server has no hash key.
func (h *Handler) verifyHash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.hashKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		log := logger.FromRequest(r).With().Str("func", "*Handler.verifyHash").Logger()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Err(err).Msg("failed to read request body")
			utils.WriteError(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		// restore request body
		r.Body = io.NopCloser(bytes.NewReader(body))

		received := r.Header.Get(adapter.HashHeader)
		if received == "" || !utils.VerifyHash(body, received) {
			log.Error().Str("hash from request", received).Msg("hashes are not equal")
			utils.WriteError(w, app.MsgIntegrityCheckFailed, http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r)
	})
}
