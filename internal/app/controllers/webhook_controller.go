package controllers

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/faeln1/second-brain/internal/app/services"
)

const maxWebhookBody = 4 << 20

// WAHAIngestor stores a raw WAHA webhook delivery.
type WAHAIngestor interface {
	IngestWAHA(ctx context.Context, raw []byte) error
}

type WebhookController struct {
	ingest WAHAIngestor
	token  string
}

// NewWebhookController checks the X-Api-Key header (or ?token=) against
// token when token is set.
func NewWebhookController(ingest WAHAIngestor, token string) *WebhookController {
	return &WebhookController{ingest: ingest, token: strings.TrimSpace(token)}
}

// WAHA handles POST /webhooks/waha.
func (c *WebhookController) WAHA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	if c.token != "" {
		got := r.Header.Get("X-Api-Key")
		if got == "" {
			got = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(c.token)) != 1 {
			writeError(w, http.StatusUnauthorized, errors.New("invalid webhook token"))
			return
		}
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err = c.ingest.IngestWAHA(r.Context(), raw)
	switch {
	case err == nil:
		writeData(w, http.StatusOK, map[string]bool{"stored": true})
	case errors.Is(err, services.ErrUnsupportedEvent):
		writeData(w, http.StatusAccepted, map[string]bool{"stored": false})
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
