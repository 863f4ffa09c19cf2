// ABOUTME: HTTP entry point for webhook deliveries
// ABOUTME: Caps the body size then hands the raw bytes to the dispatcher

package gateway

import (
	"errors"
	"io"
	"net/http"

	"github.com/2389/convo-gateway/internal/config"
	"github.com/2389/convo-gateway/internal/conversation"
)

var errPayloadTooLarge = conversation.NewError(conversation.ErrPayloadTooLarge, "Payload too large")

// handleWebhook handles POST /webhook/.
func (g *Gateway) handleWebhook(w http.ResponseWriter, r *http.Request) {
	limit := g.config.Webhook.MaxBodyBytes
	if limit <= 0 {
		limit = config.DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			g.logger.Info("webhook rejected", "error", "payload too large", "limit", limit)
			g.sendError(w, r, errPayloadTooLarge)
			return
		}
		g.logger.Warn("reading webhook body failed", "error", err)
		g.sendJSONError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	resp := g.dispatcher.Dispatch(r.Context(), body)
	g.sendJSON(w, resp.Status, resp.Body)
}
