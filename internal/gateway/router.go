// ABOUTME: Route table for the gateway HTTP server
// ABOUTME: Every route answers with and without a trailing slash

package gateway

import (
	"net/http"

	"github.com/2389/convo-gateway/internal/auth"
)

// handleBoth registers h for path and path + "/". The "{$}" anchor keeps the
// slash variant from matching deeper paths.
func handleBoth(mux *http.ServeMux, method, path string, h http.Handler) {
	mux.Handle(method+" "+path, h)
	mux.Handle(method+" "+path+"/{$}", h)
}

func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /health/ready", g.handleReady)

	handleBoth(mux, http.MethodPost, "/webhook", http.HandlerFunc(g.handleWebhook))

	handleBoth(mux, http.MethodGet, "/conversations", http.HandlerFunc(g.handleListConversations))
	handleBoth(mux, http.MethodGet, "/conversations/{id}", http.HandlerFunc(g.handleGetConversation))
	handleBoth(mux, http.MethodGet, "/conversations/{id}/messages", http.HandlerFunc(g.handleListMessages))
	handleBoth(mux, http.MethodGet, "/stats", http.HandlerFunc(g.handleStats))

	// Close is the only mutating Query API call and requires a scoped token when configured
	var closeHandler http.Handler = http.HandlerFunc(g.handleCloseConversation)
	if g.verifier != nil {
		closeHandler = auth.RequireScope(g.verifier, auth.ScopeCloseConversation)(closeHandler)
	}
	handleBoth(mux, http.MethodPost, "/conversations/{id}/close", closeHandler)

	return requestLogger(g.logger)(g.jsonFallback(mux))
}

// jsonFallback serves matched routes through mux and rewrites the mux's
// plain-text 404 and 405 replies as JSON errors. The Allow header survives.
func (g *Gateway) jsonFallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := mux.Handler(r)
		if pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}

		capture := &discardWriter{header: make(http.Header)}
		h.ServeHTTP(capture, r)

		if allow := capture.header.Get("Allow"); allow != "" {
			w.Header().Set("Allow", allow)
		}
		switch capture.status {
		case http.StatusMethodNotAllowed:
			g.sendJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		default:
			g.sendJSONError(w, http.StatusNotFound, "Not found")
		}
	})
}

// discardWriter records the status a handler chose and drops its body.
type discardWriter struct {
	header http.Header
	status int
}

func (d *discardWriter) Header() http.Header { return d.header }

func (d *discardWriter) WriteHeader(status int) {
	if d.status == 0 {
		d.status = status
	}
}

func (d *discardWriter) Write(b []byte) (int, error) {
	d.WriteHeader(http.StatusOK)
	return len(b), nil
}
