// ABOUTME: Query API handlers exposing conversations, messages, and stats as JSON
// ABOUTME: Provides read endpoints plus the authenticated close endpoint

package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/2389/convo-gateway/internal/auth"
	"github.com/2389/convo-gateway/internal/store"
	"github.com/2389/convo-gateway/internal/webhook"
)

// ConversationResponse is the JSON form of a conversation with its messages
// nested in ascending created_at order.
type ConversationResponse struct {
	ID        string            `json:"id"`
	State     string            `json:"state"`
	CreatedAt string            `json:"created_at"`
	Messages  []MessageResponse `json:"messages"`
}

// MessageResponse is the JSON form of a message.
type MessageResponse struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation"`
	Direction      string `json:"direction"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

// StatsResponse is the JSON response for GET /stats/.
type StatsResponse struct {
	TotalConversations        int `json:"total_conversations"`
	OpenConversations         int `json:"open_conversations"`
	ClosedConversations       int `json:"closed_conversations"`
	ConversationsWithMessages int `json:"conversations_with_messages"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toConversationResponse(c *store.Conversation, msgs []*store.Message) ConversationResponse {
	return ConversationResponse{
		ID:        c.ID,
		State:     string(c.State),
		CreatedAt: formatTimestamp(c.CreatedAt),
		Messages:  toMessageResponses(msgs),
	}
}

// toMessageResponses never returns nil so an empty list encodes as [].
func toMessageResponses(msgs []*store.Message) []MessageResponse {
	resp := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, toMessageResponse(m))
	}
	return resp
}

func toMessageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Direction:      string(m.Direction),
		Content:        m.Content,
		CreatedAt:      formatTimestamp(m.CreatedAt),
	}
}

// handleListConversations handles GET /conversations/.
func (g *Gateway) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := g.conversations.List(r.Context())
	if err != nil {
		g.sendError(w, r, err)
		return
	}
	msgs, err := g.conversations.MessagesByConversation(r.Context())
	if err != nil {
		g.sendError(w, r, err)
		return
	}

	resp := make([]ConversationResponse, 0, len(convs))
	for _, c := range convs {
		resp = append(resp, toConversationResponse(c, msgs[c.ID]))
	}
	g.sendJSON(w, http.StatusOK, resp)
}

// handleGetConversation handles GET /conversations/{id}/.
func (g *Gateway) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := g.conversations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		g.sendError(w, r, err)
		return
	}
	msgs, err := g.conversations.Messages(r.Context(), conv.ID)
	if err != nil {
		g.sendError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, toConversationResponse(conv, msgs))
}

// handleListMessages handles GET /conversations/{id}/messages/.
// Messages are returned in ascending created_at order.
func (g *Gateway) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := g.conversations.Messages(r.Context(), r.PathValue("id"))
	if err != nil {
		g.sendError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, toMessageResponses(msgs))
}

// handleCloseConversation handles POST /conversations/{id}/close/.
func (g *Gateway) handleCloseConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := g.conversations.Close(r.Context(), id)
	if err != nil {
		g.sendError(w, r, err)
		return
	}

	if subject, ok := auth.SubjectFromContext(r.Context()); ok {
		g.logger.Info("conversation closed via API", "conversation_id", id, "subject", subject,
			"already_closed", result.AlreadyClosed)
	}
	g.sendJSON(w, http.StatusOK, webhook.CloseBody(result))
}

// handleStats handles GET /stats/.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := g.conversations.Stats(r.Context())
	if err != nil {
		g.sendError(w, r, err)
		return
	}
	g.sendJSON(w, http.StatusOK, StatsResponse{
		TotalConversations:        stats.TotalConversations,
		OpenConversations:         stats.OpenConversations,
		ClosedConversations:       stats.ClosedConversations,
		ConversationsWithMessages: stats.ConversationsWithMessages,
	})
}

// sendJSON writes v as a JSON response with the given status.
func (g *Gateway) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	g.sendJSON(w, status, map[string]string{"error": message})
}

// sendError maps a service error to its status and body. Internal errors are
// logged here and never echoed to the caller.
func (g *Gateway) sendError(w http.ResponseWriter, r *http.Request, err error) {
	resp := webhook.ErrorResponse(err)
	if resp.Status >= http.StatusInternalServerError {
		g.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	g.sendJSON(w, resp.Status, resp.Body)
}
