// ABOUTME: Tests for webhook dispatch, handler outcomes and status mapping
// ABOUTME: Includes the full open/message/close scenario against SQLite

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/convo-gateway/internal/conversation"
	"github.com/2389/convo-gateway/internal/dedupe"
	"github.com/2389/convo-gateway/internal/store"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *store.MockStore) {
	t.Helper()
	st := store.NewMockStore()
	return NewDispatcher(conversation.New(st, nil), nil, nil), st
}

func dispatch(t *testing.T, d *Dispatcher, body string) *Response {
	t.Helper()
	resp := d.Dispatch(context.Background(), []byte(body))
	require.NotNil(t, resp)
	return resp
}

func TestDispatch_NewConversation(t *testing.T) {
	d, st := newTestDispatcher(t)

	resp := dispatch(t, d, `{"type":"NEW_CONVERSATION","timestamp":"2025-05-09T20:08:00Z","data":{"id":"c1"}}`)

	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, map[string]string{"message": "Conversation created", "conversation_id": "c1"}, resp.Body)

	conv, err := st.GetConversation(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, store.StateOpen, conv.State)
}

func TestDispatch_NewConversation_Errors(t *testing.T) {
	d, st := newTestDispatcher(t)
	require.Equal(t, http.StatusCreated, dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"c1"}}`).Status)

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{"duplicate", `{"type":"NEW_CONVERSATION","data":{"id":"c1"}}`, http.StatusBadRequest, "Conversation already exists"},
		{"missing id", `{"type":"NEW_CONVERSATION","data":{"other":"x"}}`, http.StatusBadRequest, "Missing conversation ID"},
		{"empty id", `{"type":"NEW_CONVERSATION","data":{"id":""}}`, http.StatusBadRequest, "Missing conversation ID"},
		{"numeric id", `{"type":"NEW_CONVERSATION","data":{"id":42}}`, http.StatusBadRequest, "Invalid data for NEW_CONVERSATION event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := dispatch(t, d, tt.body)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.errMsg, resp.Body["error"])
		})
	}

	convs, err := st.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Len(t, convs, 1, "failed events must not create records")
}

func TestDispatch_NewMessage(t *testing.T) {
	d, st := newTestDispatcher(t)
	dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"c1"}}`)

	resp := dispatch(t, d, `{"type":"NEW_MESSAGE","data":{"id":"m1","conversation_id":"c1","direction":"RECEIVED","content":"hello"}}`)

	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, map[string]string{"message": "Message created", "message_id": "m1"}, resp.Body)

	msg, err := st.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, store.DirectionReceived, msg.Direction)
	assert.Equal(t, "hello", msg.Content)
}

func TestDispatch_NewMessage_Errors(t *testing.T) {
	d, _ := newTestDispatcher(t)
	dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"open"}}`)
	dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"closed"}}`)
	dispatch(t, d, `{"type":"CLOSE_CONVERSATION","data":{"id":"closed"}}`)
	dispatch(t, d, `{"type":"NEW_MESSAGE","data":{"id":"m1","conversation_id":"open","direction":"SENT","content":"x"}}`)

	tests := []struct {
		name   string
		data   string
		status int
		errMsg string
	}{
		{"missing content", `{"id":"m2","conversation_id":"open","direction":"SENT"}`, http.StatusBadRequest, "Missing required message fields"},
		{"missing id", `{"conversation_id":"open","direction":"SENT","content":"x"}`, http.StatusBadRequest, "Missing required message fields"},
		{"bad direction", `{"id":"m2","conversation_id":"open","direction":"UP","content":"x"}`, http.StatusBadRequest, "Invalid message direction, expected SENT or RECEIVED"},
		{"duplicate", `{"id":"m1","conversation_id":"open","direction":"SENT","content":"x"}`, http.StatusBadRequest, "Message already exists"},
		{"unknown conversation", `{"id":"m2","conversation_id":"nope","direction":"SENT","content":"x"}`, http.StatusNotFound, "Conversation not found"},
		{"closed conversation", `{"id":"m2","conversation_id":"closed","direction":"SENT","content":"x"}`, http.StatusBadRequest, "Cannot add message to closed conversation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := dispatch(t, d, `{"type":"NEW_MESSAGE","data":`+tt.data+`}`)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.errMsg, resp.Body["error"])
		})
	}
}

func TestDispatch_CloseConversation(t *testing.T) {
	d, st := newTestDispatcher(t)
	dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"c1"}}`)

	resp := dispatch(t, d, `{"type":"CLOSE_CONVERSATION","data":{"id":"c1"}}`)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, map[string]string{"message": "Conversation closed", "conversation_id": "c1"}, resp.Body)

	conv, err := st.GetConversation(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, store.StateClosed, conv.State)

	resp = dispatch(t, d, `{"type":"CLOSE_CONVERSATION","data":{"id":"c1"}}`)
	assert.Equal(t, http.StatusOK, resp.Status, "re-close succeeds")
	assert.Equal(t, "Conversation already closed", resp.Body["message"])
}

func TestDispatch_CloseConversation_Errors(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := dispatch(t, d, `{"type":"CLOSE_CONVERSATION","data":{"id":"missing"}}`)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "Conversation not found", resp.Body["error"])

	resp = dispatch(t, d, `{"type":"CLOSE_CONVERSATION","data":{"conversation_id":"c1"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Missing conversation ID", resp.Body["error"])
}

func TestDispatch_EnvelopeErrors(t *testing.T) {
	d, _ := newTestDispatcher(t)

	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{"invalid json", `{{{`, "Invalid JSON"},
		{"missing type", `{"data":{"id":"c1"}}`, "Invalid webhook format"},
		{"missing data", `{"type":"NEW_CONVERSATION"}`, "Invalid webhook format"},
		{"unknown type", `{"type":"DELETE_CONVERSATION","data":{"id":"c1"}}`, "Unknown event type"},
		{"lowercase type", `{"type":"new_conversation","data":{"id":"c1"}}`, "Unknown event type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := dispatch(t, d, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Status)
			assert.Equal(t, tt.errMsg, resp.Body["error"])
		})
	}
}

// brokenStore fails every read so the dispatcher hits its internal error path
type brokenStore struct {
	*store.MockStore
}

func (brokenStore) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	return nil, errors.New("database is locked")
}

func TestDispatch_InternalErrorIs500(t *testing.T) {
	d := NewDispatcher(conversation.New(brokenStore{store.NewMockStore()}, nil), nil, nil)

	resp := dispatch(t, d, `{"type":"CLOSE_CONVERSATION","data":{"id":"c1"}}`)

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "internal server error", resp.Body["error"], "storage details must not leak")
}

// recordingCache counts cache hits
type recordingCache struct {
	*dedupe.Cache
	hits int
}

func (r *recordingCache) Contains(key string) bool {
	ok := r.Cache.Contains(key)
	if ok {
		r.hits++
	}
	return ok
}

func TestDispatch_SeenCacheShortCircuitsReplays(t *testing.T) {
	cache := &recordingCache{Cache: dedupe.New(time.Minute, 100)}
	defer cache.Close()
	st := store.NewMockStore()
	d := NewDispatcher(conversation.New(st, nil), cache, nil)

	dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"c1"}}`)
	dispatch(t, d, `{"type":"NEW_MESSAGE","data":{"id":"m1","conversation_id":"c1","direction":"SENT","content":"hi"}}`)
	assert.True(t, cache.Cache.Contains(dedupe.ConversationKey("c1")))
	assert.True(t, cache.Cache.Contains(dedupe.MessageKey("m1")))

	resp := dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"c1"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Conversation already exists", resp.Body["error"])

	resp = dispatch(t, d, `{"type":"NEW_MESSAGE","data":{"id":"m1","conversation_id":"c1","direction":"SENT","content":"hi"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Message already exists", resp.Body["error"])

	assert.Equal(t, 2, cache.hits)

	// A replay with a missing field still reports the field
	resp = dispatch(t, d, `{"type":"NEW_MESSAGE","data":{"id":"m1","conversation_id":"c1","direction":"SENT"}}`)
	assert.Equal(t, "Missing required message fields", resp.Body["error"])
}

func TestDispatch_FailedCreateIsNotCached(t *testing.T) {
	cache := dedupe.New(time.Minute, 100)
	defer cache.Close()
	d := NewDispatcher(conversation.New(store.NewMockStore(), nil), cache, nil)

	resp := dispatch(t, d, `{"type":"NEW_MESSAGE","data":{"id":"m1","conversation_id":"nope","direction":"SENT","content":"hi"}}`)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.False(t, cache.Contains(dedupe.MessageKey("m1")))
}

func TestDispatch_StaleSeenKeyAfterPurge(t *testing.T) {
	cache := dedupe.New(time.Minute, 100)
	defer cache.Close()
	st := store.NewMockStore()
	d := NewDispatcher(conversation.New(st, nil), cache, nil)
	ctx := context.Background()

	require.Equal(t, http.StatusCreated, dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"c1"}}`).Status)
	require.Equal(t, http.StatusCreated,
		dispatch(t, d, `{"type":"NEW_MESSAGE","data":{"id":"m1","conversation_id":"c1","direction":"SENT","content":"hi"}}`).Status)

	// Purge removes the rows but the cache still remembers both ids
	require.NoError(t, st.DeleteConversation(ctx, "c1"))
	require.True(t, cache.Contains(dedupe.ConversationKey("c1")))

	resp := dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"c1"}}`)
	assert.Equal(t, http.StatusCreated, resp.Status, "purged conversation id can be reused")

	resp = dispatch(t, d, `{"type":"NEW_MESSAGE","data":{"id":"m1","conversation_id":"c1","direction":"SENT","content":"hi"}}`)
	assert.Equal(t, http.StatusCreated, resp.Status, "purged message id can be reused")

	_, err := st.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, cache.Contains(dedupe.MessageKey("m1")), "recreated id is cached again")

	// With the rows back, the cache hit is confirmed and the replay is rejected
	resp = dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"c1"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Conversation already exists", resp.Body["error"])
}

func TestDispatch_SeenKeyConfirmFailureIs500(t *testing.T) {
	cache := dedupe.New(time.Minute, 100)
	defer cache.Close()
	cache.Add(dedupe.ConversationKey("c1"))
	d := NewDispatcher(conversation.New(brokenStore{store.NewMockStore()}, nil), cache, nil)

	resp := dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"c1"}}`)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.True(t, cache.Contains(dedupe.ConversationKey("c1")), "key is kept when the store cannot answer")
}

func TestDispatch_DuplicateMessageWinsOverConversationErrors(t *testing.T) {
	for _, withCache := range []bool{false, true} {
		name := "no cache"
		if withCache {
			name = "cache"
		}
		t.Run(name, func(t *testing.T) {
			var seen SeenCache
			if withCache {
				c := dedupe.New(time.Minute, 100)
				defer c.Close()
				seen = c
			}
			d := NewDispatcher(conversation.New(store.NewMockStore(), nil), seen, nil)

			dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"open"}}`)
			dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"closed"}}`)
			dispatch(t, d, `{"type":"NEW_MESSAGE","data":{"id":"m1","conversation_id":"closed","direction":"SENT","content":"x"}}`)
			dispatch(t, d, `{"type":"CLOSE_CONVERSATION","data":{"id":"closed"}}`)

			for _, convID := range []string{"nope", "closed", "open"} {
				resp := dispatch(t, d, `{"type":"NEW_MESSAGE","data":{"id":"m1","conversation_id":"`+convID+`","direction":"RECEIVED","content":"again"}}`)
				assert.Equal(t, http.StatusBadRequest, resp.Status, convID)
				assert.Equal(t, "Message already exists", resp.Body["error"], convID)
			}
		})
	}
}

func TestDispatch_NonStringTimestampIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d := NewDispatcher(conversation.New(store.NewMockStore(), nil), nil, logger)

	resp := dispatch(t, d, `{"type":"NEW_CONVERSATION","timestamp":1715285280,"data":{"id":"c1"}}`)
	require.Equal(t, http.StatusCreated, resp.Status, "a bad timestamp never rejects the event")

	var found map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		if rec["msg"] == "ignoring non-string timestamp" {
			found = rec
		}
	}
	require.NotNil(t, found, "expected a debug record for the timestamp")
	assert.Equal(t, "DEBUG", found["level"])
	assert.Equal(t, "1715285280", found["timestamp"])
	assert.Equal(t, "webhook", found["component"])
}

func TestScenario_OpenMessageCloseReject(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	svc := conversation.New(st, nil)
	d := NewDispatcher(svc, nil, nil)
	ctx := context.Background()

	resp := dispatch(t, d, `{"type":"NEW_CONVERSATION","data":{"id":"c1"}}`)
	require.Equal(t, http.StatusCreated, resp.Status)
	conv, err := st.GetConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, store.StateOpen, conv.State)

	resp = dispatch(t, d, `{"type":"NEW_MESSAGE","data":{"id":"m1","conversation_id":"c1","direction":"SENT","content":"hi"}}`)
	require.Equal(t, http.StatusCreated, resp.Status)

	resp = dispatch(t, d, `{"type":"CLOSE_CONVERSATION","data":{"id":"c1"}}`)
	require.Equal(t, http.StatusOK, resp.Status)
	conv, err = st.GetConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, store.StateClosed, conv.State)

	resp = dispatch(t, d, `{"type":"NEW_MESSAGE","data":{"id":"m2","conversation_id":"c1","direction":"RECEIVED","content":"too late"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Cannot add message to closed conversation", resp.Body["error"])

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Stats{
		TotalConversations:        1,
		OpenConversations:         0,
		ClosedConversations:       1,
		ConversationsWithMessages: 1,
	}, *stats)
}
