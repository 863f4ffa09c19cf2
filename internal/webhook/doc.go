// Package webhook turns inbound provider events into conversation state changes.
//
// An event is a JSON object:
//
//	{"type": "NEW_MESSAGE", "timestamp": "...", "data": {...}}
//
// ParseEvent validates the envelope, the Dispatcher routes on Type through a
// fixed table of handlers, and every outcome (success or failure) becomes a
// Response carrying the HTTP status and JSON body to send back.
//
// Supported types: NEW_CONVERSATION, NEW_MESSAGE, CLOSE_CONVERSATION.
package webhook
