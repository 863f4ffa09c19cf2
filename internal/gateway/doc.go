// Package gateway orchestrates the convo-gateway server components.
//
// # Overview
//
// The gateway owns the store, the conversation service, the webhook
// dispatcher and the HTTP server. It is the only package that knows about
// HTTP routing.
//
// # HTTP API
//
// Every path below also answers without the trailing slash:
//
//   - POST /webhook/ - Ingest a NEW_CONVERSATION, NEW_MESSAGE or CLOSE_CONVERSATION event
//   - GET /conversations/ - List conversations, each with its messages nested
//   - GET /conversations/{id}/ - Get one conversation with its messages nested
//   - GET /conversations/{id}/messages/ - List messages, oldest first
//   - POST /conversations/{id}/close/ - Close a conversation (token with the conversations:close scope when auth.jwt_secret is set)
//   - GET /stats/ - Aggregate counts
//   - GET /health - Liveness check
//   - GET /health/ready - Readiness check (store ping)
//
// Errors are JSON objects of the form {"error": "..."}. Not-found is 404,
// a wrong method is 405, oversized webhook bodies are 413, other client
// errors are 400 and unexpected failures are 500 with a generic message.
//
// Each request gets an X-Request-ID (generated when the caller sends none)
// and one access log line.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	err = gw.Run(ctx) // blocks until ctx is canceled, then shuts down
//
// Shutdown waits up to server.shutdown_timeout for in-flight requests
// before closing the store.
//
// # Key Files
//
//   - gateway.go: Gateway struct, initialization, Run/Shutdown, health
//   - router.go: route table
//   - api.go: Query API handlers
//   - webhook.go: webhook body limits
//   - middleware.go: request id and access logging
package gateway
