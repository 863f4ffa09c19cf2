// Package auth provides scoped bearer-token authentication for convo-gateway.
//
// # Operator Tokens
//
// An Authority mints HS256 JWTs with the configured auth.jwt_secret. Every
// token carries iss "convo-gateway", aud "convo-gateway/query-api", a "sub"
// naming the operator, a unique "jti" and a space separated "scope" claim:
//
//	authority := auth.NewAuthority([]byte(secret))
//	token, err := authority.Issue("ops", []string{auth.ScopeCloseConversation}, time.Hour)
//
// Verify rejects tokens signed for another issuer or audience, tokens
// without an expiry and anything not signed with HS256. Tokens can also be
// minted from the command line with `convo-gateway token`.
//
// # HTTP Middleware
//
//	mux.Handle("POST /conversations/{id}/close/",
//		auth.RequireScope(authority, auth.ScopeCloseConversation)(handler))
//
// Missing, malformed, invalid or expired tokens get 401. A valid token
// without the required scope gets 403 with an insufficient_scope challenge.
// Both carry a JSON body of the form {"error": "..."}. Handlers read the
// caller with SubjectFromContext.
//
// Webhook deliveries are not authenticated by this package.
package auth
