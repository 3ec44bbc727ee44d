package access

import (
	"context"
	"net/http"
	"strings"
)

// Method records how a caller was authenticated.
type Method string

const (
	// MethodNone marks a caller without an accepted credential.
	MethodNone Method = "none"
	// MethodOpen marks a caller admitted because the gate is disabled.
	MethodOpen Method = "open"
	// MethodToken marks a caller that presented a valid bearer token.
	MethodToken Method = "token"
)

// Context is the authorization context resolved once per request and
// passed explicitly to the services.
type Context struct {
	Authenticated bool   `json:"authenticated"`
	Subject       string `json:"subject,omitempty"`
	Method        Method `json:"method"`
}

// Anonymous is the context of a caller without an accepted credential.
var Anonymous = Context{Method: MethodNone}

// Trusted is the context for in-process callers such as the CLI.
var Trusted = Context{Authenticated: true, Subject: "local", Method: MethodOpen}

// Gate resolves the authorization context of a request.
type Gate interface {
	// Authenticate checks a raw credential. An empty credential is
	// Anonymous unless the gate is open.
	Authenticate(ctx context.Context, credential string) Context
	// Enabled reports whether the gate ever rejects a caller.
	Enabled() bool
}

// Resolve extracts the credential of r and authenticates it with g.
func Resolve(g Gate, r *http.Request) Context {
	return g.Authenticate(r.Context(), Credential(r))
}

// Credential returns the bearer token of r. Browsers cannot set headers on
// a websocket handshake, so the token query parameter is accepted too.
func Credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

type contextKey struct{}

// WithContext stores the authorization context on ctx.
func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext returns the authorization context stored on ctx, or
// Anonymous when none was stored.
func FromContext(ctx context.Context) Context {
	if ac, ok := ctx.Value(contextKey{}).(Context); ok {
		return ac
	}
	return Anonymous
}
