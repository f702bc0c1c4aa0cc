// Test utilities for command tests: a chainable route handler for mock API
// servers, environment setup with automatic cleanup, and stdout/stderr
// capture. Commands run through Execute() against an httptest server, with
// credentials injected via BOTBRIDGE_* env overrides so the keyring is never
// touched.
package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

// captureStdout executes a function and captures its stdout output.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// captureStderr executes a function and captures its stderr output.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fn()

	_ = w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// setupTestEnvWithHandler creates a mock server and points the CLI at it:
// BOTBRIDGE_BASE_URL/API_TOKEN/COMPANY_ID are set so ResolveClientConfig
// never opens the keyring, caching is disabled, and text output is forced.
// Everything is restored on test cleanup.
func setupTestEnvWithHandler(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("BOTBRIDGE_BASE_URL", server.URL)
	t.Setenv("BOTBRIDGE_API_TOKEN", "test-token")
	t.Setenv("BOTBRIDGE_COMPANY_ID", "company-1")
	t.Setenv("BOTBRIDGE_OUTPUT", "text")
	t.Setenv("BOTBRIDGE_NO_CACHE", "1")

	return server
}

// jsonResponse creates an http.HandlerFunc returning a fixed JSON body.
func jsonResponse(statusCode int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(body))
	}
}

// routeHandler routes requests by exact "METHOD PATH". Unmatched requests
// get a 404.
type routeHandler struct {
	routes map[string]http.HandlerFunc
}

func newRouteHandler() *routeHandler {
	return &routeHandler{routes: make(map[string]http.HandlerFunc)}
}

// On registers a handler for the given HTTP method and path, returning the
// routeHandler for chaining.
func (h *routeHandler) On(method, path string, handler http.HandlerFunc) *routeHandler {
	h.routes[method+" "+path] = handler
	return h
}

func (h *routeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if handler, ok := h.routes[r.Method+" "+r.URL.Path]; ok {
		handler(w, r)
		return
	}
	http.NotFound(w, r)
}
