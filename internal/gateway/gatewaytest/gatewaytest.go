// Package gatewaytest provides an in-process fake of the affiliate gateway.
package gatewaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/lukman83/affiliate-gateway/internal/signer"
)

// Handler produces the inner "result" object for a method call. Returning a
// []byte writes it verbatim as the whole response body instead.
type Handler func(params url.Values) (result any, code int)

// Server is a fake gateway that verifies signatures and wraps results in the
// double-encoded envelope.
type Server struct {
	*httptest.Server

	Secret string

	mu       sync.Mutex
	handlers map[string]Handler
	calls    []url.Values
}

// NewServer starts a fake gateway closed at test cleanup.
func NewServer(t testing.TB, secret string) *Server {
	s := &Server{Secret: secret, handlers: make(map[string]Handler)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers h for method.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Calls returns the form parameters of every request received so far.
func (s *Server) Calls() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.Values, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsFor returns the requests received for method.
func (s *Server) CallsFor(method string) []url.Values {
	var out []url.Values
	for _, c := range s.Calls() {
		if c.Get("method") == method {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	params := r.PostForm

	s.mu.Lock()
	s.calls = append(s.calls, params)
	h, ok := s.handlers[params.Get("method")]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	flat := make(map[string]string, len(params))
	for k := range params {
		flat[k] = params.Get(k)
	}
	if signer.Sign(flat, s.Secret) != params.Get(signer.SignKey) {
		_, _ = w.Write(ErrorEnvelope("25", "Invalid signature"))
		return
	}

	if !ok {
		_, _ = w.Write(ErrorEnvelope("22", "Invalid method"))
		return
	}

	result, code := h(params)
	if raw, ok := result.([]byte); ok {
		_, _ = w.Write(raw)
		return
	}
	_, _ = w.Write(Envelope(params.Get("method"), result, code))
}

// Envelope builds a success body: {"<ns>_response":{"resp_result":{"resp_msg":"<json>"}}}.
func Envelope(method string, result any, code int) []byte {
	inner, err := json.Marshal(map[string]any{
		"resp_code": code,
		"resp_msg":  "Call succeeds",
		"result":    result,
	})
	if err != nil {
		panic(err)
	}
	body, err := json.Marshal(map[string]any{
		strings.ReplaceAll(method, ".", "_") + "_response": map[string]any{
			"resp_result": map[string]any{
				"resp_msg": string(inner),
			},
			"request_id": "fake-request",
		},
	})
	if err != nil {
		panic(err)
	}
	return body
}

// ErrorEnvelope builds a top-level error_response body.
func ErrorEnvelope(code, msg string) []byte {
	body, _ := json.Marshal(map[string]any{
		"error_response": map[string]any{
			"code":       code,
			"msg":        msg,
			"request_id": "fake-request",
		},
	})
	return body
}
