package httputil

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewHTTPClient_Timeout(t *testing.T) {
	client := NewHTTPClient(nil)
	assert.Equal(t, DefaultTimeout, client.Timeout)
	assert.NotNil(t, client.Transport)
}

func TestReadBody(t *testing.T) {
	payload := `{"ok":true}`

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, _ = w.Write([]byte(payload))
	require.NoError(t, w.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte(payload))
	require.NoError(t, bw.Close())

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"plain", "", []byte(payload)},
		{"gzip", "gzip", gz.Bytes()},
		{"brotli", "br", br.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				Header: http.Header{},
				Body:   io.NopCloser(bytes.NewReader(tt.body)),
			}
			if tt.encoding != "" {
				resp.Header.Set("Content-Encoding", tt.encoding)
			}
			got, err := ReadBody(resp)
			require.NoError(t, err)
			assert.Equal(t, payload, string(got))
		})
	}
}

func TestLimitedTransport_SetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	transport, err := NewLimitedTransport(rate.NewLimiter(rate.Inf, 1), "")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Del("User-Agent")

	resp, err := NewHTTPClient(transport).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.True(t, strings.HasPrefix(gotUA, "affiliate-gateway/"))
}

func TestLimitedTransport_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	transport, err := NewLimitedTransport(rate.NewLimiter(rate.Every(50*time.Millisecond), 1), "")
	require.NoError(t, err)
	client := NewHTTPClient(transport)

	start := time.Now()
	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestNewLimitedTransport_BadProxy(t *testing.T) {
	_, err := NewLimitedTransport(nil, "://bad")
	assert.Error(t, err)
}
