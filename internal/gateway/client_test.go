package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lukman83/affiliate-gateway/internal/gateway/gatewaytest"
	"github.com/lukman83/affiliate-gateway/internal/signer"
)

const testMethod = "aliexpress.affiliate.product.query"

func newTestClient(endpoint string) *Client {
	return NewClient(Config{Endpoint: endpoint, AppKey: "app-key", AppSecret: "app-secret"})
}

func rawServer(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSignedParams(t *testing.T) {
	c := newTestClient("")
	c.now = func() time.Time { return time.UnixMilli(1700000000123) }

	in := map[string]string{"keywords": "lamp"}
	out := c.SignedParams(testMethod, in)

	assert.Equal(t, map[string]string{"keywords": "lamp"}, in, "caller map must not change")
	assert.Equal(t, "app-key", out["app_key"])
	assert.Equal(t, "md5", out["sign_method"])
	assert.Equal(t, "1700000000123", out["timestamp"])
	assert.Equal(t, "json", out["format"])
	assert.Equal(t, "2.0", out["v"])
	assert.Equal(t, testMethod, out["method"])
	assert.Equal(t, signer.Sign(out, "app-secret"), out["sign"])
}

func TestSignedParams_FreshTimestamp(t *testing.T) {
	c := newTestClient("")
	tick := int64(1700000000000)
	c.now = func() time.Time {
		tick++
		return time.UnixMilli(tick)
	}

	first := c.SignedParams(testMethod, nil)
	second := c.SignedParams(testMethod, nil)
	assert.NotEqual(t, first["timestamp"], second["timestamp"])
	assert.NotEqual(t, first["sign"], second["sign"])
}

func TestCall_Success(t *testing.T) {
	gw := gatewaytest.NewServer(t, "app-secret")
	gw.Handle(testMethod, func(params url.Values) (any, int) {
		return map[string]any{"total_results": 12, "products": []any{map[string]any{"product_id": 1}}}, 200
	})

	c := newTestClient(gw.URL)
	res, err := c.Call(context.Background(), testMethod, map[string]string{"keywords": "lamp"})
	require.NoError(t, err)

	assert.Equal(t, 200, res.Code)
	assert.True(t, res.OK())
	assert.JSONEq(t, `{"total_results":12,"products":[{"product_id":1}]}`, string(res.Payload))

	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "lamp", calls[0].Get("keywords"))
	_, err = strconv.ParseInt(calls[0].Get("timestamp"), 10, 64)
	assert.NoError(t, err)
}

func TestCall_PayloadUnchanged(t *testing.T) {
	inner := `{"a":[1,2,3],"b":{"c":"d"}}`
	body := gatewaytest.Envelope(testMethod, json.RawMessage(inner), 200)
	srv := rawServer(t, http.StatusOK, string(body))

	res, err := newTestClient(srv.URL).Call(context.Background(), testMethod, nil)
	require.NoError(t, err)
	assert.Equal(t, inner, string(res.Payload))
}

func TestCall_EnvelopeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing method key", `{"other_response":{}}`},
		{"missing resp_result", `{"aliexpress_affiliate_product_query_response":{"request_id":"x"}}`},
		{"missing resp_msg", `{"aliexpress_affiliate_product_query_response":{"resp_result":{}}}`},
		{"resp_msg not a string", `{"aliexpress_affiliate_product_query_response":{"resp_result":{"resp_msg":{"result":{}}}}}`},
		{"resp_msg not json", `{"aliexpress_affiliate_product_query_response":{"resp_result":{"resp_msg":"not json"}}}`},
		{"missing result", `{"aliexpress_affiliate_product_query_response":{"resp_result":{"resp_msg":"{\"resp_code\":200}"}}}`},
		{"malformed error_response", `{"error_response":"oops"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := rawServer(t, http.StatusOK, tt.body)
			res, err := newTestClient(srv.URL).Call(context.Background(), testMethod, nil)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, IsEnvelope(err), "got %v", err)
			assert.True(t, IsUnavailable(err))
		})
	}
}

func TestCall_EnvelopeErrorIsLogged(t *testing.T) {
	srv := rawServer(t, http.StatusOK, `{"other_response":{}}`)
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewClient(Config{Endpoint: srv.URL, AppSecret: "s", Logger: zap.New(core)})

	_, err := c.Call(context.Background(), testMethod, nil)
	require.True(t, IsEnvelope(err), "got %v", err)

	warned := logs.FilterLevelExact(zapcore.WarnLevel).FilterFieldKey("envelope").All()
	require.Len(t, warned, 1)
	assert.Equal(t, `{"other_response":{}}`, warned[0].ContextMap()["envelope"])
	assert.Zero(t, logs.FilterMessage("gateway call ok").Len())
}

func TestCallInto(t *testing.T) {
	type result struct {
		Products []struct {
			ID int `json:"product_id"`
		} `json:"products"`
	}

	t.Run("decodes result", func(t *testing.T) {
		gw := gatewaytest.NewServer(t, "app-secret")
		gw.Handle(testMethod, func(url.Values) (any, int) {
			return map[string]any{"products": []any{map[string]any{"product_id": 7}}}, 200
		})
		var out result
		require.NoError(t, newTestClient(gw.URL).CallInto(context.Background(), testMethod, nil, &out))
		require.Len(t, out.Products, 1)
		assert.Equal(t, 7, out.Products[0].ID)
	})

	t.Run("non-success code is remote", func(t *testing.T) {
		gw := gatewaytest.NewServer(t, "app-secret")
		gw.Handle(testMethod, func(url.Values) (any, int) {
			return map[string]any{}, 405
		})
		err := newTestClient(gw.URL).CallInto(context.Background(), testMethod, nil, &result{})
		assert.True(t, IsRemote(err), "got %v", err)

		var gwErr *Error
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, "405", gwErr.Code)
	})

	t.Run("result that does not fit is logged as envelope", func(t *testing.T) {
		gw := gatewaytest.NewServer(t, "app-secret")
		gw.Handle(testMethod, func(url.Values) (any, int) {
			return map[string]any{"products": "nope"}, 200
		})
		core, logs := observer.New(zapcore.DebugLevel)
		c := NewClient(Config{Endpoint: gw.URL, AppSecret: "app-secret", Logger: zap.New(core)})

		err := c.CallInto(context.Background(), testMethod, nil, &result{})
		require.True(t, IsEnvelope(err), "got %v", err)

		warned := logs.FilterLevelExact(zapcore.WarnLevel).FilterFieldKey("envelope").All()
		require.Len(t, warned, 1)
		assert.JSONEq(t, `{"products":"nope"}`, warned[0].ContextMap()["envelope"].(string))
		assert.Zero(t, logs.FilterMessage("gateway call ok").Len())
	})
}

func TestCall_TransportErrors(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		srv := rawServer(t, http.StatusOK, "<html>oops</html>")
		_, err := newTestClient(srv.URL).Call(context.Background(), testMethod, nil)
		assert.True(t, IsTransport(err), "got %v", err)
	})

	t.Run("server error", func(t *testing.T) {
		srv := rawServer(t, http.StatusBadGateway, `{}`)
		_, err := newTestClient(srv.URL).Call(context.Background(), testMethod, nil)
		assert.True(t, IsTransport(err), "got %v", err)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := rawServer(t, http.StatusOK, `{}`)
		endpoint := srv.URL
		srv.Close()
		_, err := newTestClient(endpoint).Call(context.Background(), testMethod, nil)
		assert.True(t, IsTransport(err), "got %v", err)
	})

	t.Run("timeout", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-block:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(block)

		c := NewClient(Config{
			Endpoint:   srv.URL,
			AppSecret:  "s",
			HTTPClient: &http.Client{Timeout: 50 * time.Millisecond},
		})
		_, err := c.Call(context.Background(), testMethod, nil)
		assert.True(t, IsTransport(err), "got %v", err)
	})
}

func TestCall_RemoteError(t *testing.T) {
	gw := gatewaytest.NewServer(t, "a-different-secret")
	_, err := newTestClient(gw.URL).Call(context.Background(), testMethod, nil)
	require.Error(t, err)
	assert.True(t, IsRemote(err))

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "25", gwErr.Code)
	assert.Contains(t, gwErr.Error(), "Invalid signature")
}

func TestCall_Concurrent(t *testing.T) {
	gw := gatewaytest.NewServer(t, "app-secret")
	gw.Handle(testMethod, func(params url.Values) (any, int) {
		return map[string]string{"echo": params.Get("keywords")}, 200
	})
	c := newTestClient(gw.URL)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kw := "kw" + strconv.Itoa(i)
			res, err := c.Call(context.Background(), testMethod, map[string]string{"keywords": kw})
			if assert.NoError(t, err) {
				var out map[string]string
				assert.NoError(t, res.Decode(&out))
				assert.Equal(t, kw, out["echo"])
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, gw.Calls(), 20)
}

func TestResponseKey(t *testing.T) {
	assert.Equal(t, "aliexpress_affiliate_link_generate_response", ResponseKey("aliexpress.affiliate.link.generate"))
}

func TestResult_Decode(t *testing.T) {
	r := &Result{Method: testMethod, Payload: json.RawMessage(`[1,2]`)}
	var out struct{}
	err := r.Decode(&out)
	assert.True(t, IsEnvelope(err))
}
