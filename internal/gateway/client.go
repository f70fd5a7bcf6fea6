// Package gateway signs and executes calls against the affiliate open platform
// and unwraps its double-encoded response envelope.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lukman83/affiliate-gateway/internal/httputil"
	"github.com/lukman83/affiliate-gateway/internal/metrics"
	"github.com/lukman83/affiliate-gateway/internal/signer"
)

const (
	// DefaultEndpoint is the production sync gateway.
	DefaultEndpoint = "https://api-sg.aliexpress.com/sync"
	// APIVersion is sent as the "v" system parameter.
	APIVersion = "2.0"

	maxLoggedEnvelope = 2048
)

// Config is the read-only configuration shared by all calls.
type Config struct {
	Endpoint   string
	AppKey     string
	AppSecret  string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client builds, signs and executes gateway calls. It is safe for concurrent use;
// calls share nothing but the configuration and the HTTP connection pool.
type Client struct {
	endpoint string
	appKey   string
	secret   string
	http     *http.Client
	logger   *zap.Logger
	now      func() time.Time
}

// NewClient creates a gateway client. Missing fields fall back to the default
// endpoint, a 30s HTTP client and a no-op logger.
func NewClient(cfg Config) *Client {
	c := &Client{
		endpoint: cfg.Endpoint,
		appKey:   cfg.AppKey,
		secret:   cfg.AppSecret,
		http:     cfg.HTTPClient,
		logger:   cfg.Logger,
		now:      time.Now,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.http == nil {
		c.http = httputil.NewHTTPClient(nil)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("gateway")
	return c
}

// SignedParams merges params with the system parameters for method and attaches
// the signature. The caller's map is not modified. Every call stamps a fresh timestamp.
func (c *Client) SignedParams(method string, params map[string]string) map[string]string {
	all := make(map[string]string, len(params)+7)
	for k, v := range params {
		all[k] = v
	}
	all["app_key"] = c.appKey
	all["sign_method"] = signer.Method
	all["timestamp"] = strconv.FormatInt(c.now().UnixMilli(), 10)
	all["format"] = "json"
	all["v"] = APIVersion
	all["method"] = method
	all[signer.SignKey] = signer.Sign(all, c.secret)
	return all
}

// Call executes method with params and returns the inner result object.
// Failures are always *Error; nothing is retried here.
func (c *Client) Call(ctx context.Context, method string, params map[string]string) (*Result, error) {
	return c.call(ctx, method, params, nil)
}

// CallInto executes method and decodes its result into v. A non-success inner
// response code is a remote error and a result that does not fit v is an
// envelope error; both are logged and counted before the call is reported.
func (c *Client) CallInto(ctx context.Context, method string, params map[string]string, v any) error {
	_, err := c.call(ctx, method, params, v)
	return err
}

func (c *Client) call(ctx context.Context, method string, params map[string]string, v any) (*Result, error) {
	reqID := uuid.NewString()
	log := c.logger.With(zap.String("method", method), zap.String("request_id", reqID))
	start := time.Now()

	res, err := c.do(ctx, method, params, log)
	if err == nil && v != nil {
		err = decodeInto(res, v, log)
	}
	elapsed := time.Since(start)

	switch {
	case err == nil:
		metrics.ObserveGatewayCall(method, metrics.OutcomeOK, elapsed)
		log.Debug("gateway call ok", zap.Duration("elapsed", elapsed), zap.Int("resp_code", res.Code))
	case IsTransport(err):
		metrics.ObserveGatewayCall(method, metrics.OutcomeTransport, elapsed)
		log.Error("gateway transport error", zap.Duration("elapsed", elapsed), zap.Error(err))
	case IsRemote(err):
		metrics.ObserveGatewayCall(method, metrics.OutcomeRemote, elapsed)
		log.Warn("gateway returned error", zap.Error(err))
	default:
		metrics.ObserveGatewayCall(method, metrics.OutcomeEnvelope, elapsed)
	}
	return res, err
}

func decodeInto(res *Result, v any, log *zap.Logger) error {
	if !res.OK() {
		return &Error{Kind: KindRemote, Method: res.Method, Code: strconv.Itoa(res.Code), Message: res.Message}
	}
	if err := res.Decode(v); err != nil {
		log.Warn("malformed gateway result",
			zap.String("envelope", truncate(res.Payload, maxLoggedEnvelope)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, params map[string]string, log *zap.Logger) (*Result, error) {
	form := url.Values{}
	for k, v := range c.SignedParams(method, params) {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Message: "build request", Err: err}
	}
	for k, v := range httputil.FormHeaders() {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Message: "read body", Err: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &Error{Kind: KindTransport, Method: method, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	res, err := decodeEnvelope(method, body)
	if err != nil && IsEnvelope(err) {
		log.Warn("malformed gateway envelope",
			zap.Int("status", resp.StatusCode),
			zap.String("envelope", truncate(body, maxLoggedEnvelope)),
			zap.Error(err),
		)
	}
	return res, err
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}
