package gateway

import (
	"encoding/json"
	"strings"
)

// Result is the decoded inner payload of a successful call.
type Result struct {
	Method  string
	Code    int
	Message string
	// Payload is the inner "result" object exactly as the platform sent it.
	Payload json.RawMessage
}

// Decode unmarshals the payload into v. Failures are envelope errors.
func (r *Result) Decode(v any) error {
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return &Error{Kind: KindEnvelope, Method: r.Method, Message: "decode result", Err: err}
	}
	return nil
}

// OK reports whether the inner response code signals success.
// A missing code is treated as success.
func (r *Result) OK() bool {
	return r.Code == 0 || r.Code == 200
}

// ResponseKey is the top-level envelope key for method, e.g.
// "aliexpress.affiliate.product.query" -> "aliexpress_affiliate_product_query_response".
func ResponseKey(method string) string {
	return strings.ReplaceAll(method, ".", "_") + "_response"
}

type errorBlock struct {
	Code      json.RawMessage `json:"code"`
	Msg       string          `json:"msg"`
	SubCode   string          `json:"sub_code"`
	SubMsg    string          `json:"sub_msg"`
	RequestID string          `json:"request_id"`
}

type methodResponse struct {
	RespResult *struct {
		RespMsg json.RawMessage `json:"resp_msg"`
	} `json:"resp_result"`
}

type innerResponse struct {
	RespCode json.Number     `json:"resp_code"`
	RespMsg  string          `json:"resp_msg"`
	Result   json.RawMessage `json:"result"`
}

// decodeEnvelope performs both decode passes over a response body.
func decodeEnvelope(method string, body []byte) (*Result, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Message: "response is not JSON", Err: err}
	}

	if raw, ok := outer["error_response"]; ok {
		var eb errorBlock
		if err := json.Unmarshal(raw, &eb); err != nil {
			return nil, envelopeErr(method, "decode error_response", err)
		}
		msg := eb.Msg
		if eb.SubMsg != "" {
			msg += " (" + eb.SubMsg + ")"
		}
		return nil, &Error{Kind: KindRemote, Method: method, Code: strings.Trim(string(eb.Code), `"`), Message: msg}
	}

	raw, ok := outer[ResponseKey(method)]
	if !ok {
		return nil, envelopeErr(method, "missing "+ResponseKey(method), nil)
	}

	var mid methodResponse
	if err := json.Unmarshal(raw, &mid); err != nil {
		return nil, envelopeErr(method, "decode method response", err)
	}
	if mid.RespResult == nil {
		return nil, envelopeErr(method, "missing resp_result", nil)
	}
	if len(mid.RespResult.RespMsg) == 0 {
		return nil, envelopeErr(method, "missing resp_result.resp_msg", nil)
	}

	// resp_msg is a JSON document encoded as a string.
	var encoded string
	if err := json.Unmarshal(mid.RespResult.RespMsg, &encoded); err != nil {
		return nil, envelopeErr(method, "resp_msg is not a string", err)
	}

	var inner innerResponse
	if err := json.Unmarshal([]byte(encoded), &inner); err != nil {
		return nil, envelopeErr(method, "decode resp_msg", err)
	}
	if len(inner.Result) == 0 || string(inner.Result) == "null" {
		return nil, envelopeErr(method, "missing result", nil)
	}

	code := 0
	if inner.RespCode != "" {
		n, err := inner.RespCode.Int64()
		if err != nil {
			return nil, envelopeErr(method, "resp_code", err)
		}
		code = int(n)
	}

	return &Result{
		Method:  method,
		Code:    code,
		Message: inner.RespMsg,
		Payload: inner.Result,
	}, nil
}

func envelopeErr(method, msg string, err error) *Error {
	return &Error{Kind: KindEnvelope, Method: method, Message: msg, Err: err}
}
