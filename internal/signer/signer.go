// Package signer computes request signatures for the affiliate open platform.
package signer

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// Method is the sign_method value advertised alongside signatures produced by Sign.
const Method = "md5"

// SignKey is the parameter name the signature is attached under. It never
// takes part in the signed string.
const SignKey = "sign"

// Sign returns HMAC-MD5(secret, secret + k1v1k2v2... + secret) as uppercase hex,
// with keys in byte order.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == SignKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(secret)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	h := hmac.New(md5.New, []byte(secret))
	h.Write([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}
