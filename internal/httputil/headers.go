package httputil

import "net/http"

// UserAgent identifies this client to the gateway.
const UserAgent = "affiliate-gateway/1.0 (+https://github.com/lukman83/affiliate-gateway)"

// FormHeaders returns headers for a form-encoded gateway POST.
func FormHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	h.Set("Accept", "application/json")
	h.Set("Accept-Encoding", "gzip, br")
	h.Set("User-Agent", UserAgent)
	return h
}
