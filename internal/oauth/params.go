package oauth

import (
	"net/http"
	"net/url"
	"strings"
)

// CollectParams extracts OAuth parameters (names prefixed "oauth_") from
// the request query string and, if present, from an `Authorization:
// OAuth ...` header. Header values win over query values for the same
// name. Returns an empty map when the request carries no OAuth
// parameters at all, which Verify treats as invalid.
func CollectParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	for name, values := range r.URL.Query() {
		if strings.HasPrefix(name, "oauth_") && len(values) > 0 {
			params[name] = values[0]
		}
	}
	for name, value := range ParseAuthorizationHeader(r.Header.Get("Authorization")) {
		if strings.HasPrefix(name, "oauth_") {
			params[name] = value
		}
	}
	return params
}

// ParseAuthorizationHeader parses an `OAuth k1="v1", k2="v2"` header
// value into a map with percent-decoded values. Returns nil when the
// header is absent or uses a different scheme. Malformed pairs are
// skipped rather than failing the whole header.
func ParseAuthorizationHeader(header string) map[string]string {
	const prefix = "OAuth "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return nil
	}

	params := make(map[string]string)
	for _, pair := range strings.Split(header[len(prefix):], ",") {
		pair = strings.TrimSpace(pair)
		eq := strings.IndexByte(pair, '=')
		if eq <= 0 {
			continue
		}
		name := pair[:eq]
		value := strings.Trim(pair[eq+1:], `"`)
		decoded, err := url.PathUnescape(value)
		if err != nil {
			continue
		}
		params[name] = decoded
	}
	return params
}

// RequestURL reconstructs the absolute URL of an inbound request without
// its query string, which is the form the signature base string needs.
// Behind a load balancer the original scheme arrives in
// X-Forwarded-Proto.
func RequestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.Path
}
