// Package oauth implements OAuth 1.0a request signing and verification
// with HMAC-SHA1, as used by the Eloqua AppCloud for both inbound service
// notifications and outbound Bulk API calls.
package oauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Credential holds the consumer key/secret pair shared with the platform.
// It is loaded once at startup and treated as read-only afterwards.
type Credential struct {
	ConsumerKey    string
	ConsumerSecret string
}

// Engine signs outbound requests and verifies inbound ones against a
// single credential. Safe for concurrent use; it holds no mutable state.
type Engine struct {
	cred Credential
}

// NewEngine creates a signature engine for the given credential.
func NewEngine(cred Credential) *Engine {
	return &Engine{cred: cred}
}

// Verify checks the oauth_signature in params against the signature this
// engine computes for method and rawURL. It fails closed: a missing
// credential, an empty parameter set, or a missing signature all return
// false rather than an error. The comparison is constant-time.
func (e *Engine) Verify(method, rawURL string, params map[string]string) bool {
	if e == nil || e.cred.ConsumerKey == "" || e.cred.ConsumerSecret == "" {
		return false
	}
	if len(params) == 0 {
		return false
	}
	provided, ok := params["oauth_signature"]
	if !ok || provided == "" {
		return false
	}
	expected := e.signature(method, rawURL, params)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// Sign generates a fresh OAuth 1.0a parameter set (consumer key, nonce,
// timestamp, signature method, version, merged with extra), signs it for
// method and rawURL, and returns an Authorization header value of the
// form `OAuth k1="v1", k2="v2", ...`. The nonce is unconditionally fresh
// per call, so two signatures for identical inputs never match.
func (e *Engine) Sign(method, rawURL string, extra map[string]string) (string, error) {
	if e == nil || e.cred.ConsumerKey == "" || e.cred.ConsumerSecret == "" {
		return "", fmt.Errorf("oauth: no credential configured")
	}

	nonce, err := newNonce()
	if err != nil {
		return "", fmt.Errorf("oauth: nonce generation failed: %w", err)
	}

	params := map[string]string{
		"oauth_consumer_key":     e.cred.ConsumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(time.Now().Unix(), 10),
		"oauth_version":          "1.0",
	}
	for k, v := range extra {
		params[k] = v
	}
	params["oauth_signature"] = e.signature(method, rawURL, params)

	// Emission order is not part of the protocol; sorted for determinism.
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("OAuth ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(PercentEncode(params[k]))
		b.WriteString(`"`)
	}
	return b.String(), nil
}

// signature computes base64(HMAC-SHA1(key, baseString)) where the key is
// enc(consumerSecret)&. There is no token secret in the Eloqua AppCloud
// two-legged flow, so the key always ends with a bare ampersand.
func (e *Engine) signature(method, rawURL string, params map[string]string) string {
	base := baseString(method, rawURL, params)
	key := PercentEncode(e.cred.ConsumerSecret) + "&"
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// baseString builds METHOD&enc(url-without-query)&enc(param-string).
// The parameter string lists "key=value" for every parameter except
// oauth_signature, sorted lexicographically as raw strings and joined
// with "&". Sorting happens over the undecoded pair, not decoded values;
// the platform's verifier does the same, so this must match exactly.
func baseString(method, rawURL string, params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if k == "oauth_signature" {
			continue
		}
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.ToUpper(method) + "&" +
		PercentEncode(stripQuery(rawURL)) + "&" +
		PercentEncode(strings.Join(pairs, "&"))
}

func stripQuery(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// newNonce returns 16 cryptographically random bytes, hex-encoded.
func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// PercentEncode applies RFC 3986 percent-encoding with the RFC 5849
// unreserved set. url.QueryEscape is not equivalent (it emits '+' for
// spaces), so this is hand-rolled.
func PercentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
