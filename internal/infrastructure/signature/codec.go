// Package signature implements the shared-secret message authentication used
// between the marketplace and this service in both directions.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strconv"
)

// ParamSignature is the request parameter carrying an inbound signature
const ParamSignature = "signature"

// Sign computes the outbound action MAC:
// base64(HMAC-SHA256(secret, timestamp ++ sessionToken ++ resourceType ++ actionID)).
func Sign(secret string, timestamp int64, sessionToken, resourceType, actionID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(sessionToken))
	mac.Write([]byte(resourceType))
	mac.Write([]byte(actionID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the action MAC and compares it in constant time.
// An empty secret never verifies.
func Verify(secret string, timestamp int64, sessionToken, resourceType, actionID, candidate string) bool {
	if secret == "" || candidate == "" {
		return false
	}
	expected := Sign(secret, timestamp, sessionToken, resourceType, actionID)
	return hmac.Equal([]byte(expected), []byte(candidate))
}

// CanonicalRequest is the string an inbound request signature covers: the
// absolute URL followed by the sorted, encoded parameters without the signature.
func CanonicalRequest(absoluteURL string, params url.Values) string {
	filtered := make(url.Values, len(params))
	for k, v := range params {
		if k == ParamSignature {
			continue
		}
		filtered[k] = v
	}
	if len(filtered) == 0 {
		return absoluteURL
	}
	return absoluteURL + "?" + filtered.Encode()
}

// SignRequest returns the lowercase hex HMAC-SHA256 of the canonical request
func SignRequest(secret, absoluteURL string, params url.Values) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(CanonicalRequest(absoluteURL, params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyRequest checks an inbound signature against the reconstructed request
func VerifyRequest(secret, absoluteURL string, params url.Values, candidate string) bool {
	if secret == "" || candidate == "" {
		return false
	}
	provided, err := hex.DecodeString(candidate)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(CanonicalRequest(absoluteURL, params)))
	return hmac.Equal(mac.Sum(nil), provided)
}

// Verifier exposes VerifyRequest through the RequestVerifier port
type Verifier struct{}

// VerifyRequest delegates to the package level VerifyRequest
func (Verifier) VerifyRequest(secret, absoluteURL string, params url.Values, candidate string) bool {
	return VerifyRequest(secret, absoluteURL, params, candidate)
}
