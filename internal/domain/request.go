package domain

import (
	"net/url"
	"strconv"
	"time"
)

// Field names the marketplace uses in signed inbound requests
const (
	FieldUserID           = "userId"
	FieldAPIToken         = "apiToken"
	FieldAPIClaim         = "apiClaim"
	FieldExtendedClaim    = "extendedClaim"
	FieldParameterCacheID = "parameterCacheId"
	FieldCustomerName     = "customerName"
	FieldCustomerWebID    = "customerWebId"
	FieldTimestamp        = "timestamp"
	FieldSignature        = "signature"
)

// ClaimFromParams prefers extendedClaim and falls back to the legacy apiClaim
func ClaimFromParams(params url.Values) string {
	if claim := params.Get(FieldExtendedClaim); claim != "" {
		return claim
	}
	return params.Get(FieldAPIClaim)
}

// TimestampFresh reports whether a decimal seconds timestamp lies within maxSkew of now.
// An empty timestamp is accepted; a malformed one is not.
func TimestampFresh(raw string, now time.Time, maxSkew time.Duration) bool {
	if raw == "" || maxSkew <= 0 {
		return true
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	delta := now.Sub(time.Unix(ts, 0))
	if delta < 0 {
		delta = -delta
	}
	return delta <= maxSkew
}
