package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// APIKeyHeader carries the API key on signed requests.
const APIKeyHeader = "X-MBX-APIKEY"

// HMACAuth holds the credentials for signed Binance requests.
type HMACAuth struct {
	Key    string
	Secret string
	// RecvWindow is sent with every signed request when positive, in ms.
	RecvWindow int64
}

// Sign adds timestamp (and recvWindow) to params and returns the encoded
// query with the hex HMAC-SHA256 signature appended.
func (h *HMACAuth) Sign(params url.Values) string {
	return h.SignAt(params, time.Now().UnixMilli())
}

// SignAt is like Sign with a caller-supplied millisecond timestamp.
func (h *HMACAuth) SignAt(params url.Values, unixMs int64) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(unixMs, 10))
	if h.RecvWindow > 0 {
		params.Set("recvWindow", strconv.FormatInt(h.RecvWindow, 10))
	}
	query := params.Encode()
	return query + "&signature=" + hmacSHA256Hex([]byte(h.Secret), query)
}

// Headers returns the headers a signed request must carry.
func (h *HMACAuth) Headers() map[string]string {
	return map[string]string{APIKeyHeader: h.Key}
}

func hmacSHA256Hex(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (h *HMACAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("HMACAuth{key=%s, secret=%s}", redact(h.Key), redact(h.Secret))
}
