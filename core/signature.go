package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// VerifySignature checks a hex-encoded HMAC-SHA256 signature over the exact
// bytes received. Re-serializing the body before hashing is a correctness
// bug: whitespace or key-order changes invalidate the provider's signature.
//
// It returns false, never an error, on a missing secret, missing signature,
// or malformed hex, so the result can gate all further processing directly.
func VerifySignature(rawBody []byte, providedSignature string, secret string) bool {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return false
	}
	signature := strings.TrimSpace(providedSignature)
	if signature == "" {
		return false
	}
	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	expected := mac.Sum(nil)

	return subtle.ConstantTimeCompare(decoded, expected) == 1
}

// SignBody produces the hex signature the provider would send for rawBody.
// Used by tests and the replay tooling.
func SignBody(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
