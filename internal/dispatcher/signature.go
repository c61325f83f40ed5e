package dispatcher

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignature generates an HMAC SHA256 signature for the payload in
// the format sha256=<hex_encoded_hmac>
func ComputeSignature(payload []byte, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write(payload); err != nil {
		return "", fmt.Errorf("failed to write payload to HMAC: %w", err)
	}

	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil))), nil
}

// VerifySignature checks a provided sha256=<hex> header against the
// expected HMAC of the raw payload, in constant time
func VerifySignature(payload []byte, secret, provided string) bool {
	expected, err := ComputeSignature(payload, secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(provided))
}
