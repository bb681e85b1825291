package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseSignature splits a signature header into secret_id and MAC.
// Format: <secret_id>:<hex hmac-sha256>, secret_id is 32 hex chars.
func ParseSignature(header string) (secretID string, mac []byte, err error) {
	id, encoded, ok := strings.Cut(strings.TrimSpace(header), ":")
	if !ok || len(id) != 32 || len(encoded) != 2*sha256.Size {
		return "", nil, ErrInvalidSignatureFormat
	}
	for _, c := range id {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, ErrInvalidSignatureFormat
		}
	}

	mac, err = hex.DecodeString(encoded)
	if err != nil {
		return "", nil, ErrInvalidSignatureFormat
	}
	return id, mac, nil
}

// ComputeHMAC computes the HMAC-SHA256 of payload.
func ComputeHMAC(secret, payload []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return h.Sum(nil)
}

// VerifyHMAC compares two MACs in constant time.
func VerifyHMAC(expected, computed []byte) bool {
	return hmac.Equal(expected, computed)
}

// Sign returns the x-signature header value for payload. Used by clients
// and tests.
func Sign(secretID string, secret, payload []byte) string {
	return fmt.Sprintf("%s:%s", secretID, hex.EncodeToString(ComputeHMAC(secret, payload)))
}
