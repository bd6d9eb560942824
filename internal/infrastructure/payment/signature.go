package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Signer signs webhook payloads with HMAC-SHA256 over their compact JSON form,
// so whitespace differences introduced in transit do not change the digest.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex digest, or "" when the payload is not JSON or no secret is set.
func (s *Signer) Sign(payload []byte) string {
	if len(s.secret) == 0 {
		return ""
	}
	canonical, err := canonicalize(payload)
	if err != nil {
		return ""
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify fails closed: a missing secret or signature never passes.
func (s *Signer) Verify(payload []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if len(s.secret) == 0 || signature == "" {
		return false
	}
	expected := s.Sign(payload)
	if expected == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func canonicalize(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
