// Package gateway talks to the external payment gateway and the certificate renderer.
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer computes and checks gateway checkout signatures.
// A signature is the hex HMAC-SHA256 of "orderID|paymentID" keyed with the gateway key secret.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer for the given key secret
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the signature the gateway would produce for the order and payment
func (s *Signer) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the order and payment.
// The comparison runs in constant time.
func (s *Signer) Verify(orderID, paymentID, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hmac.Equal(got, mac.Sum(nil))
}
