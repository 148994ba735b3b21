package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
)

// ReceiptHeader carries the receipt signature on service responses.
const ReceiptHeader = "X-Receipt-Signature"

// Receipts signs payment receipts with a shared secret so clients can prove
// what they paid for.
type Receipts struct {
	secret []byte
}

// NewReceipts creates a receipt signer. An empty secret disables signing.
func NewReceipts(secret string) *Receipts {
	return &Receipts{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (r *Receipts) Enabled() bool { return r != nil && len(r.secret) > 0 }

// Sign returns base64(HMAC-SHA256(secret, service|payer|amount|paymentRef)).
func (r *Receipts) Sign(service, payer string, amount float64, paymentRef string) string {
	if !r.Enabled() {
		return ""
	}
	return hmacSHA256Base64(r.secret, receiptMessage(service, payer, amount, paymentRef))
}

// Verify checks sig in constant time.
func (r *Receipts) Verify(service, payer string, amount float64, paymentRef, sig string) bool {
	if !r.Enabled() {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(hmacSHA256Base64(r.secret, receiptMessage(service, payer, amount, paymentRef)))
	if err != nil {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}

func receiptMessage(service, payer string, amount float64, paymentRef string) string {
	return service + "|" + payer + "|" + strconv.FormatFloat(amount, 'f', -1, 64) + "|" + paymentRef
}

func hmacSHA256Base64(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
