package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySafe2PayWebhookSignature(t *testing.T) {
	body := []byte(`{"EventType":"SubscriptionRenewed"}`)
	secret := "s3cret"
	good := sign(body, secret)

	tests := []struct {
		name   string
		header string
		secret string
		want   bool
	}{
		{"disabled without secret", "", "", true},
		{"valid hex", good, secret, true},
		{"valid with prefix", "sha256=" + good, secret, true},
		{"uppercase hex", "SHA256=" + hexUpper(good), secret, true},
		{"missing header", "", secret, false},
		{"not hex", "zz", secret, false},
		{"wrong secret", sign(body, "other"), secret, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySafe2PayWebhookSignature(body, tt.header, tt.secret))
		})
	}
}

func hexUpper(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'f' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}
