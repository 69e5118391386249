package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte(`{}`),
		[]byte(`{"action":"created"}`),
		[]byte(``),
		[]byte("binary\x00payload\xff"),
	}
	secrets := []string{"s3cret", "another-secret", "x"}

	for _, payload := range payloads {
		for _, secret := range secrets {
			sig := Sign(payload, secret)
			assert.True(t, VerifySignature(payload, sig, secret),
				"sign-then-verify must hold for payload %q secret %q", payload, secret)
		}
	}
}

func TestVerifySignature_BitFlip(t *testing.T) {
	payload := []byte(`{"repository":{"id":42}}`)
	secret := "webhook-secret"
	sig := Sign(payload, secret)

	// Flipping any single hex character of the digest must fail verification.
	for i := len("sha256="); i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}
		assert.False(t, VerifySignature(payload, string(mutated), secret),
			"mutated signature at index %d must not verify", i)
	}
}

func TestVerifySignature_FailsClosed(t *testing.T) {
	payload := []byte(`{}`)
	secret := "secret"
	validHex := Sign(payload, secret)[len("sha256="):]

	tests := []struct {
		name      string
		signature string
		secret    string
	}{
		{name: "empty signature", signature: "", secret: secret},
		{name: "empty secret", signature: Sign(payload, secret), secret: ""},
		{name: "missing prefix", signature: validHex, secret: secret},
		{name: "wrong scheme", signature: "sha1=" + validHex, secret: secret},
		{name: "invalid hex", signature: "sha256=zznothex", secret: secret},
		{name: "truncated digest", signature: "sha256=" + validHex[:10], secret: secret},
		{name: "wrong secret", signature: Sign(payload, "other"), secret: secret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, VerifySignature(payload, tt.signature, tt.secret))
		})
	}
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	secret := "secret"
	sig := Sign([]byte(`{"stars":10}`), secret)
	require.False(t, VerifySignature([]byte(`{"stars":99}`), sig, secret))
}
