// Package github holds the GitHub integration surface: webhook
// signature verification, typed webhook payloads, and a thin wrapper
// around the REST API client used for repository import.
package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// signaturePrefix is the scheme GitHub prepends to the hex digest in
// the X-Hub-Signature-256 header.
const signaturePrefix = "sha256="

// VerifySignature reports whether signature is a valid HMAC-SHA256 of
// body keyed by secret. The signature is the X-Hub-Signature-256 header
// value: "sha256=" followed by the hex-encoded digest.
//
// The comparison is constant time. Any malformed input (missing header,
// wrong prefix, bad hex, wrong digest length) verifies as false —
// verification fails closed and never panics.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(signature, signaturePrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	return hmac.Equal(expected, provided)
}

// Sign computes the X-Hub-Signature-256 header value for body under
// secret. Used by tests and the webhook documentation examples.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
