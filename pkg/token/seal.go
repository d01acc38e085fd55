package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Seal encodes payload as JSON and appends a truncated HMAC-SHA256 tag.
// The result is URL safe and meant for short-lived links, not sessions.
func Seal[T any](payload T, secret string) (string, error) {
	if secret == "" {
		return "", ErrSecretRequired
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("seal payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data) + "." +
		base64.RawURLEncoding.EncodeToString(tag(data, secret)), nil
}

// Open checks the tag of a Seal result and decodes its payload.
func Open[T any](raw, secret string) (T, error) {
	var payload T
	body, sig, ok := strings.Cut(raw, ".")
	if !ok || secret == "" {
		return payload, ErrInvalidSeal
	}
	data, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return payload, ErrInvalidSeal
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return payload, ErrInvalidSeal
	}
	if subtle.ConstantTimeCompare(got, tag(data, secret)) != 1 {
		return payload, ErrInvalidSeal
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("%w: %w", ErrInvalidSeal, err)
	}
	return payload, nil
}

func tag(data []byte, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return h.Sum(nil)[:12]
}
