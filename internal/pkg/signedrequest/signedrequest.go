// Package signedrequest recovers the authorization code embedded in a login
// SDK signedRequest ("<signature>.<base64url JSON payload>").
package signedrequest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformed = errors.New("malformed signed request")

type payload struct {
	Code     string `json:"code"`
	UserID   string `json:"user_id"`
	IssuedAt int64  `json:"issued_at"`
}

// Code returns the "code" field of the signed request payload.
// The signature is not verified; the backend re-validates the code on exchange.
func Code(signed string) (string, error) {
	parts := strings.Split(strings.TrimSpace(signed), ".")
	if len(parts) < 2 || parts[1] == "" {
		return "", ErrMalformed
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", ErrMalformed)
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", fmt.Errorf("parse payload: %w", ErrMalformed)
	}
	if p.Code == "" {
		return "", fmt.Errorf("payload has no code: %w", ErrMalformed)
	}
	return p.Code, nil
}
