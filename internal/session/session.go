// Copyright 2026 The Intellitrader Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session encodes and verifies the signed session token held in the
// client cookie.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/intellitrader/portal/internal/model"
)

// DevelopmentSecret is used when no secret is configured. Tokens signed with
// it offer no protection.
const DevelopmentSecret = "dev-demo-secret"

// Session is the client-held credential carried in the session cookie.
// A session is immutable: switching tenant issues a new one.
type Session struct {
	UserID         string     `json:"userId"`
	Role           model.Role `json:"role"`
	ActiveTenantID string     `json:"tenantId,omitempty"`
	IssuedAt       int64      `json:"iat"` // epoch milliseconds
}

// New creates a session issued now.
func New(userID string, role model.Role, activeTenantID string) Session {
	return Session{
		UserID:         userID,
		Role:           role,
		ActiveTenantID: activeTenantID,
		IssuedAt:       time.Now().UnixMilli(),
	}
}

// IssuedTime returns the issue time.
func (s Session) IssuedTime() time.Time {
	return time.UnixMilli(s.IssuedAt)
}

// valid checks the decoded shape.
func (s Session) valid() bool {
	return s.UserID != "" && s.Role.Valid() && s.IssuedAt >= 0
}

// Codec signs and verifies session tokens of the form
// <base64url(json)>.<base64url(hmac-sha256)>, both parts unpadded.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec bound to a server secret. Rotating the secret
// invalidates every outstanding token.
func NewCodec(secret string) *Codec {
	if secret == "" {
		secret = DevelopmentSecret
	}
	return &Codec{secret: []byte(secret)}
}

// Encode serializes and signs a session.
func (c *Codec) Encode(s Session) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + c.sign(payload), nil
}

// Decode verifies a token and returns its session. Any failure (empty,
// malformed, bad signature, unexpected shape) yields nil.
func (c *Codec) Decode(token string) *Session {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok || payload == "" || sig == "" || strings.Contains(sig, ".") {
		return nil
	}

	expected := c.sign(payload)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	if !s.valid() {
		return nil
	}
	return &s
}

func (c *Codec) sign(payload string) string {
	m := hmac.New(sha256.New, c.secret)
	m.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}
