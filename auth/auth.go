// Copyright 2025 Zintix Labs
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

// Package auth 身分解析：把一個 HTTP 請求對應到玩家 ID。
//
// 經濟引擎只透過 IdentityProvider 取得玩家 ID；登入方式（Telegram 登入元件、
// 前置閘道注入的 header）都是可替換的實作。
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Antigono00/First-minting-tools/errs"
)

// IdentityProvider 解析請求的玩家身分
type IdentityProvider interface {
	PlayerID(r *http.Request) (string, bool)
}

// HeaderProvider 信任前置閘道注入的 header（例如 X-Player-Id）
type HeaderProvider struct {
	Header string
}

func (h HeaderProvider) PlayerID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(h.Header))
	return id, id != ""
}

// Chain 依序嘗試多個 provider，第一個成功者為準。
type Chain []IdentityProvider

func (c Chain) PlayerID(r *http.Request) (string, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if id, ok := p.PlayerID(r); ok {
			return id, true
		}
	}
	return "", false
}

const DefaultCookieName = "cvx_session"

// SessionProvider 以 HMAC 簽章的 cookie 保存玩家 ID。
//
// cookie 值：base64url(playerID) "." expiryUnix "." hex(hmac-sha256)
type SessionProvider struct {
	Secret     []byte
	CookieName string
	TTL        time.Duration
	Secure     bool
	Now        func() time.Time
}

// NewSessionProvider 建立 SessionProvider；secret 不可為空。
func NewSessionProvider(secret string, ttl time.Duration, secure bool) (*SessionProvider, error) {
	if secret == "" {
		return nil, errs.NewFatal("session secret required")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionProvider{
		Secret:     []byte(secret),
		CookieName: DefaultCookieName,
		TTL:        ttl,
		Secure:     secure,
		Now:        time.Now,
	}, nil
}

func (s *SessionProvider) sign(payload string) string {
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Encode 產生 cookie 值
func (s *SessionProvider) Encode(playerID string) string {
	exp := s.Now().Add(s.TTL).Unix()
	payload := base64.RawURLEncoding.EncodeToString([]byte(playerID)) + "." + strconv.FormatInt(exp, 10)
	return payload + "." + s.sign(payload)
}

// Decode 驗證 cookie 值並取回玩家 ID
func (s *SessionProvider) Decode(v string) (string, bool) {
	i := strings.LastIndexByte(v, '.')
	if i < 0 {
		return "", false
	}
	payload, sig := v[:i], v[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return "", false
	}
	parts := strings.SplitN(payload, ".", 2)
	if len(parts) != 2 {
		return "", false
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || s.Now().Unix() > exp {
		return "", false
	}
	id, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil || len(id) == 0 {
		return "", false
	}
	return string(id), true
}

func (s *SessionProvider) PlayerID(r *http.Request) (string, bool) {
	c, err := r.Cookie(s.CookieName)
	if err != nil {
		return "", false
	}
	return s.Decode(c.Value)
}

// Issue 寫入 session cookie
func (s *SessionProvider) Issue(w http.ResponseWriter, playerID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName,
		Value:    s.Encode(playerID),
		Path:     "/",
		MaxAge:   int(s.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear 清除 session cookie
func (s *SessionProvider) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
