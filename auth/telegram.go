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

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Antigono00/First-minting-tools/errs"
)

// TelegramUser Telegram 登入元件回傳的使用者
type TelegramUser struct {
	ID        string
	FirstName string
	AuthDate  time.Time
}

// TelegramCheckString 依 key 排序後以 "\n" 串接 "k=v"（不含 hash）。
func TelegramCheckString(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+q.Get(k))
	}
	return strings.Join(lines, "\n")
}

// TelegramHash 以 sha256(botToken) 為 key 計算 HMAC-SHA256
func TelegramHash(q url.Values, botToken string) string {
	key := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(TelegramCheckString(q)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyTelegram 驗證登入元件的回呼參數。maxAge > 0 時拒絕過舊的 auth_date。
func VerifyTelegram(q url.Values, botToken string, now time.Time, maxAge time.Duration) (TelegramUser, error) {
	id, hash, authDate := q.Get("id"), q.Get("hash"), q.Get("auth_date")
	if id == "" || hash == "" || authDate == "" {
		return TelegramUser{}, errs.Validation("Missing Telegram login data!")
	}
	if botToken == "" {
		return TelegramUser{}, errs.Unauthenticated("telegram login not configured")
	}
	if !hmac.Equal([]byte(hash), []byte(TelegramHash(q, botToken))) {
		return TelegramUser{}, errs.Unauthenticated("Invalid hash - data might be forged!")
	}
	ts, err := strconv.ParseInt(authDate, 10, 64)
	if err != nil {
		return TelegramUser{}, errs.Validation("invalid auth_date")
	}
	at := time.Unix(ts, 0)
	if maxAge > 0 && now.Sub(at) > maxAge {
		return TelegramUser{}, errs.Unauthenticated("telegram login expired")
	}
	name := q.Get("first_name")
	if name == "" {
		name = "Unknown"
	}
	return TelegramUser{ID: id, FirstName: name, AuthDate: at}, nil
}
