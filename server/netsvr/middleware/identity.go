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

package middleware

import (
	"context"
	"net/http"

	"github.com/Antigono00/First-minting-tools/auth"
)

type playerKey struct{}

// Identity 以 provider 解析玩家 ID 放進 context。
//
// 解析失敗不在這裡擋下：未登入的請求照常往下走，由引擎回 401，
// /api/whoami 這類端點則回 loggedIn=false。
func Identity(p auth.IdentityProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if p == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := p.PlayerID(r); ok {
				r = r.WithContext(WithPlayer(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPlayer 把玩家 ID 放進 ctx
func WithPlayer(ctx context.Context, playerID string) context.Context {
	return context.WithValue(ctx, playerKey{}, playerID)
}

// PlayerFrom 取回玩家 ID；未登入回空字串。
func PlayerFrom(ctx context.Context) string {
	id, _ := ctx.Value(playerKey{}).(string)
	return id
}
