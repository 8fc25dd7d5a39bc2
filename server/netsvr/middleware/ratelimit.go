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
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Antigono00/First-minting-tools/server/httperr"
)

// RateConfig 每個來源（玩家，未登入時為 IP）一個 token bucket。
type RateConfig struct {
	Rate  rate.Limit
	Burst int
	// Idle 超過此時間沒有請求的 bucket 會被回收
	Idle time.Duration
}

var DefaultRateConfig = RateConfig{
	Rate:  10,
	Burst: 20,
	Idle:  10 * time.Minute,
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

type limiter struct {
	cfg      RateConfig
	mu       sync.Mutex
	visitors map[string]*visitor
	lastGC   time.Time
	now      func() time.Time
}

func newLimiter(cfg RateConfig) *limiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Idle <= 0 {
		cfg.Idle = DefaultRateConfig.Idle
	}
	return &limiter{cfg: cfg, visitors: make(map[string]*visitor), now: time.Now}
}

func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastGC) > l.cfg.Idle {
		for k, v := range l.visitors {
			if now.Sub(v.seen) > l.cfg.Idle {
				delete(l.visitors, k)
			}
		}
		l.lastGC = now
	}
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.cfg.Rate, l.cfg.Burst)}
		l.visitors[key] = v
	}
	v.seen = now
	return v.lim.AllowN(now, 1)
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// RateLimit 超過速率回 429。Rate <= 0 時不限流。
// 須掛在 Identity 之後，才能以玩家 ID 為 key。
func RateLimit(cfg RateConfig) func(http.Handler) http.Handler {
	if cfg.Rate <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newLimiter(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(rateKey(r)) {
				httperr.WriteJSON(w, http.StatusTooManyRequests, httperr.Body{Error: "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateKey(r *http.Request) string {
	if id := PlayerFrom(r.Context()); id != "" {
		return "p:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
