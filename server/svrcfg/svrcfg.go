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

package svrcfg

import (
	"log/slog"
	"time"

	cvxlab "github.com/Antigono00/First-minting-tools"
	"github.com/Antigono00/First-minting-tools/auth"
	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/server/logger"
)

const (
	DefaultAddr           = ":5808"
	DefaultRequestTimeout = 30 * time.Second
	DefaultLoginMaxAge    = 24 * time.Hour
)

type SvrCfg struct {
	Log *slog.Logger
	Lab *cvxlab.Lab

	// Identity 解析玩家；未指定時使用 Session。
	Identity auth.IdentityProvider
	// Session 由 /callback 簽發；為 nil 時不註冊 /callback。
	Session     *auth.SessionProvider
	BotToken    string
	LoginMaxAge time.Duration
	// LoginRedirect 登入成功後導向的位置
	LoginRedirect string

	Addr           string
	RequestTimeout time.Duration
	// Rate 每秒請求數（每位玩家），<= 0 表示不限流
	Rate  float64
	Burst int

	// Dev 開啟 /dev 開發者工具（不可用於 production）
	Dev bool
}

func (sc *SvrCfg) Vaild() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		// 保持安靜、合法
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}
	if sc.Lab == nil {
		return errs.NewFatal("lab is required")
	}
	if sc.Identity == nil {
		if sc.Session == nil {
			return errs.NewFatal("identity provider or session is required")
		}
		sc.Identity = sc.Session
	}
	if sc.Session != nil && sc.BotToken == "" {
		sc.Log.Warn("bot token not set: /callback will reject every login")
	}
	if sc.Addr == "" {
		sc.Addr = DefaultAddr
	}
	if sc.RequestTimeout <= 0 {
		sc.RequestTimeout = DefaultRequestTimeout
	}
	if sc.LoginMaxAge <= 0 {
		sc.LoginMaxAge = DefaultLoginMaxAge
	}
	if sc.LoginRedirect == "" {
		sc.LoginRedirect = "/"
	}
	if sc.Rate < 0 {
		sc.Rate = 0
	}
	if sc.Rate > 0 && sc.Burst <= 0 {
		sc.Burst = max(1, int(2*sc.Rate))
	}
	return nil
}
