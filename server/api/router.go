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

package api

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/Antigono00/First-minting-tools/server/api/dev"
	v1 "github.com/Antigono00/First-minting-tools/server/api/v1"
	"github.com/Antigono00/First-minting-tools/server/httperr"
	"github.com/Antigono00/First-minting-tools/server/netsvr"
	"github.com/Antigono00/First-minting-tools/server/netsvr/middleware"
	"github.com/Antigono00/First-minting-tools/server/svrcfg"
)

// RegisterRoutes 註冊；sCfg 須已通過 Vaild()。
func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg) // 1. 註冊 middleware
	registerHealth(svr, sCfg)     // 2. 健康檢查
	if err := registerLogin(svr, sCfg); err != nil {
		return err
	}
	if sCfg.Dev {
		dev.Register(svr, sCfg) // 3. 開發者工具頁
	}
	return registerAPI(svr, sCfg) // 4. 註冊經濟 api
}

// 註冊 middleware
//
// 順序：RequestID → Identity → AccessLog（才拿得到玩家）→ Recover → RateLimit → Compression
func registerMiddleware(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.Identity(sCfg.Identity))
	svr.Use(middleware.AccessLog(sCfg.Log))
	svr.Use(middleware.Recover(sCfg.Log))
	svr.Use(middleware.RateLimit(middleware.RateConfig{
		Rate:  rate.Limit(sCfg.Rate),
		Burst: sCfg.Burst,
	}))
	svr.Use(middleware.Compression)
}

// 健康檢查：Lab 關閉後回 503
func registerHealth(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	svr.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if sCfg.Lab.Closed() {
			httperr.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "closed",
				"reason": sCfg.Lab.ClosedReason(),
			})
			return
		}
		httperr.WriteJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"inflight": sCfg.Lab.Inflight(),
		})
	})
}

// 登入回呼；未設定 session 時（例如前置閘道負責驗證）不註冊。
func registerLogin(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) error {
	if sCfg.Session == nil {
		return nil
	}
	h, err := v1.NewLoginHandler(sCfg)
	if err != nil {
		return err
	}
	svr.Get("/callback", h.Callback)
	svr.Post("/logout", h.Logout)
	return nil
}

func registerAPI(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) error {
	h, err := v1.NewHandler(sCfg)
	if err != nil {
		return err
	}
	svr.Group("/api", h.Register)
	return nil
}
