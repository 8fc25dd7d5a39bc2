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

// Package dev 提供開發期用的 Dev Panel 與除錯端點。
//
// 注意（contract）：
//   - 這不是 production API；只有 SvrCfg.Dev 為 true 時才會註冊。
//   - 只能操作「目前登入的玩家」自己的資料，身分一樣走 Identity middleware。
//   - 錯誤處理走 httperr.Errs，與 /api 一致。
package dev

import (
	"context"
	"net/http"
	"time"

	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/dto"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/server/httperr"
	"github.com/Antigono00/First-minting-tools/server/netsvr"
	"github.com/Antigono00/First-minting-tools/server/netsvr/middleware"
	"github.com/Antigono00/First-minting-tools/server/svrcfg"
)

// grantRequest 發放資源給自己（測試用）
type grantRequest struct {
	Resource string  `json:"resource"`
	Amount   float64 `json:"amount"`
}

func (r *grantRequest) Validate() error {
	if _, ok := ledger.Parse(r.Resource); !ok {
		return errs.Validation("unknown resource")
	}
	if r.Amount == 0 {
		return errs.Validation("amount required")
	}
	return nil
}

func Register(svr netsvr.NetRouter, cfg *svrcfg.SvrCfg) {
	svr.Get("/dev", devPage)
	svr.Get("/dev/meta", devMeta(cfg))
	svr.Post("/dev/grant", devGrant(cfg))
	svr.Post("/dev/sweep", devSweep(cfg))
}

func devPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(devPageHTML))
}

// devMeta 回傳目前載入的經濟設定
func devMeta(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httperr.WriteJSON(w, http.StatusOK, cfg.Lab.Setting())
	}
}

func devGrant(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := dto.Decode[grantRequest](r)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout(cfg))
		defer cancel()
		res, _ := ledger.Parse(req.Resource)
		bal, err := cfg.Lab.Grant(ctx, middleware.PlayerFrom(r.Context()), res, req.Amount)
		if err != nil {
			httperr.Log(cfg.Log, "dev.grant", err)
			httperr.Errs(w, err)
			return
		}
		httperr.WriteJSON(w, http.StatusOK, bal)
	}
}

// devSweep 立即結算自己的維護費，回傳這次的事件
func devSweep(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout(cfg))
		defer cancel()
		rep, err := cfg.Lab.Sweep(ctx, middleware.PlayerFrom(r.Context()))
		if err != nil {
			httperr.Log(cfg.Log, "dev.sweep", err)
			httperr.Errs(w, err)
			return
		}
		httperr.WriteJSON(w, http.StatusOK, rep)
	}
}

func timeout(cfg *svrcfg.SvrCfg) time.Duration {
	if cfg.RequestTimeout > 0 {
		return cfg.RequestTimeout
	}
	return svrcfg.DefaultRequestTimeout
}

const devPageHTML = `<!doctype html>
<html lang="zh-Hant">
<head>
  <meta charset="utf-8" />
  <title>CVX Lab Dev</title>
  <style>
    body { font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif; background:#0f172a; color:#e2e8f0; margin:0; }
    .wrap { max-width: 980px; margin: 24px auto; padding: 16px 20px; background:#111827; border:1px solid #1f2937; border-radius:12px; }
    h1 { margin: 0 0 16px; font-size: 22px; }
    .grid { display:grid; grid-template-columns: repeat(auto-fit, minmax(180px,1fr)); gap:12px; margin-bottom:12px; }
    label { display:flex; flex-direction:column; gap:6px; font-size: 13px; color:#cbd5e1; }
    input, select { background:#0b1224; color:#e2e8f0; border:1px solid #1f2738; border-radius:8px; padding:10px 12px; font-size:14px; }
    button { cursor:pointer; border:none; border-radius:10px; padding:10px 14px; font-weight:600; background:#38bdf8; color:#0b1224; }
    pre { background:#0b1224; border:1px solid #1f2738; border-radius:12px; padding:14px; min-height:220px; overflow:auto; white-space:pre-wrap; }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>CVX Lab Dev Panel</h1>
    <div class="grid">
      <label>Resource
        <select id="resource">
          <option>tcorvax</option><option>catNips</option><option>energy</option><option>eggs</option>
        </select>
      </label>
      <label>Amount
        <input id="amount" type="number" value="100" />
      </label>
    </div>
    <div>
      <button id="btn-state">State</button>
      <button id="btn-grant">Grant</button>
      <button id="btn-sweep">Sweep</button>
      <button id="btn-meta">Economy</button>
    </div>
    <pre id="out"></pre>
  </div>
<script>
const out = document.getElementById('out');
async function call(method, url, body) {
  const res = await fetch(url, { method, headers: {'Content-Type': 'application/json'}, body: body ? JSON.stringify(body) : undefined });
  out.textContent = res.status + '\n' + JSON.stringify(await res.json(), null, 2);
}
document.getElementById('btn-state').onclick = () => call('GET', '/api/getGameState');
document.getElementById('btn-meta').onclick = () => call('GET', '/dev/meta');
document.getElementById('btn-sweep').onclick = () => call('POST', '/dev/sweep');
document.getElementById('btn-grant').onclick = () => call('POST', '/dev/grant', {
  resource: document.getElementById('resource').value,
  amount: Number(document.getElementById('amount').value),
});
</script>
</body>
</html>
`
