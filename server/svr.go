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

package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	cvxlab "github.com/Antigono00/First-minting-tools"
	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/server/api"
	"github.com/Antigono00/First-minting-tools/server/app"
	"github.com/Antigono00/First-minting-tools/server/netsvr"
	"github.com/Antigono00/First-minting-tools/server/svrcfg"
)

// Run 是 server 套件的「組裝器（assembler）」與「啟動入口（runtime entry）」。
//
// 它負責：
//  1. 驗證輸入的 SvrCfg（包含必要依賴，例如 logger、Lab、身分來源）。
//  2. 建立 HTTP server（netsvr），寫入逾時大於單一請求上限。
//  3. 註冊路由與 middleware（api.RegisterRoutes）。
//  4. 啟動 app.Run()，停止時先關 server 再關 Lab。
//
// 注意：Run 不負責開啟/關閉 store 與 recorder，它們由呼叫端建立並在 Run 返回後關閉。
func Run(sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Vaild(); err != nil {
		// 防止外層傳入的logger不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	svr := netsvr.NewChiServerWith(sCfg.Addr, netsvr.Timeouts{
		Write: sCfg.RequestTimeout + 5*time.Second,
	})
	return RunWithSvr(sCfg, svr)
}

// RunWithSvr 與 Run() 相同，但允許呼叫端注入自訂的 NetSvr。
//
// 重要行為與合約（contract）：
//   - svr 參數必須非 nil，且若是 ChiAdapter 會要求 Ready() 為 true。
//   - 這一層只負責「註冊 routes + 啟動 app.Run()」，不接管整個系統的組裝方式。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if err := sCfg.Vaild(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		err := errs.NewFatal("svr is required")
		sCfg.Log.Error(err.Error())
		return err
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		err := errs.NewFatal("default server is not ready")
		sCfg.Log.Error(err.Error())
		return err
	}

	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return err
	}

	a := app.NewWith(&labComponent{lab: sCfg.Lab}, svr)
	a.SetLogger(sCfg.Log)
	a.SetShutdownTimeout(sCfg.RequestTimeout)
	if c, ok := svr.(*netsvr.ChiAdapter); ok {
		sCfg.Log.Info("[cvxlab] listening", slog.String("addr", c.Address()))
	} else {
		sCfg.Log.Info("[cvxlab] listening")
	}
	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
		return err
	}
	return nil
}

// labComponent 把 Lab 接到 app 的生命週期：
// Shutdown 時拒絕新動作，並等待進行中的動作結束（或 ctx 到期）。
type labComponent struct {
	lab *cvxlab.Lab
}

func (c *labComponent) Run() error {
	<-c.lab.Done()
	return nil
}

func (c *labComponent) Shutdown(ctx context.Context) error {
	c.lab.Close()
	tk := time.NewTicker(10 * time.Millisecond)
	defer tk.Stop()
	for c.lab.Inflight() > 0 {
		select {
		case <-ctx.Done():
			return errs.Wrap(ctx.Err(), fmt.Sprintf("lab shutdown: %d actions still running", c.lab.Inflight()))
		case <-tk.C:
		}
	}
	return nil
}
