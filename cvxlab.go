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

// Package cvxlab 經濟引擎的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// Lab 把下列元件組裝在一起，並對外提供每一個玩家動作（建造、移動、升級、啟動…）：
//  1. spec.EconomySetting：所有數值（成本表、冷卻、維護費、地圖尺寸）。
//  2. store.Store：玩家快照的持久化，每個動作是一筆交易。
//  3. external：質押餘額查詢與外部帳本（鑄造請求、交易狀態）。
//  4. recorder.Recorder：每個動作（含失敗）寫一筆紀錄。
//
// 每個動作的固定流程：
//   - 取得該玩家的鎖（同玩家序列化、跨玩家平行）。
//   - 需要外部資料時先查詢（不在資料庫交易內等待網路）。
//   - 開交易載入快照 → 結算增幅器維護費 → 驗證 → 修改 → 重算房間數 → 提交。
//
// 任何一步驗證失敗都會讓整筆交易放棄，玩家狀態不變。
package cvxlab

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Antigono00/First-minting-tools/activation"
	"github.com/Antigono00/First-minting-tools/catalog"
	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/external"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/placement"
	"github.com/Antigono00/First-minting-tools/recorder"
	"github.com/Antigono00/First-minting-tools/spec"
	"github.com/Antigono00/First-minting-tools/store"
	"github.com/Antigono00/First-minting-tools/upkeep"
)

// DefaultLookupTimeout 外部查詢的預設逾時
const DefaultLookupTimeout = 15 * time.Second

// Option 調整 Lab 的可選元件
type Option func(*Lab)

// WithOracle 質押餘額來源；未設定時 incubator 一律以 0 計算（降級）。
func WithOracle(o external.BalanceOracle) Option {
	return func(l *Lab) { l.oracle = o }
}

// WithGateway 外部帳本；未設定時 fomoHit 首次啟動與能量購買會失敗。
func WithGateway(g external.LedgerGateway) Option {
	return func(l *Lab) { l.gateway = g }
}

// WithRecorder 動作紀錄
func WithRecorder(r recorder.Recorder) Option {
	return func(l *Lab) {
		if r != nil {
			l.rec = r
		}
	}
}

// WithLogger 結構化 log
func WithLogger(log *slog.Logger) Option {
	return func(l *Lab) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock 注入時間來源（毫秒），測試用。
func WithClock(now func() int64) Option {
	return func(l *Lab) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLookupTimeout 外部查詢逾時；<=0 使用預設值。
func WithLookupTimeout(d time.Duration) Option {
	return func(l *Lab) {
		if d > 0 {
			l.lookupTimeout = d
		}
	}
}

// Lab 經濟引擎。可被多個 goroutine 同時使用。
type Lab struct {
	es      *spec.EconomySetting
	st      store.Store
	cat     *catalog.Catalog
	act     *activation.Engine
	ticker  *upkeep.Ticker
	place   *placement.Validator
	oracle  external.BalanceOracle
	gateway external.LedgerGateway
	rec     recorder.Recorder
	log     *slog.Logger

	now           func() int64
	lookupTimeout time.Duration
	locks         *playerLocks

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string
	inflight  atomic.Int32
	panics    atomic.Int32
}

// New 建立 Lab。es 與 st 為必要元件；es 需已通過 spec 的載入檢查。
func New(es *spec.EconomySetting, st store.Store, opts ...Option) (*Lab, error) {
	if es == nil {
		return nil, errs.NewFatal("economy setting required")
	}
	if st == nil {
		return nil, errs.NewFatal("store required")
	}
	l := &Lab{
		es:            es,
		st:            st,
		cat:           catalog.New(es),
		act:           activation.New(es),
		ticker:        upkeep.New(es.UpkeepSetting),
		place:         placement.New(es.MapSetting),
		rec:           recorder.Nop{},
		log:           slog.New(slog.DiscardHandler),
		now:           func() int64 { return time.Now().UnixMilli() },
		lookupTimeout: DefaultLookupTimeout,
		locks:         newPlayerLocks(),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.reason.Store("")
	return l, nil
}

// Setting 經濟設定（唯讀）
func (l *Lab) Setting() *spec.EconomySetting { return l.es }

// Catalog 成本表
func (l *Lab) Catalog() *catalog.Catalog { return l.cat }

// Store 底層儲存
func (l *Lab) Store() store.Store { return l.st }

// Inflight 目前執行中的動作數
func (l *Lab) Inflight() int { return int(l.inflight.Load()) }

// Panics 動作執行中發生 panic 的次數
func (l *Lab) Panics() int { return int(l.panics.Load()) }

// Close 進入關閉狀態：之後的動作直接回錯誤。可重複呼叫。
// 不會關閉 store 與 recorder，它們由建立者負責。
func (l *Lab) Close() {
	l.closeWithReason("closed")
}

func (l *Lab) closeWithReason(reason string) {
	l.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		l.reason.Store(reason)
		l.closed.Store(true)
		close(l.done)
	})
}

// Done 關閉後會被 close 的 channel
func (l *Lab) Done() <-chan struct{} { return l.done }

// Closed 是否已關閉
func (l *Lab) Closed() bool {
	return l.closed.Load()
}

func (l *Lab) ClosedReason() string {
	if v := l.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// frame 一次動作的共用上下文
type frame struct {
	now   int64
	entry recorder.Entry
	// quiet 為 true 時，成功且沒有維護費事件的動作不寫紀錄（純讀取）
	quiet  bool
	upkeep upkeep.Report
}

// txFunc 交易內的動作本體：st 已結算過維護費。
type txFunc func(f *frame, st *model.State, tx store.Tx) error

// begin 檢查關閉/取消狀態、身分，並取得玩家鎖。
func (l *Lab) begin(ctx context.Context, playerID string) (func(), error) {
	select {
	case <-ctx.Done():
		return nil, errs.Internal("action canceled", ctx.Err())
	case <-l.done:
		return nil, errs.Internal("engine closed: "+l.ClosedReason(), nil)
	default:
	}
	if playerID == "" {
		return nil, errs.Unauthenticated("Not logged in")
	}
	return l.locks.lock(ctx, playerID)
}

// run 在交易中執行 fn：先結算維護費，fn 失敗則整筆放棄。
// 呼叫端必須已持有玩家鎖。動作結果（含失敗）寫入 recorder。
func (l *Lab) run(ctx context.Context, playerID, action string, f *frame, fn txFunc) (err error) {
	l.inflight.Add(1)
	defer l.inflight.Add(-1)

	f.entry.AtMs = f.now
	f.entry.Player = playerID
	f.entry.Action = action
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			l.log.Error("action panic", "action", action, "player", playerID, "panic", r, "stack", string(debug.Stack()))
			err = errs.Internal(fmt.Sprintf("panic in %s", action), nil)
		}
		l.record(f, err)
	}()

	return l.st.Update(ctx, playerID, func(st *model.State, tx store.Tx) error {
		st.SortMachines()
		f.upkeep = l.ticker.Reconcile(f.now, st.Machines, &st.Player.Resources)
		f.entry.Upkeep = f.upkeep.Events
		return fn(f, st, tx)
	})
}

// do 取得玩家鎖並在交易中執行 fn。
func (l *Lab) do(ctx context.Context, playerID, action string, fn txFunc) (*frame, error) {
	unlock, err := l.begin(ctx, playerID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	f := &frame{now: l.now()}
	return f, l.run(ctx, playerID, action, f, fn)
}

func (l *Lab) record(f *frame, err error) {
	if f.quiet && err == nil && len(f.entry.Upkeep) == 0 {
		return
	}
	if err != nil {
		f.entry.ErrKind = errs.KindOf(err).String()
		f.entry.Error = err.Error()
		if errs.Is(err, errs.KindInternal) {
			l.log.Error("action failed", "action", f.entry.Action, "player", f.entry.Player, "err", err)
		}
	}
	if rerr := l.rec.Record(f.entry); rerr != nil {
		l.log.Warn("record action failed", "action", f.entry.Action, "err", rerr)
	}
}

// machine 依 ID 取得此玩家的機台
func machine(st *model.State, id int64) (*model.Machine, error) {
	m, ok := st.Machine(id)
	if !ok {
		return nil, errs.NotFound("Machine not found")
	}
	return m, nil
}
