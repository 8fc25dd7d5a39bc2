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

// Package activation 機台啟動狀態機：冷卻判斷與各機種的產出/消耗。
//
// Activate 只修改傳入的 machine 與 balances；需要外部資料的機種（incubator 的質押餘額、
// fomoHit 首次啟動的鑄造請求）由呼叫端事先準備好放進 Inputs，這裡不做任何 I/O。
package activation

import (
	"math"

	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/external"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/spec"
)

// Need 啟動前需要呼叫端準備的外部資料
type Need uint8

const (
	NeedNothing Need = iota
	NeedStakedBalance
	NeedMintRequest
)

// Inputs 單次啟動的輸入
type Inputs struct {
	NowMs int64
	// AmplifierLevel 第一台在線增幅器的等級，沒有則為 0
	AmplifierLevel int
	AccountAddress string
	Staked         external.Lookup
	Mint           *external.MintRequest
}

// Outcome 啟動結果，HTTP 層依機種挑選欄位回傳。
type Outcome struct {
	Type            model.MachineType
	Reward          ledger.Cost
	Consumed        ledger.Cost
	FirstActivation bool
	// StatusOnly 為 true 代表這是增幅器的狀態查詢，沒有任何變更
	StatusOnly    bool
	Online        bool
	StakedBalance float64
	// incubator 產出明細
	BaseReward    float64
	BonusReward   float64
	EggsReward    float64
	Degraded      bool
	Mint          *external.MintRequest
	LastActivated int64
}

// Engine 啟動規則
type Engine struct {
	cooldownMs int64
	prod       spec.ProductionSetting
}

// New 以經濟設定建立 Engine
func New(es *spec.EconomySetting) *Engine {
	return &Engine{cooldownMs: es.CooldownMs, prod: es.ProductionSetting}
}

// CooldownMs 冷卻時間
func (e *Engine) CooldownMs() int64 { return e.cooldownMs }

// Requires 回傳啟動 m 之前需要的外部資料
func (e *Engine) Requires(m *model.Machine) Need {
	switch {
	case m.Type == model.Incubator:
		return NeedStakedBalance
	case m.Type == model.FomoHit && m.LastActivated == 0:
		return NeedMintRequest
	default:
		return NeedNothing
	}
}

// CheckCooldown 冷卻未結束時回傳帶剩餘毫秒數的錯誤；增幅器沒有冷卻。
func (e *Engine) CheckCooldown(m *model.Machine, nowMs int64) error {
	if m.Type == model.Amplifier || m.LastActivated == 0 {
		return nil
	}
	elapsed := nowMs - m.LastActivated
	if elapsed < e.cooldownMs {
		return errs.Cooldown(e.cooldownMs - elapsed)
	}
	return nil
}

// Activate 執行一次啟動。失敗時 m 與 bal 都不會被修改。
func (e *Engine) Activate(m *model.Machine, bal *ledger.Balances, in Inputs) (Outcome, error) {
	out := Outcome{Type: m.Type, LastActivated: m.LastActivated}

	if m.Type == model.Amplifier {
		out.StatusOnly = true
		out.Online = !m.Offline
		return out, nil
	}
	if err := e.CheckCooldown(m, in.NowMs); err != nil {
		return out, err
	}
	out.FirstActivation = m.LastActivated == 0

	switch m.Type {
	case model.CatLair:
		p := e.prod.CatLair
		out.Reward = ledger.Cost{ledger.CatNips: p.CatNipsBase + p.CatNipsPerLevel*float64(m.Level-1)}

	case model.Reactor:
		p := e.prod.Reactor
		if bal.CatNips < p.CatNipsCost {
			return out, errs.Precondition("Not enough Cat Nips to run the reactor")
		}
		tc := p.TCorvaxAt(m.Level)
		if in.AmplifierLevel > 0 {
			tc += p.AmplifierBonusPerLevel * float64(in.AmplifierLevel)
		}
		out.Consumed = ledger.Cost{ledger.CatNips: p.CatNipsCost}
		out.Reward = ledger.Cost{ledger.TCorvax: tc, ledger.Energy: p.Energy}

	case model.Incubator:
		p := e.prod.Incubator
		staked := in.Staked.Value
		base := math.Min(p.BaseCap, math.Floor(staked/p.BaseDivisor))
		bonus := 0.0
		if m.Level >= p.BonusMinLevel {
			bonus = math.Floor(staked / p.BonusDivisor)
		}
		eggs := math.Floor(staked / p.EggsDivisor)
		out.StakedBalance = staked
		out.BaseReward, out.BonusReward, out.EggsReward = base, bonus, eggs
		out.Degraded = in.Staked.Degraded
		out.Reward = ledger.Cost{ledger.TCorvax: base + bonus, ledger.Eggs: eggs}

	case model.FomoHit:
		if out.FirstActivation {
			if in.AccountAddress == "" {
				return out, errs.Validation("Account address required for the first activation")
			}
			if in.Mint == nil {
				return out, errs.Internal("mint request missing", nil)
			}
			out.Mint = in.Mint
			break
		}
		out.Reward = ledger.Cost{ledger.TCorvax: e.prod.FomoHit.TCorvax}

	default:
		return out, errs.Validation("Unknown machine type.")
	}

	// 以下不會失敗：先扣後加
	if err := bal.Debit(out.Consumed); err != nil {
		return out, err
	}
	bal.Credit(out.Reward)
	switch {
	case m.Type == model.Incubator && out.FirstActivation:
		m.Offline = false
	case m.Type == model.FomoHit && out.Mint != nil:
		m.ProvisionalMint = true
	}
	m.LastActivated = in.NowMs
	out.LastActivated = in.NowMs
	return out, nil
}
