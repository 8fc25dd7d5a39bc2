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

// Package upkeep 增幅器維護費：把實際經過的時間與固定間隔的能量扣款對帳。
//
// 規則：
//   - 尚未排程（NextUpkeepDue == 0）：排到 now + interval，不扣款。
//   - 在線且到期：迴圈扣款並把到期時間往後推一個 interval；第一次付不起就離線並停止推進。
//   - 離線且到期：只嘗試一次；付得起就上線並把到期時間設為 now + interval，否則維持不變。
//
// Reconcile 是冪等的：同一時間點連續呼叫兩次，第二次不會再扣款。
package upkeep

import (
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/spec"
)

// EventKind 對帳過程中的事件種類
type EventKind string

const (
	EventScheduled EventKind = "scheduled"
	EventCharged   EventKind = "charged"
	EventOffline   EventKind = "offline"
	EventRecovered EventKind = "recovered"
)

// Event 單一事件；Amount 只在扣款相關事件有值。
type Event struct {
	MachineID int64     `json:"machineId"`
	Kind      EventKind `json:"kind"`
	Amount    float64   `json:"amount,omitempty"`
	DueMs     int64     `json:"dueMs"`
}

// Report 一次對帳的結果
type Report struct {
	Events  []Event `json:"events"`
	Charged float64 `json:"charged"`
	Changed bool    `json:"changed"`
}

// Ticker 維護費對帳器
type Ticker struct {
	IntervalMs   int64
	CostPerLevel float64
}

// New 以設定建立 Ticker
func New(us spec.UpkeepSetting) *Ticker {
	return &Ticker{IntervalMs: us.IntervalMs, CostPerLevel: us.CostPerLevel}
}

// Cost 單次扣款金額
func (t *Ticker) Cost(level int) float64 {
	return t.CostPerLevel * float64(level)
}

// Reconcile 依建造順序處理每一台增幅器，直接修改 machines 與 bal。
func (t *Ticker) Reconcile(nowMs int64, machines []*model.Machine, bal *ledger.Balances) Report {
	var rep Report
	for _, m := range machines {
		if m.Type != model.Amplifier {
			continue
		}
		t.reconcileOne(nowMs, m, bal, &rep)
	}
	return rep
}

func (t *Ticker) reconcileOne(nowMs int64, m *model.Machine, bal *ledger.Balances, rep *Report) {
	if m.NextUpkeepDue == 0 {
		m.NextUpkeepDue = nowMs + t.IntervalMs
		rep.add(Event{MachineID: m.ID, Kind: EventScheduled, DueMs: m.NextUpkeepDue})
	}
	cost := t.Cost(m.Level)

	if !m.Offline {
		for m.NextUpkeepDue <= nowMs {
			if bal.Energy < cost {
				m.Offline = true
				rep.add(Event{MachineID: m.ID, Kind: EventOffline, Amount: cost, DueMs: m.NextUpkeepDue})
				return
			}
			bal.Energy -= cost
			m.NextUpkeepDue += t.IntervalMs
			rep.Charged += cost
			rep.add(Event{MachineID: m.ID, Kind: EventCharged, Amount: cost, DueMs: m.NextUpkeepDue})
		}
		return
	}

	if m.NextUpkeepDue <= nowMs && bal.Energy >= cost {
		bal.Energy -= cost
		m.Offline = false
		m.NextUpkeepDue = nowMs + t.IntervalMs
		rep.Charged += cost
		rep.add(Event{MachineID: m.ID, Kind: EventRecovered, Amount: cost, DueMs: m.NextUpkeepDue})
	}
}

func (r *Report) add(e Event) {
	r.Events = append(r.Events, e)
	r.Changed = true
}
