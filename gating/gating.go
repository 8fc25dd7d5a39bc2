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

// Package gating 實作建造/升級的前置條件判斷與房間解鎖推導。
//
// 所有判斷都是純函式，輸入為一份機台清單（依建造順序），不讀寫任何狀態。
// 「第一台」「第二台」以 ID 由小到大決定；尚未寫入的新機台（ID=0）排在最後。
package gating

import (
	"github.com/Antigono00/First-minting-tools/model"
)

const (
	// MaxLevelCatLair / MaxLevelReactor 作為其他門檻的「滿級」判斷
	MaxLevelCatLair = 3
	MaxLevelReactor = 3
	// MaxLevelAmplifier 孵化器建造門檻需要的增幅器等級
	MaxLevelAmplifier = 5
)

// Evaluator 對單一玩家的機台集合做門檻判斷
type Evaluator struct {
	byType map[model.MachineType][]*model.Machine
}

// New 建立 Evaluator；machines 需依建造順序排列（model.State.SortMachines）。
func New(machines []*model.Machine) *Evaluator {
	e := &Evaluator{byType: make(map[model.MachineType][]*model.Machine, len(model.MachineTypes))}
	for _, m := range machines {
		e.byType[m.Type] = append(e.byType[m.Type], m)
	}
	return e
}

// FromState 以玩家快照建立 Evaluator
func FromState(s *model.State) *Evaluator {
	s.SortMachines()
	return New(s.Machines)
}

// Count 指定種類的數量
func (e *Evaluator) Count(t model.MachineType) int { return len(e.byType[t]) }

// Counts 各種類的數量
func (e *Evaluator) Counts() map[model.MachineType]int {
	out := make(map[model.MachineType]int, len(e.byType))
	for t, ms := range e.byType {
		out[t] = len(ms)
	}
	return out
}

// IsSecond 該機台是否為同種類的第二台
func (e *Evaluator) IsSecond(m *model.Machine) bool {
	list := e.byType[m.Type]
	return len(list) >= 2 && list[1] == m
}

// firstNAtLeast 同種類前 n 台都存在且等級 >= level
func (e *Evaluator) firstNAtLeast(t model.MachineType, n, level int) bool {
	list := e.byType[t]
	if len(list) < n {
		return false
	}
	for _, m := range list[:n] {
		if m.Level < level {
			return false
		}
	}
	return true
}

// allAtLeast 至少一台，且每一台等級 >= level
func (e *Evaluator) allAtLeast(t model.MachineType, level int) bool {
	return e.firstNAtLeast(t, len(e.byType[t]), level) && len(e.byType[t]) > 0
}

// CanBuildThirdReactor 第三台反應爐：已有孵化器與 fomoHit，且目前剛好兩台反應爐。
func (e *Evaluator) CanBuildThirdReactor() bool {
	return e.Count(model.Incubator) > 0 && e.Count(model.FomoHit) > 0 && e.Count(model.Reactor) == 2
}

// CanUpgradeAmplifier 增幅器升到 next 級的門檻。
//   - 4 級：第一台 catLair 與第一台 reactor 都 >= 3 級
//   - 5 級：前兩台 catLair 與前兩台 reactor 都 >= 3 級
//
// 其他等級沒有額外門檻（上限由成本表處理）。
func (e *Evaluator) CanUpgradeAmplifier(next int) bool {
	switch next {
	case 4:
		return e.firstNAtLeast(model.CatLair, 1, MaxLevelCatLair) && e.firstNAtLeast(model.Reactor, 1, MaxLevelReactor)
	case 5:
		return e.firstNAtLeast(model.CatLair, 2, MaxLevelCatLair) && e.firstNAtLeast(model.Reactor, 2, MaxLevelReactor)
	default:
		return true
	}
}

// CanBuildIncubator 所有 catLair 與 reactor 都滿級（各至少一台），且至少一台 5 級增幅器。
func (e *Evaluator) CanBuildIncubator() bool {
	if !e.allAtLeast(model.CatLair, MaxLevelCatLair) || !e.allAtLeast(model.Reactor, MaxLevelReactor) {
		return false
	}
	for _, m := range e.byType[model.Amplifier] {
		if m.Level >= MaxLevelAmplifier {
			return true
		}
	}
	return false
}

// CanBuildFomoHit 四種前置機台各至少一台。
func (e *Evaluator) CanBuildFomoHit() bool {
	for _, t := range []model.MachineType{model.CatLair, model.Reactor, model.Amplifier, model.Incubator} {
		if e.Count(t) == 0 {
			return false
		}
	}
	return true
}

// OnlineAmplifierLevel 第一台在線增幅器的等級；沒有在線增幅器回傳 0。
func (e *Evaluator) OnlineAmplifierLevel() int {
	for _, m := range e.byType[model.Amplifier] {
		if !m.Offline {
			return m.Level
		}
	}
	return 0
}

// RoomsUnlocked 解鎖的房間數（衍生值，不儲存）
func (e *Evaluator) RoomsUnlocked() int {
	return RoomsUnlocked(e.Counts())
}

// RoomsUnlocked 以數量推導：>=2 catLair、>=2 reactor、>=1 amplifier 時開放第 2 間。
func RoomsUnlocked(counts map[model.MachineType]int) int {
	if counts[model.CatLair] >= 2 && counts[model.Reactor] >= 2 && counts[model.Amplifier] >= 1 {
		return 2
	}
	return 1
}
