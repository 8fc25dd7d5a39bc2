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

// Package model 定義經濟引擎的實體：Player、Machine、Pet 與玩家快照 State。
//
// 每個實體都是固定欄位的 struct，所有欄位都有明確的預設值；
// 儲存層保證讀出來的紀錄是完整的，核心邏輯不需要檢查欄位是否存在。
package model

import (
	"sort"

	"github.com/Antigono00/First-minting-tools/ledger"
)

// MachineType 機台種類
type MachineType string

const (
	CatLair   MachineType = "catLair"
	Reactor   MachineType = "reactor"
	Amplifier MachineType = "amplifier"
	Incubator MachineType = "incubator"
	FomoHit   MachineType = "fomoHit"
)

// MachineTypes 固定順序
var MachineTypes = []MachineType{CatLair, Reactor, Amplifier, Incubator, FomoHit}

// ParseMachineType 解析機台種類字串
func ParseMachineType(s string) (MachineType, bool) {
	for _, t := range MachineTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Player 玩家
type Player struct {
	ID             string          `json:"id"`
	FirstName      string          `json:"firstName"`
	Resources      ledger.Balances `json:"resources"`
	SeenRoomUnlock bool            `json:"seenRoomUnlock"`
}

// Machine 機台實例。ID 為 0 代表尚未寫入儲存層（本次動作新建）。
type Machine struct {
	ID              int64       `json:"id"`
	PlayerID        string      `json:"-"`
	Type            MachineType `json:"type"`
	Level           int         `json:"level"`
	X               int         `json:"x"`
	Y               int         `json:"y"`
	Room            int         `json:"room"`
	Offline         bool        `json:"isOffline"`
	LastActivated   int64       `json:"lastActivated"`
	NextUpkeepDue   int64       `json:"nextCostTime"`
	ProvisionalMint bool        `json:"provisionalMint"`
}

// Pet 寵物。ParentMachine 只是參考資訊，不會產生連動。
type Pet struct {
	ID            int64  `json:"id"`
	PlayerID      string `json:"-"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
	Room          int    `json:"room"`
	Type          string `json:"type"`
	ParentMachine *int64 `json:"parentMachine"`
}

// 外部交易請求的種類
const (
	IntentEnergy = "energy"
	IntentEgg    = "egg"
	IntentMint   = "mint"
)

// Intent 已發出交易清單、等待玩家錢包送出的請求。
//
// Ref 是隨清單一起交給前端的參考碼，前端把它放進交易 message；
// 入帳時只有 message 等於 Ref 的已提交交易才算數。
type Intent struct {
	Ref       string `json:"ref"`
	Kind      string `json:"kind"`
	Account   string `json:"account"`
	Payment   string `json:"payment,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// State 單一玩家的完整快照：一次動作只會在一份 State 上讀取/修改。
//
// Machines 依 ID 遞增排序（建造順序），新建的機台（ID=0）附加在最後。
// Intents 依建立時間排序。
type State struct {
	Player   Player
	Machines []*Machine
	Pets     []*Pet
	Intents  []*Intent
}

// Machine 依 ID 取得機台
func (s *State) Machine(id int64) (*Machine, bool) {
	for _, m := range s.Machines {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Pet 依 ID 取得寵物
func (s *State) Pet(id int64) (*Pet, bool) {
	for _, p := range s.Pets {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// AddIntent 加入一筆等待中的請求；同種類超過 limit 筆時捨棄最舊的。
func (s *State) AddIntent(in *Intent, limit int) {
	s.Intents = append(s.Intents, in)
	if limit <= 0 {
		return
	}
	n := 0
	for i := len(s.Intents) - 1; i >= 0; i-- {
		if s.Intents[i].Kind != in.Kind {
			continue
		}
		n++
		if n > limit {
			s.Intents = append(s.Intents[:i], s.Intents[i+1:]...)
		}
	}
}

// TakeIntent 取出並移除指定種類、參考碼的請求。
func (s *State) TakeIntent(kind, ref string) (*Intent, bool) {
	for i, in := range s.Intents {
		if in.Kind == kind && in.Ref == ref {
			s.Intents = append(s.Intents[:i], s.Intents[i+1:]...)
			return in, true
		}
	}
	return nil, false
}

// HasIntents 是否有指定種類的等待中請求
func (s *State) HasIntents(kind string) bool {
	for _, in := range s.Intents {
		if in.Kind == kind {
			return true
		}
	}
	return false
}

// OfType 回傳指定種類的機台，依建造順序。
func (s *State) OfType(t MachineType) []*Machine {
	out := make([]*Machine, 0, 2)
	for _, m := range s.Machines {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// Counts 各種類的數量
func (s *State) Counts() map[MachineType]int {
	c := make(map[MachineType]int, len(MachineTypes))
	for _, m := range s.Machines {
		c[m.Type]++
	}
	return c
}

// SortMachines 依建造順序排序；尚未寫入的機台排在最後。
func (s *State) SortMachines() {
	sort.SliceStable(s.Machines, func(i, j int) bool {
		a, b := s.Machines[i].ID, s.Machines[j].ID
		if a == 0 || b == 0 {
			return a != 0 && b == 0
		}
		return a < b
	})
}

// Clone 深拷貝，供 memstore 與測試使用。
func (s *State) Clone() *State {
	out := &State{Player: s.Player}
	out.Machines = make([]*Machine, len(s.Machines))
	for i, m := range s.Machines {
		mc := *m
		out.Machines[i] = &mc
	}
	out.Pets = make([]*Pet, len(s.Pets))
	for i, p := range s.Pets {
		pc := *p
		if p.ParentMachine != nil {
			v := *p.ParentMachine
			pc.ParentMachine = &v
		}
		out.Pets[i] = &pc
	}
	if len(s.Intents) > 0 {
		out.Intents = make([]*Intent, len(s.Intents))
		for i, in := range s.Intents {
			ic := *in
			out.Intents[i] = &ic
		}
	}
	return out
}
