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

// Package ledger 提供玩家四種貨幣的餘額帳本（ResourceLedger）。
//
// 帳本本身只是值型別（Balances），不碰儲存層：
// 動作在記憶體快照上完成驗證與扣款，成功後才由 store 一次寫回。
// 因此「先驗證、後寫入」只要保證 Debit 在檢查全部通過之前不改任何欄位即可。
package ledger

import (
	"fmt"
	"sort"

	"github.com/Antigono00/First-minting-tools/errs"
)

// Resource 貨幣名稱，同時也是資料庫 resources.resource_name 的值。
type Resource string

const (
	TCorvax Resource = "tcorvax"
	CatNips Resource = "catNips"
	Energy  Resource = "energy"
	Eggs    Resource = "eggs"
)

// All 固定順序，用於序列化/列舉。
var All = []Resource{TCorvax, CatNips, Energy, Eggs}

// Parse 解析貨幣名稱。
func Parse(s string) (Resource, bool) {
	for _, r := range All {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Balances 玩家餘額。零值即「四種資源皆為 0」，對應到尚未實體化的資料列。
type Balances struct {
	TCorvax float64 `json:"tcorvax"`
	CatNips float64 `json:"catNips"`
	Energy  float64 `json:"energy"`
	Eggs    float64 `json:"eggs"`
}

func (b *Balances) ptr(r Resource) *float64 {
	switch r {
	case TCorvax:
		return &b.TCorvax
	case CatNips:
		return &b.CatNips
	case Energy:
		return &b.Energy
	case Eggs:
		return &b.Eggs
	default:
		return nil
	}
}

// Get 讀取餘額；未知貨幣回傳 0。
func (b Balances) Get(r Resource) float64 {
	if p := (&b).ptr(r); p != nil {
		return *p
	}
	return 0
}

// Set 直接設定餘額，負值拒絕。
func (b *Balances) Set(r Resource, v float64) error {
	p := b.ptr(r)
	if p == nil {
		return errs.Validation(fmt.Sprintf("unknown resource: %s", r))
	}
	if v < 0 {
		return errs.Precondition(fmt.Sprintf("%s balance can not be negative", r))
	}
	*p = v
	return nil
}

// Add 增減餘額；結果為負時拒絕且不改動。
func (b *Balances) Add(r Resource, delta float64) error {
	p := b.ptr(r)
	if p == nil {
		return errs.Validation(fmt.Sprintf("unknown resource: %s", r))
	}
	if *p+delta < 0 {
		return errs.Precondition(fmt.Sprintf("not enough %s", r))
	}
	*p += delta
	return nil
}

// CanAfford 檢查每一項成本是否都足夠。
func (b Balances) CanAfford(c Cost) bool {
	for r, v := range c {
		if b.Get(r) < v {
			return false
		}
	}
	return true
}

// Debit 一次扣除整筆成本。任何一項不足則整筆拒絕，餘額不變。
func (b *Balances) Debit(c Cost) error {
	if !b.CanAfford(c) {
		return errs.Precondition("Not enough resources")
	}
	for r, v := range c {
		*b.ptr(r) -= v
	}
	return nil
}

// Credit 一次加上整筆獎勵；負值項目忽略。
func (b *Balances) Credit(c Cost) {
	for r, v := range c {
		if p := b.ptr(r); p != nil && v > 0 {
			*p += v
		}
	}
}

// NonNegative 所有餘額皆 >= 0。
func (b Balances) NonNegative() bool {
	return b.TCorvax >= 0 && b.CatNips >= 0 && b.Energy >= 0 && b.Eggs >= 0
}

// Cost 一筆成本或獎勵；缺少的貨幣視為 0。
type Cost map[Resource]float64

// Scale 回傳乘上倍數後的新成本。
func (c Cost) Scale(k float64) Cost {
	out := make(Cost, len(c))
	for r, v := range c {
		out[r] = v * k
	}
	return out
}

// Get 讀取單項金額。
func (c Cost) Get(r Resource) float64 { return c[r] }

// String 以固定順序輸出，方便 log/journal 比對。
func (c Cost) String() string {
	keys := make([]string, 0, len(c))
	for r := range c {
		keys = append(keys, string(r))
	}
	sort.Strings(keys)
	s := "{"
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s:%g", k, c[Resource(k)])
	}
	return s + "}"
}
