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

// Package stats 經濟統計：跨玩家的資源分佈、機台持有與房間解鎖情況。
//
// 只讀快照、不結算維護費，報表反映的是儲存層當下的數字。
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
)

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo" yaml:"Lo"`
	Hi float64 `json:"Hi" yaml:"Hi"`
}

// Summary 一組數值的分佈摘要
type Summary struct {
	N      int     `json:"N"      yaml:"N"`
	Total  float64 `json:"Total"  yaml:"Total"`
	Mean   float64 `json:"Mean"   yaml:"Mean"`
	MeanCI CI      `json:"MeanCI" yaml:"MeanCI"`
	Std    float64 `json:"Std"    yaml:"Std"`
	Min    float64 `json:"Min"    yaml:"Min"`
	Median float64 `json:"Median" yaml:"Median"`
	P90    float64 `json:"P90"    yaml:"P90"`
	Max    float64 `json:"Max"    yaml:"Max"`
}

// Summarize 計算平均、標準差、分位數與平均數 95% 信賴區間（Student t）。
// 少於兩筆時 Std 與 CI 寬度為 0。
func Summarize(xs []float64) Summary {
	n := len(xs)
	if n == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	s := Summary{
		N:      n,
		Total:  floatsSum(sorted),
		Mean:   stat.Mean(sorted, nil),
		Min:    sorted[0],
		Max:    sorted[n-1],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
	s.MeanCI = CI{Lo: s.Mean, Hi: s.Mean}
	if n >= 2 {
		s.Std = stat.StdDev(sorted, nil)
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}.Quantile(0.975)
		half := t * s.Std / math.Sqrt(float64(n))
		s.MeanCI = CI{Lo: s.Mean - half, Hi: s.Mean + half}
	}
	return s
}

func floatsSum(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum
}

// MachineStat 單一機台種類的持有情況
type MachineStat struct {
	Type     model.MachineType `json:"Type"     yaml:"Type"`
	Count    int               `json:"Count"    yaml:"Count"`
	Owners   int               `json:"Owners"   yaml:"Owners"`
	AvgLevel float64           `json:"AvgLevel" yaml:"AvgLevel"`
	MaxLevel int               `json:"MaxLevel" yaml:"MaxLevel"`
	Offline  int               `json:"Offline"  yaml:"Offline"`
}

// EconomyReport 經濟報表
type EconomyReport struct {
	Economy          string                      `json:"Economy"          yaml:"Economy"`
	Players          int                         `json:"Players"          yaml:"Players"`
	Resources        map[ledger.Resource]Summary `json:"Resources"        yaml:"Resources"`
	Machines         []MachineStat               `json:"Machines"         yaml:"Machines"`
	MachinesPerUser  Summary                     `json:"MachinesPerUser"  yaml:"MachinesPerUser"`
	RoomsUnlocked    map[int]int                 `json:"RoomsUnlocked"    yaml:"RoomsUnlocked"`
	Pets             int                         `json:"Pets"             yaml:"Pets"`
	ProvisionalMints int                         `json:"ProvisionalMints" yaml:"ProvisionalMints"`
}

// Collector 逐一加入玩家快照後產生報表
type Collector struct {
	economy  string
	players  int
	balances map[ledger.Resource][]float64
	perUser  []float64
	machines map[model.MachineType]*machineAcc
	rooms    map[int]int
	pets     int
	mints    int
}

type machineAcc struct {
	count, owners, levels, maxLevel, offline int
}

func NewCollector(economy string) *Collector {
	c := &Collector{
		economy:  economy,
		balances: make(map[ledger.Resource][]float64, len(ledger.All)),
		machines: make(map[model.MachineType]*machineAcc, len(model.MachineTypes)),
		rooms:    map[int]int{},
	}
	for _, t := range model.MachineTypes {
		c.machines[t] = &machineAcc{}
	}
	return c
}

// Add 加入一位玩家
func (c *Collector) Add(st *model.State, roomsUnlocked int) {
	if st == nil {
		return
	}
	c.players++
	for _, r := range ledger.All {
		c.balances[r] = append(c.balances[r], st.Player.Resources.Get(r))
	}
	c.perUser = append(c.perUser, float64(len(st.Machines)))
	owned := map[model.MachineType]bool{}
	for _, m := range st.Machines {
		acc, ok := c.machines[m.Type]
		if !ok {
			continue
		}
		acc.count++
		acc.levels += m.Level
		acc.maxLevel = max(acc.maxLevel, m.Level)
		if m.Offline {
			acc.offline++
		}
		if m.ProvisionalMint {
			c.mints++
		}
		owned[m.Type] = true
	}
	for t := range owned {
		c.machines[t].owners++
	}
	c.rooms[roomsUnlocked]++
	c.pets += len(st.Pets)
}

// Report 產生報表；可在 Add 之間重複呼叫。
func (c *Collector) Report() *EconomyReport {
	r := &EconomyReport{
		Economy:          c.economy,
		Players:          c.players,
		Resources:        make(map[ledger.Resource]Summary, len(ledger.All)),
		MachinesPerUser:  Summarize(c.perUser),
		RoomsUnlocked:    make(map[int]int, len(c.rooms)),
		Pets:             c.pets,
		ProvisionalMints: c.mints,
	}
	for _, res := range ledger.All {
		r.Resources[res] = Summarize(c.balances[res])
	}
	for _, t := range model.MachineTypes {
		acc := c.machines[t]
		ms := MachineStat{Type: t, Count: acc.count, Owners: acc.owners, MaxLevel: acc.maxLevel, Offline: acc.offline}
		if acc.count > 0 {
			ms.AvgLevel = float64(acc.levels) / float64(acc.count)
		}
		r.Machines = append(r.Machines, ms)
	}
	for k, v := range c.rooms {
		r.RoomsUnlocked[k] = v
	}
	return r
}
