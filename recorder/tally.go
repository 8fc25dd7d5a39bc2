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

package recorder

import (
	"sort"

	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/upkeep"
)

// Tally 紀錄彙總：各動作的成功/拒絕次數與資源流量
type Tally struct {
	Entries  int
	Players  map[string]struct{}
	Actions  map[string]int
	Rejected map[string]int
	Spent    ledger.Balances
	Earned   ledger.Balances
	Upkeep   float64
	Offline  int
	Degraded int
}

// NewTally 建立空的彙總
func NewTally() *Tally {
	return &Tally{
		Players:  map[string]struct{}{},
		Actions:  map[string]int{},
		Rejected: map[string]int{},
	}
}

// Add 累加一筆紀錄
func (t *Tally) Add(e Entry) {
	t.Entries++
	t.Players[e.Player] = struct{}{}
	if e.ErrKind != "" {
		t.Rejected[e.Action]++
		return
	}
	t.Actions[e.Action]++
	t.Spent.Credit(e.Cost)
	t.Earned.Credit(e.Reward)
	for _, ev := range e.Upkeep {
		switch ev.Kind {
		case upkeep.EventCharged, upkeep.EventRecovered:
			t.Upkeep += ev.Amount
		case upkeep.EventOffline:
			t.Offline++
		}
	}
	if e.Degraded {
		t.Degraded++
	}
}

// Merge 合併另一份彙總
func (t *Tally) Merge(o *Tally) {
	t.Entries += o.Entries
	for p := range o.Players {
		t.Players[p] = struct{}{}
	}
	for k, v := range o.Actions {
		t.Actions[k] += v
	}
	for k, v := range o.Rejected {
		t.Rejected[k] += v
	}
	for _, r := range ledger.All {
		_ = t.Spent.Add(r, o.Spent.Get(r))
		_ = t.Earned.Add(r, o.Earned.Get(r))
	}
	t.Upkeep += o.Upkeep
	t.Offline += o.Offline
	t.Degraded += o.Degraded
}

// ActionNames 出現過的動作名稱（排序）
func (t *Tally) ActionNames() []string {
	seen := map[string]struct{}{}
	for k := range t.Actions {
		seen[k] = struct{}{}
	}
	for k := range t.Rejected {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
