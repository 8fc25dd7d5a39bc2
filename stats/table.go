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

package stats

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/recorder"
)

var lang language.Tag = language.English

// StdOut 文字報表：摘要框 + 資源分佈表 + 機台表
func (r *EconomyReport) StdOut(w io.Writer) {
	keys, msg := r.fmtBasic()
	fmt.Fprint(w, fmtTable(r.Economy, keys, msg))
	r.resourceTable(w)
	r.machineTable(w)
}

func (r *EconomyReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	rooms := make([]int, 0, len(r.RoomsUnlocked))
	for k := range r.RoomsUnlocked {
		rooms = append(rooms, k)
	}
	sort.Ints(rooms)
	var parts []string
	for _, k := range rooms {
		parts = append(parts, p.Sprintf("%d room(s): %d", k, r.RoomsUnlocked[k]))
	}
	basic := map[string]string{
		"Players":           p.Sprintf("%d", r.Players),
		"Machines / Player": p.Sprintf("%.2f (max %.0f)", r.MachinesPerUser.Mean, r.MachinesPerUser.Max),
		"Rooms Unlocked":    strings.Join(parts, ", "),
		"Pets":              p.Sprintf("%d", r.Pets),
		"Pending Mints":     p.Sprintf("%d", r.ProvisionalMints),
	}
	keys := []string{"Players", "Machines / Player", "Rooms Unlocked", "Pets", "Pending Mints"}
	return keys, basic
}

func (r *EconomyReport) resourceTable(w io.Writer) {
	p := message.NewPrinter(lang)
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Resource", "Total", "Mean", "95% CI", "Std", "Median", "P90", "Max"}),
	)
	for _, res := range ledger.All {
		s := r.Resources[res]
		table.Append([]string{
			string(res),
			p.Sprintf("%.2f", s.Total),
			p.Sprintf("%.2f", s.Mean),
			p.Sprintf("[%.2f, %.2f]", s.MeanCI.Lo, s.MeanCI.Hi),
			p.Sprintf("%.2f", s.Std),
			p.Sprintf("%.2f", s.Median),
			p.Sprintf("%.2f", s.P90),
			p.Sprintf("%.2f", s.Max),
		})
	}
	table.Render()
}

func (r *EconomyReport) machineTable(w io.Writer) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Machine", "Count", "Owners", "Avg Level", "Max Level", "Offline"}),
	)
	for _, m := range r.Machines {
		table.Append([]string{
			string(m.Type),
			fmt.Sprintf("%d", m.Count),
			fmt.Sprintf("%d", m.Owners),
			fmt.Sprintf("%.2f", m.AvgLevel),
			fmt.Sprintf("%d", m.MaxLevel),
			fmt.Sprintf("%d", m.Offline),
		})
	}
	table.Render()
}

// TallyTable 紀錄彙總：每個動作的成功/拒絕次數，以及資源流量
func TallyTable(w io.Writer, t *recorder.Tally) {
	p := message.NewPrinter(lang)
	keys := []string{"Entries", "Players", "Upkeep Charged", "Went Offline", "Degraded Lookups"}
	msg := map[string]string{
		"Entries":          p.Sprintf("%d", t.Entries),
		"Players":          p.Sprintf("%d", len(t.Players)),
		"Upkeep Charged":   p.Sprintf("%.2f", t.Upkeep),
		"Went Offline":     p.Sprintf("%d", t.Offline),
		"Degraded Lookups": p.Sprintf("%d", t.Degraded),
	}
	fmt.Fprint(w, fmtTable("Journal", keys, msg))

	actions := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Action", "OK", "Rejected", "Reject %"}))
	for _, name := range t.ActionNames() {
		ok, rej := t.Actions[name], t.Rejected[name]
		rate := 0.0
		if ok+rej > 0 {
			rate = 100 * float64(rej) / float64(ok+rej)
		}
		actions.Append([]string{name, p.Sprintf("%d", ok), p.Sprintf("%d", rej), p.Sprintf("%.1f", rate)})
	}
	actions.Render()

	flow := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Resource", "Spent", "Earned", "Net"}))
	for _, res := range ledger.All {
		spent, earned := t.Spent.Get(res), t.Earned.Get(res)
		flow.Append([]string{string(res), p.Sprintf("%.2f", spent), p.Sprintf("%.2f", earned), p.Sprintf("%.2f", earned-spent)})
	}
	flow.Render()
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := runewidth.StringWidth(title)
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
