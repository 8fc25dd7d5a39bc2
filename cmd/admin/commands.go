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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cvxlab "github.com/Antigono00/First-minting-tools"
	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/perf"
	"github.com/Antigono00/First-minting-tools/recorder"
	"github.com/Antigono00/First-minting-tools/stats"
	"github.com/Antigono00/First-minting-tools/store"
	"github.com/Antigono00/First-minting-tools/upkeep"
)

func newMigrateCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.OpenSQLite(cmd.Context(), o.db)
			if err != nil {
				return err
			}
			defer st.Close()
			okColor.Fprintf(o.out, "schema up to date (version %d): %s\n", store.SchemaVersion(), o.db)
			return nil
		},
	}
}

func newPlayerCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "player <id>",
		Short: "Show a player's balances and machines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lab, closeFn, err := o.openLab(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			st, rooms, err := lab.Snapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			headColor.Fprintf(o.out, "player %s (%s), rooms unlocked: %d\n", st.Player.ID, st.Player.FirstName, rooms)

			bal := tablewriter.NewTable(o.out, tablewriter.WithHeader([]string{"Resource", "Amount"}))
			for _, r := range ledger.All {
				bal.Append([]string{string(r), humanize.FormatFloat("#,###.##", st.Player.Resources.Get(r))})
			}
			bal.Render()

			ms := tablewriter.NewTable(o.out, tablewriter.WithHeader([]string{"ID", "Type", "Level", "Room", "X", "Y", "Offline", "Last Activated"}))
			for _, m := range st.Machines {
				last := "never"
				if m.LastActivated > 0 {
					last = humanize.Time(time.UnixMilli(m.LastActivated))
				}
				ms.Append([]string{
					strconv.FormatInt(m.ID, 10), string(m.Type), strconv.Itoa(m.Level), strconv.Itoa(m.Room),
					strconv.Itoa(m.X), strconv.Itoa(m.Y), strconv.FormatBool(m.Offline), last,
				})
			}
			ms.Render()
			return nil
		},
	}
}

func newStatsCmd(o *rootOpts) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Economy statistics across all players",
		RunE: func(cmd *cobra.Command, args []string) error {
			lab, closeFn, err := o.openLab(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			rep, err := collect(cmd.Context(), lab)
			if err != nil {
				return err
			}
			switch format {
			case "table":
				rep.StdOut(o.out)
				return nil
			case "json":
				return rep.WriteWith(o.out, &stats.JsonReportRender{})
			case "yaml":
				return rep.WriteWith(o.out, &stats.YAMLReportRender{})
			default:
				return errs.Warnf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table|json|yaml")
	return cmd
}

// collect 逐一讀取玩家快照（不結算維護費）
func collect(ctx context.Context, lab *cvxlab.Lab) (*stats.EconomyReport, error) {
	ids, err := lab.Store().PlayerIDs(ctx)
	if err != nil {
		return nil, err
	}
	c := stats.NewCollector(lab.Setting().EconomyName)
	for _, id := range ids {
		st, rooms, err := lab.Snapshot(ctx, id)
		if err != nil {
			return nil, err
		}
		c.Add(st, rooms)
	}
	return c.Report(), nil
}

type sweepSummary struct {
	Players int
	Changed int
	Charged float64
	Offline int
	Failed  int
}

func newSweepCmd(o *rootOpts) *cobra.Command {
	var workers int
	var quiet bool
	var profile string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile amplifier upkeep for every player",
		RunE: func(cmd *cobra.Command, args []string) error {
			lab, closeFn, err := o.openLab(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			ids, err := lab.Store().PlayerIDs(cmd.Context())
			if err != nil {
				return err
			}
			bar := pb.New(len(ids))
			if quiet {
				bar.SetWriter(io.Discard)
			}
			bar.Start()
			var sum sweepSummary
			out, err := perf.Run(perf.DefaultDir, profile, func() (err error) {
				sum, err = sweepAll(cmd.Context(), lab, ids, workers, bar.Increment)
				return err
			})
			used := time.Since(bar.StartTime())
			bar.Finish()
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(o.out, "profile written: %s\n", out)
			}
			okColor.Fprintf(o.out, "swept %s players in %s\n", humanize.Comma(int64(sum.Players)), used.Round(time.Millisecond))
			fmt.Fprintf(o.out, "changed: %s, energy charged: %s, went offline: %d\n",
				humanize.Comma(int64(sum.Changed)), humanize.Commaf(sum.Charged), sum.Offline)
			if sum.Failed > 0 {
				warnColor.Fprintf(o.out, "failed: %d (see log)\n", sum.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent players")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "hide progress bar")
	cmd.Flags().StringVar(&profile, "pprof", "", "profile the sweep: cpu|heap|allocs")
	return cmd
}

// sweepAll 以 workers 個 goroutine 結算所有玩家；單一玩家失敗只計數，不中斷。
// ctx 取消時停止並回傳錯誤。
func sweepAll(ctx context.Context, lab *cvxlab.Lab, ids []string, workers int, tick func() *pb.ProgressBar) (sweepSummary, error) {
	var mu sync.Mutex
	sum := sweepSummary{Players: len(ids)}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep, err := lab.Sweep(gctx, id)
			if tick != nil {
				tick()
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sum.Failed++
				return nil
			}
			if rep.Changed {
				sum.Changed++
			}
			sum.Charged += rep.Charged
			for _, ev := range rep.Events {
				if ev.Kind == upkeep.EventOffline {
					sum.Offline++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sweepSummary{}, err
	}
	return sum, nil
}

func newGrantCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <id> <resource> <amount>",
		Short: "Credit (or debit with a negative amount) a player's resource",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, ok := ledger.Parse(args[1])
			if !ok {
				return errs.Warnf("unknown resource %q (tcorvax|catNips|energy|eggs)", args[1])
			}
			amount, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return errs.Warnf("invalid amount %q", args[2])
			}
			lab, closeFn, err := o.openLab(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			bal, err := lab.Grant(cmd.Context(), args[0], res, amount)
			if err != nil {
				return err
			}
			okColor.Fprintf(o.out, "%s %s: %s\n", args[0], res, humanize.FormatFloat("#,###.##", bal.Get(res)))
			return nil
		},
	}
}

func newJournalCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "journal <dir>",
		Short: "Summarize the action journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := filepath.Glob(filepath.Join(args[0], "*.jsonl.zst"))
			if err != nil {
				return err
			}
			var size int64
			for _, f := range files {
				if fi, err := os.Stat(f); err == nil {
					size += fi.Size()
				}
			}
			entries, err := recorder.ReadDir(args[0])
			if err != nil {
				return err
			}
			t := recorder.NewTally()
			for _, e := range entries {
				t.Add(e)
			}
			headColor.Fprintf(o.out, "%d files, %s compressed\n", len(files), humanize.Bytes(uint64(size)))
			stats.TallyTable(o.out, t)
			return nil
		},
	}
}
