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

// 管理工具：migration、玩家查詢、經濟統計、批次結算維護費、發放資源、紀錄彙總。
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cvxlab "github.com/Antigono00/First-minting-tools"
	"github.com/Antigono00/First-minting-tools/spec"
	"github.com/Antigono00/First-minting-tools/store"
)

type rootOpts struct {
	db      string
	economy string
	out     io.Writer
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	headColor = color.New(color.FgCyan, color.Bold)
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	o := &rootOpts{out: out}
	root := &cobra.Command{
		Use:           "admin",
		Short:         "CVX Lab economy admin tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&o.db, "db", "data/cvxlab.db", "sqlite database path")
	root.PersistentFlags().StringVar(&o.economy, "economy", "", "economy setting file; empty = built-in")

	root.AddCommand(
		newMigrateCmd(o),
		newPlayerCmd(o),
		newStatsCmd(o),
		newSweepCmd(o),
		newGrantCmd(o),
		newJournalCmd(o),
	)
	return root
}

// openLab 開啟資料庫（含 migration）並建立 Lab；回傳的 closer 負責關閉資料庫。
func (o *rootOpts) openLab(ctx context.Context) (*cvxlab.Lab, func(), error) {
	es, err := spec.Load(o.economy)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.OpenSQLite(ctx, o.db)
	if err != nil {
		return nil, nil, err
	}
	lab, err := cvxlab.New(es, st)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return lab, func() {
		lab.Close()
		_ = st.Close()
	}, nil
}
