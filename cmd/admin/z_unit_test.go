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
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	cvxlab "github.com/Antigono00/First-minting-tools"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/spec"
	"github.com/Antigono00/First-minting-tools/store"
)

func runAdmin(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestMigrateGrantPlayerStats(t *testing.T) {
	db := filepath.Join(t.TempDir(), "admin.db")

	out, err := runAdmin(t, "migrate", "--db", db)
	if err != nil || !strings.Contains(out, "schema up to date") {
		t.Fatalf("migrate: %v %q", err, out)
	}

	out, err = runAdmin(t, "grant", "42", "tcorvax", "1500", "--db", db)
	if err != nil || !strings.Contains(out, "1,500") {
		t.Fatalf("grant: %v %q", err, out)
	}
	if _, err := runAdmin(t, "grant", "42", "gold", "1", "--db", db); err == nil {
		t.Fatalf("unknown resource should fail")
	}

	out, err = runAdmin(t, "player", "42", "--db", db)
	if err != nil || !strings.Contains(out, "tcorvax") {
		t.Fatalf("player: %v %q", err, out)
	}

	out, err = runAdmin(t, "stats", "--format", "json", "--db", db)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var rep map[string]any
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("stats json: %v %q", err, out)
	}
	if rep["Players"].(float64) != 1 {
		t.Fatalf("stats players = %v", rep["Players"])
	}
	if _, err := runAdmin(t, "stats", "--format", "xml", "--db", db); err == nil {
		t.Fatalf("unknown format should fail")
	}
}

func TestSweepAllChargesUpkeep(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "sweep.db")
	st, err := store.OpenSQLite(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	now := int64(10 * 24 * 3600 * 1000)
	lab, err := cvxlab.New(spec.Default(), st, cvxlab.WithClock(func() int64 { return now }))
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"1", "2", "3"} {
		if _, err := st.EnsurePlayer(ctx, id, "p"+id); err != nil {
			t.Fatal(err)
		}
	}
	// 玩家 1：一台已到期的增幅器，能量足夠付一次
	err = st.Update(ctx, "1", func(s *model.State, _ store.Tx) error {
		s.Player.Resources = ledger.Balances{Energy: 2}
		s.Machines = append(s.Machines, &model.Machine{Type: model.Amplifier, Level: 1, NextUpkeepDue: now - 1})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	sum, err := sweepAll(ctx, lab, []string{"1", "2", "3"}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Players != 3 || sum.Failed != 0 || sum.Changed != 1 || sum.Charged != 2 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestSweepAllStopsOnCanceledContext(t *testing.T) {
	lab, err := cvxlab.New(spec.Default(), store.NewMemStore())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sweepAll(ctx, lab, []string{"1", "2"}, 1, nil); err == nil {
		t.Fatalf("expected canceled error")
	}
}

func TestJournalEmptyDir(t *testing.T) {
	out, err := runAdmin(t, "journal", t.TempDir())
	if err != nil || !strings.Contains(out, "0 files") {
		t.Fatalf("journal: %v %q", err, out)
	}
}
