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

package activation

import (
	"errors"
	"testing"

	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/external"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/spec"
)

const hour = int64(3600000)

func newEngine() *Engine { return New(spec.Default()) }

func TestCatLairReward(t *testing.T) {
	e := newEngine()
	for level, want := range map[int]float64{1: 5, 2: 6, 3: 7} {
		m := &model.Machine{ID: 1, Type: model.CatLair, Level: level}
		var bal ledger.Balances
		out, err := e.Activate(m, &bal, Inputs{NowMs: 10})
		if err != nil {
			t.Fatal(err)
		}
		if bal.CatNips != want || out.Reward[ledger.CatNips] != want {
			t.Fatalf("level %d: catNips=%v want=%v", level, bal.CatNips, want)
		}
		if m.LastActivated != 10 || !out.FirstActivation {
			t.Fatalf("lastActivated=%d", m.LastActivated)
		}
	}
}

func TestCooldownRejectsWithRemaining(t *testing.T) {
	e := newEngine()
	m := &model.Machine{ID: 1, Type: model.CatLair, Level: 1}
	var bal ledger.Balances
	start := int64(1_000_000)
	if _, err := e.Activate(m, &bal, Inputs{NowMs: start}); err != nil {
		t.Fatal(err)
	}
	_, err := e.Activate(m, &bal, Inputs{NowMs: start + 1000})
	if !errs.Is(err, errs.KindPrecondition) {
		t.Fatalf("expected cooldown rejection, got %v", err)
	}
	ee, _ := errs.AsErr(err)
	if ee.RemainingMs <= 0 || ee.RemainingMs > hour || ee.RemainingMs != hour-1000 {
		t.Fatalf("remaining=%d", ee.RemainingMs)
	}
	if bal.CatNips != 5 || m.LastActivated != start {
		t.Fatalf("state changed on rejected activation")
	}
	if _, err := e.Activate(m, &bal, Inputs{NowMs: start + hour}); err != nil {
		t.Fatalf("cooldown elapsed: %v", err)
	}
}

func TestReactorNeedsCatNips(t *testing.T) {
	e := newEngine()
	m := &model.Machine{ID: 2, Type: model.Reactor, Level: 1, LastActivated: 5}
	bal := ledger.Balances{CatNips: 2}
	_, err := e.Activate(m, &bal, Inputs{NowMs: 5 + hour})
	if !errs.Is(err, errs.KindPrecondition) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if m.LastActivated != 5 || bal.CatNips != 2 {
		t.Fatalf("state changed: %+v %+v", m, bal)
	}
}

func TestReactorRewardWithAmplifier(t *testing.T) {
	e := newEngine()
	m := &model.Machine{ID: 2, Type: model.Reactor, Level: 3}
	bal := ledger.Balances{CatNips: 10}
	out, err := e.Activate(m, &bal, Inputs{NowMs: 1, AmplifierLevel: 2})
	if err != nil {
		t.Fatal(err)
	}
	if bal.CatNips != 7 || bal.TCorvax != 3.0 || bal.Energy != 2 {
		t.Fatalf("balances=%+v", bal)
	}
	if out.Consumed[ledger.CatNips] != 3 {
		t.Fatalf("consumed=%v", out.Consumed)
	}

	m2 := &model.Machine{ID: 3, Type: model.Reactor, Level: 2}
	bal = ledger.Balances{CatNips: 3}
	if _, err := e.Activate(m2, &bal, Inputs{NowMs: 1}); err != nil {
		t.Fatal(err)
	}
	if bal.TCorvax != 1.5 || bal.CatNips != 0 {
		t.Fatalf("balances=%+v", bal)
	}
}

func TestAmplifierIsStatusQuery(t *testing.T) {
	e := newEngine()
	m := &model.Machine{ID: 4, Type: model.Amplifier, Level: 2, Offline: true, LastActivated: 100}
	bal := ledger.Balances{Energy: 9}
	out, err := e.Activate(m, &bal, Inputs{NowMs: 101})
	if err != nil {
		t.Fatalf("amplifier has no cooldown: %v", err)
	}
	if !out.StatusOnly || out.Online {
		t.Fatalf("outcome=%+v", out)
	}
	if m.LastActivated != 100 || bal.Energy != 9 {
		t.Fatalf("amplifier query mutated state")
	}
}

func TestIncubatorReward(t *testing.T) {
	e := newEngine()
	m := &model.Machine{ID: 5, Type: model.Incubator, Level: 1, Offline: true}
	var bal ledger.Balances
	out, err := e.Activate(m, &bal, Inputs{NowMs: 7, Staked: external.Lookup{Value: 2500}})
	if err != nil {
		t.Fatal(err)
	}
	// base=min(10,25)=10, bonus=0 (level 1), eggs=floor(2500/500)=5
	if bal.TCorvax != 10 || bal.Eggs != 5 {
		t.Fatalf("balances=%+v", bal)
	}
	if m.Offline || !out.FirstActivation {
		t.Fatalf("first activation should bring the incubator online")
	}

	m.Level = 2
	bal = ledger.Balances{}
	if _, err := e.Activate(m, &bal, Inputs{NowMs: 7 + hour, Staked: external.Lookup{Value: 2500}}); err != nil {
		t.Fatal(err)
	}
	// bonus=floor(2500/1000)=2
	if bal.TCorvax != 12 || bal.Eggs != 5 {
		t.Fatalf("balances=%+v", bal)
	}
}

func TestIncubatorDegradedStillConsumesCooldown(t *testing.T) {
	e := newEngine()
	m := &model.Machine{ID: 5, Type: model.Incubator, Level: 2, LastActivated: 1}
	var bal ledger.Balances
	lookup := external.Lookup{Degraded: true, Err: errors.New("timeout")}
	out, err := e.Activate(m, &bal, Inputs{NowMs: 1 + hour, Staked: lookup})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Degraded || bal.TCorvax != 0 || bal.Eggs != 0 {
		t.Fatalf("outcome=%+v balances=%+v", out, bal)
	}
	if m.LastActivated != 1+hour {
		t.Fatalf("cooldown should be consumed")
	}
}

func TestFomoHitFirstAndLater(t *testing.T) {
	e := newEngine()
	m := &model.Machine{ID: 6, Type: model.FomoHit, Level: 1}
	if e.Requires(m) != NeedMintRequest {
		t.Fatalf("first fomoHit activation needs a mint request")
	}
	var bal ledger.Balances
	if _, err := e.Activate(m, &bal, Inputs{NowMs: 1}); !errs.Is(err, errs.KindValidation) {
		t.Fatalf("missing account should be rejected: %v", err)
	}
	if m.LastActivated != 0 {
		t.Fatalf("rejected activation mutated machine")
	}

	req := &external.MintRequest{ID: "mint-1", Account: "account_rdx1a"}
	out, err := e.Activate(m, &bal, Inputs{NowMs: 1, AccountAddress: "account_rdx1a", Mint: req})
	if err != nil {
		t.Fatal(err)
	}
	if out.Mint != req || !m.ProvisionalMint || bal.TCorvax != 0 {
		t.Fatalf("outcome=%+v machine=%+v", out, m)
	}
	if e.Requires(m) != NeedNothing {
		t.Fatalf("later activations need no external call")
	}
	if _, err := e.Activate(m, &bal, Inputs{NowMs: 1 + hour}); err != nil {
		t.Fatal(err)
	}
	if bal.TCorvax != 5 {
		t.Fatalf("tcorvax=%v want=5", bal.TCorvax)
	}
}
