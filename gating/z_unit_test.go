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

package gating

import (
	"testing"

	"github.com/Antigono00/First-minting-tools/model"
)

type mspec struct {
	t     model.MachineType
	level int
}

func build(specs ...mspec) []*model.Machine {
	out := make([]*model.Machine, 0, len(specs))
	for i, s := range specs {
		out = append(out, &model.Machine{ID: int64(i + 1), Type: s.t, Level: s.level})
	}
	return out
}

func TestThirdReactorGate(t *testing.T) {
	e := New(build(
		mspec{model.Reactor, 1}, mspec{model.Reactor, 1},
	))
	if e.CanBuildThirdReactor() {
		t.Fatalf("third reactor should require incubator and fomoHit")
	}
	e = New(build(
		mspec{model.Reactor, 1}, mspec{model.Reactor, 1},
		mspec{model.Incubator, 1}, mspec{model.FomoHit, 1},
	))
	if !e.CanBuildThirdReactor() {
		t.Fatalf("third reactor gate should pass")
	}
	e = New(build(
		mspec{model.Reactor, 1},
		mspec{model.Incubator, 1}, mspec{model.FomoHit, 1},
	))
	if e.CanBuildThirdReactor() {
		t.Fatalf("gate needs exactly two reactors")
	}
}

func TestAmplifierUpgradeGate(t *testing.T) {
	// 第一台達 3 級，第二台未達
	ms := build(
		mspec{model.CatLair, 3}, mspec{model.CatLair, 2},
		mspec{model.Reactor, 3}, mspec{model.Reactor, 1},
		mspec{model.Amplifier, 3},
	)
	e := New(ms)
	if !e.CanUpgradeAmplifier(2) || !e.CanUpgradeAmplifier(3) {
		t.Fatalf("levels up to 3 are ungated")
	}
	if !e.CanUpgradeAmplifier(4) {
		t.Fatalf("level 4 should pass with first catLair/reactor at 3")
	}
	if e.CanUpgradeAmplifier(5) {
		t.Fatalf("level 5 requires the first two of each at 3")
	}

	ms[1].Level = 3
	ms[3].Level = 3
	if !New(ms).CanUpgradeAmplifier(5) {
		t.Fatalf("level 5 should pass")
	}

	// 只有一台 catLair：5 級門檻不通過
	single := build(mspec{model.CatLair, 3}, mspec{model.Reactor, 3}, mspec{model.Reactor, 3})
	if New(single).CanUpgradeAmplifier(5) {
		t.Fatalf("level 5 with one catLair should fail")
	}
}

func TestFirstInstanceFollowsBuildOrder(t *testing.T) {
	// 第二台先升滿，第一台沒有：4 級門檻不通過
	ms := build(
		mspec{model.CatLair, 1}, mspec{model.CatLair, 3},
		mspec{model.Reactor, 3},
	)
	e := New(ms)
	if e.CanUpgradeAmplifier(4) {
		t.Fatalf("gate must look at the first-built catLair")
	}
	if !e.IsSecond(ms[1]) || e.IsSecond(ms[0]) {
		t.Fatalf("IsSecond mismatch")
	}
}

func TestIncubatorGate(t *testing.T) {
	ms := build(
		mspec{model.CatLair, 3}, mspec{model.CatLair, 3},
		mspec{model.Reactor, 3}, mspec{model.Reactor, 2},
		mspec{model.Amplifier, 5},
	)
	if New(ms).CanBuildIncubator() {
		t.Fatalf("every reactor must be level 3")
	}
	ms[3].Level = 3
	if !New(ms).CanBuildIncubator() {
		t.Fatalf("incubator gate should pass")
	}
	ms[4].Level = 4
	if New(ms).CanBuildIncubator() {
		t.Fatalf("amplifier must be level 5")
	}
	if New(build(mspec{model.Reactor, 3}, mspec{model.Amplifier, 5})).CanBuildIncubator() {
		t.Fatalf("at least one catLair is required")
	}
}

func TestFomoHitGate(t *testing.T) {
	ms := build(mspec{model.CatLair, 1}, mspec{model.Reactor, 1}, mspec{model.Amplifier, 1})
	if New(ms).CanBuildFomoHit() {
		t.Fatalf("fomoHit requires an incubator")
	}
	ms = append(ms, &model.Machine{ID: 9, Type: model.Incubator, Level: 1, Offline: true})
	if !New(ms).CanBuildFomoHit() {
		t.Fatalf("fomoHit gate should pass")
	}
}

func TestRoomsUnlocked(t *testing.T) {
	ms := build(
		mspec{model.CatLair, 1}, mspec{model.CatLair, 1},
		mspec{model.Reactor, 1}, mspec{model.Reactor, 1},
	)
	if got := New(ms).RoomsUnlocked(); got != 1 {
		t.Fatalf("rooms=%d want=1", got)
	}
	ms = append(ms, &model.Machine{ID: 5, Type: model.Amplifier, Level: 1})
	if got := New(ms).RoomsUnlocked(); got != 2 {
		t.Fatalf("rooms=%d want=2", got)
	}
}

func TestOnlineAmplifierLevel(t *testing.T) {
	ms := build(mspec{model.Amplifier, 3})
	if got := New(ms).OnlineAmplifierLevel(); got != 3 {
		t.Fatalf("level=%d want=3", got)
	}
	ms[0].Offline = true
	if got := New(ms).OnlineAmplifierLevel(); got != 0 {
		t.Fatalf("offline amplifier should not count, got %d", got)
	}
}
