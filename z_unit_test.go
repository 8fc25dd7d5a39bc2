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

package cvxlab

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Antigono00/First-minting-tools/catalog"
	"github.com/Antigono00/First-minting-tools/dto"
	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/external"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/recorder"
	"github.com/Antigono00/First-minting-tools/spec"
	"github.com/Antigono00/First-minting-tools/store"
)

const (
	hour = int64(3600000)
	day  = 24 * hour
	t0   = int64(1_700_000_000_000)
	pid  = "42"
)

type testLab struct {
	*Lab
	clock  *atomic.Int64
	rec    *recorder.Memory
	oracle *external.FakeOracle
	ledger *external.FakeLedger
}

func newTestLab(t *testing.T) *testLab {
	t.Helper()
	clock := new(atomic.Int64)
	clock.Store(t0)
	tl := &testLab{
		clock:  clock,
		rec:    &recorder.Memory{},
		oracle: &external.FakeOracle{Balances: map[string]float64{}},
		ledger: &external.FakeLedger{Statuses: map[string]external.TxStatus{}, CvxAmount: 200},
	}
	lab, err := New(spec.Default(), store.NewMemStore(),
		WithClock(clock.Load),
		WithRecorder(tl.rec),
		WithOracle(tl.oracle),
		WithGateway(tl.ledger),
	)
	if err != nil {
		t.Fatalf("new lab: %v", err)
	}
	tl.Lab = lab
	return tl
}

func (tl *testLab) advance(ms int64) { tl.clock.Add(ms) }

// seed 直接寫入機台與餘額，跳過建造門檻。
func (tl *testLab) seed(t *testing.T, bal ledger.Balances, machines ...*model.Machine) {
	t.Helper()
	err := tl.Store().Update(context.Background(), pid, func(st *model.State, _ store.Tx) error {
		st.Player.Resources = bal
		st.Machines = append(st.Machines, machines...)
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (tl *testLab) state(t *testing.T) *model.State {
	t.Helper()
	st, _, err := tl.Snapshot(context.Background(), pid)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return st
}

func ip(v int) *int { return &v }

func build(tl *testLab, typ string, x, y, room int) (dto.BuildResult, error) {
	return tl.Build(context.Background(), pid, &dto.BuildRequest{MachineType: typ, X: ip(x), Y: ip(y), Room: room})
}

func wantKind(t *testing.T, err error, k errs.Kind) {
	t.Helper()
	if !errs.Is(err, k) {
		t.Fatalf("kind=%v want=%v (err=%v)", errs.KindOf(err), k, err)
	}
}

func TestFreshPlayerBuildsCatLair(t *testing.T) {
	tl := newTestLab(t)
	ctx := context.Background()
	if _, err := tl.Grant(ctx, pid, ledger.TCorvax, 10); err != nil {
		t.Fatal(err)
	}
	res, err := build(tl, "catLair", 0, 0, 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.MachineID == 0 || res.NewResources.TCorvax != 0 || res.RoomsUnlocked != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	_, err = build(tl, "catLair", 300, 0, 1)
	wantKind(t, err, errs.KindPrecondition)
	st := tl.state(t)
	if len(st.Machines) != 1 || st.Player.Resources.TCorvax != 0 {
		t.Fatalf("rejected build changed state: %+v", st)
	}
}

func TestBuildCapAndPlacement(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{TCorvax: 1000, CatNips: 1000, Energy: 1000})

	if _, err := build(tl, "catLair", 0, 0, 1); err != nil {
		t.Fatal(err)
	}
	_, err := build(tl, "catLair", 100, 100, 1)
	wantKind(t, err, errs.KindValidation)
	_, err = build(tl, "catLair", 700, 0, 1)
	wantKind(t, err, errs.KindValidation)
	_, err = build(tl, "catLair", 200, 0, 2)
	wantKind(t, err, errs.KindValidation)

	res, err := build(tl, "catLair", 128, 0, 1)
	if err != nil {
		t.Fatalf("edge-touching build: %v", err)
	}
	if res.NewResources.TCorvax != 1000-10-40 {
		t.Fatalf("tcorvax=%v want=%v", res.NewResources.TCorvax, 1000-10-40)
	}
	_, err = build(tl, "catLair", 400, 0, 1)
	if e, ok := errs.AsErr(err); !ok || e.Message != catalog.ErrCapReached.Message {
		t.Fatalf("expected cap reached, got %v", err)
	}
	_, err = build(tl, "gold", 400, 0, 1)
	wantKind(t, err, errs.KindValidation)
}

func TestRoomsUnlockedAfterFiveMachines(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{TCorvax: 1000, CatNips: 1000, Energy: 1000})
	var res dto.BuildResult
	var err error
	for i, typ := range []string{"catLair", "catLair", "reactor", "reactor", "amplifier"} {
		res, err = build(tl, typ, i*150, 0, 1)
		if err != nil {
			t.Fatalf("build %s: %v", typ, err)
		}
	}
	if res.RoomsUnlocked != 2 {
		t.Fatalf("roomsUnlocked=%d want=2", res.RoomsUnlocked)
	}
	gs, err := tl.GameState(context.Background(), pid)
	if err != nil {
		t.Fatal(err)
	}
	if gs.RoomsUnlocked != 2 || gs.SeenRoomUnlock {
		t.Fatalf("unexpected state: rooms=%d seen=%v", gs.RoomsUnlocked, gs.SeenRoomUnlock)
	}
	if _, err := build(tl, "amplifier", 0, 0, 2); err == nil {
		t.Fatalf("second amplifier must be rejected")
	}
	if _, err := tl.DismissRoomUnlock(context.Background(), pid); err != nil {
		t.Fatal(err)
	}
	if !tl.state(t).Player.SeenRoomUnlock {
		t.Fatalf("seenRoomUnlock not persisted")
	}
}

func TestUpgradeSecondInstanceCost(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{TCorvax: 1000},
		&model.Machine{Type: model.CatLair, Level: 1, X: 0},
		&model.Machine{Type: model.CatLair, Level: 1, X: 200},
	)
	st := tl.state(t)
	first, second := st.Machines[0].ID, st.Machines[1].ID

	res, err := tl.Upgrade(context.Background(), pid, &dto.UpgradeRequest{MachineID: first})
	if err != nil {
		t.Fatal(err)
	}
	if res.NewLevel != 2 || res.NewResources.TCorvax != 1000-20 {
		t.Fatalf("first upgrade: %+v", res)
	}
	res, err = tl.Upgrade(context.Background(), pid, &dto.UpgradeRequest{MachineID: second})
	if err != nil {
		t.Fatal(err)
	}
	if res.NewResources.TCorvax != 1000-20-80 {
		t.Fatalf("second-built upgrade cost: tcorvax=%v", res.NewResources.TCorvax)
	}
	_, err = tl.Upgrade(context.Background(), pid, &dto.UpgradeRequest{MachineID: 999})
	wantKind(t, err, errs.KindNotFound)
}

func TestMoveChargesFee(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{TCorvax: 60},
		&model.Machine{Type: model.CatLair, Level: 1, X: 0, Y: 0, Room: 1},
		&model.Machine{Type: model.Reactor, Level: 1, X: 300, Y: 0, Room: 1},
	)
	st := tl.state(t)
	id := st.Machines[0].ID

	_, err := tl.Move(context.Background(), pid, &dto.MoveRequest{MachineID: id, X: ip(310), Y: ip(10), Room: 1})
	wantKind(t, err, errs.KindValidation)
	if got := tl.state(t).Player.Resources.TCorvax; got != 60 {
		t.Fatalf("fee charged on rejected move: %v", got)
	}

	res, err := tl.Move(context.Background(), pid, &dto.MoveRequest{MachineID: id, X: ip(0), Y: ip(472), Room: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.NewResources.TCorvax != 10 || res.NewPosition.Y != 472 {
		t.Fatalf("unexpected move result: %+v", res)
	}
	_, err = tl.Move(context.Background(), pid, &dto.MoveRequest{MachineID: id, X: ip(0), Y: ip(0), Room: 1})
	wantKind(t, err, errs.KindPrecondition)
}

func TestCooldownThroughEngine(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{}, &model.Machine{Type: model.CatLair, Level: 2})
	id := tl.state(t).Machines[0].ID
	ctx := context.Background()

	res, err := tl.Activate(ctx, pid, &dto.ActivateRequest{MachineID: id})
	if err != nil {
		t.Fatal(err)
	}
	if res.UpdatedResources == nil || res.UpdatedResources.CatNips != 6 || res.NewLastActivated != t0 {
		t.Fatalf("unexpected activation: %+v", res)
	}
	tl.advance(10 * 60 * 1000)
	_, err = tl.Activate(ctx, pid, &dto.ActivateRequest{MachineID: id})
	wantKind(t, err, errs.KindPrecondition)
	e, _ := errs.AsErr(err)
	if e.RemainingMs <= 0 || e.RemainingMs > hour {
		t.Fatalf("remaining=%d", e.RemainingMs)
	}
	tl.advance(hour)
	if _, err := tl.Activate(ctx, pid, &dto.ActivateRequest{MachineID: id}); err != nil {
		t.Fatalf("after cooldown: %v", err)
	}
	if got := tl.state(t).Player.Resources.CatNips; got != 12 {
		t.Fatalf("catNips=%v want=12", got)
	}
}

func TestReactorRejectedWithoutCatNips(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{CatNips: 2}, &model.Machine{Type: model.Reactor, Level: 1})
	id := tl.state(t).Machines[0].ID
	_, err := tl.Activate(context.Background(), pid, &dto.ActivateRequest{MachineID: id})
	wantKind(t, err, errs.KindPrecondition)
	st := tl.state(t)
	if st.Machines[0].LastActivated != 0 || st.Player.Resources.CatNips != 2 {
		t.Fatalf("rejected activation changed state: %+v", st.Machines[0])
	}
}

func TestReactorAmplifierBonus(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{CatNips: 10, Energy: 100},
		&model.Machine{Type: model.Reactor, Level: 1},
		&model.Machine{Type: model.Amplifier, Level: 2, X: 200, NextUpkeepDue: t0 + day},
	)
	id := tl.state(t).Machines[0].ID
	res, err := tl.Activate(context.Background(), pid, &dto.ActivateRequest{MachineID: id})
	if err != nil {
		t.Fatal(err)
	}
	b := res.UpdatedResources
	if b.TCorvax != 2.0 || b.CatNips != 7 || b.Energy != 102 {
		t.Fatalf("unexpected balances: %+v", b)
	}
}

func TestUpkeepGoesOfflineOnRead(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{Energy: 7}, &model.Machine{Type: model.Amplifier, Level: 2, NextUpkeepDue: t0 + day})
	tl.advance(3*day + 1)

	gs, err := tl.GameState(context.Background(), pid)
	if err != nil {
		t.Fatal(err)
	}
	if gs.Energy != 3 {
		t.Fatalf("energy=%v want=3", gs.Energy)
	}
	amp := gs.Machines[0]
	if !amp.Offline || amp.NextUpkeepDue != t0+2*day {
		t.Fatalf("amplifier offline=%v due=%d want due=%d", amp.Offline, amp.NextUpkeepDue, t0+2*day)
	}

	// 沒有經過時間：再讀一次不應有任何變化
	gs2, err := tl.GameState(context.Background(), pid)
	if err != nil {
		t.Fatal(err)
	}
	if gs2.Energy != 3 || gs2.Machines[0].NextUpkeepDue != amp.NextUpkeepDue {
		t.Fatalf("second read changed state")
	}

	amps := 0
	for _, e := range tl.rec.Entries() {
		if e.Action == ActionGameState {
			amps++
		}
	}
	if amps != 1 {
		t.Fatalf("journaled reads=%d want=1", amps)
	}
}

func TestAmplifierActivationIsStatusOnly(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{Energy: 100}, &model.Machine{Type: model.Amplifier, Level: 1, NextUpkeepDue: t0 + day})
	id := tl.state(t).Machines[0].ID
	for i := 0; i < 2; i++ {
		res, err := tl.Activate(context.Background(), pid, &dto.ActivateRequest{MachineID: id})
		if err != nil {
			t.Fatal(err)
		}
		if res.Message != "Amplifier is online" {
			t.Fatalf("message=%q", res.Message)
		}
	}
	if tl.state(t).Machines[0].LastActivated != 0 {
		t.Fatalf("amplifier query must not set last activation")
	}
}

func TestIncubatorRewardsAndDegrade(t *testing.T) {
	tl := newTestLab(t)
	tl.oracle.Balances["account_abc"] = 2500
	tl.seed(t, ledger.Balances{}, &model.Machine{Type: model.Incubator, Level: 2, Offline: true})
	id := tl.state(t).Machines[0].ID
	ctx := context.Background()

	res, err := tl.Activate(ctx, pid, &dto.ActivateRequest{MachineID: id, AccountAddress: "account_abc"})
	if err != nil {
		t.Fatal(err)
	}
	if *res.BaseReward != 10 || *res.BonusReward != 2 || *res.EggsReward != 5 || res.Degraded {
		t.Fatalf("unexpected incubator result: %+v", res)
	}
	st := tl.state(t)
	if st.Machines[0].Offline || st.Player.Resources.TCorvax != 12 || st.Player.Resources.Eggs != 5 {
		t.Fatalf("unexpected state: %+v %+v", st.Machines[0], st.Player.Resources)
	}

	tl.advance(hour)
	tl.oracle.Err = errors.New("gateway down")
	res, err = tl.Activate(ctx, pid, &dto.ActivateRequest{MachineID: id, AccountAddress: "account_abc"})
	if err != nil {
		t.Fatalf("degraded lookup must not fail the action: %v", err)
	}
	if !res.Degraded || *res.StakedCVX != 0 || res.UpdatedResources.TCorvax != 12 {
		t.Fatalf("unexpected degraded result: %+v", res)
	}
}

func TestIncubatorCooldownSkipsLookup(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{}, &model.Machine{Type: model.Incubator, Level: 1, LastActivated: t0 - 1000})
	id := tl.state(t).Machines[0].ID
	_, err := tl.Activate(context.Background(), pid, &dto.ActivateRequest{MachineID: id, AccountAddress: "account_abc"})
	wantKind(t, err, errs.KindPrecondition)
	if tl.oracle.Calls != 0 {
		t.Fatalf("oracle called during cooldown: %d", tl.oracle.Calls)
	}
}

func TestFomoHitMintFlow(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{}, &model.Machine{Type: model.FomoHit, Level: 1})
	id := tl.state(t).Machines[0].ID
	ctx := context.Background()

	_, err := tl.Activate(ctx, pid, &dto.ActivateRequest{MachineID: id})
	wantKind(t, err, errs.KindValidation)

	res, err := tl.Activate(ctx, pid, &dto.ActivateRequest{MachineID: id, AccountAddress: "account_abc"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.RequiresMint || res.Manifest == "" || res.MintRequestID == "" {
		t.Fatalf("unexpected first activation: %+v", res)
	}
	st := tl.state(t)
	if !st.Machines[0].ProvisionalMint || st.Player.Resources.TCorvax != 0 {
		t.Fatalf("unexpected state after mint request: %+v", st.Machines[0])
	}

	ms, err := tl.CheckMintStatus(ctx, pid, &dto.CheckMintStatusRequest{IntentHash: "txid_1", MachineID: id})
	if err != nil {
		t.Fatal(err)
	}
	if ms.TransactionStatus != external.TxUnknown || ms.Cleared {
		t.Fatalf("unexpected pending status: %+v", ms)
	}
	tl.ledger.Statuses["txid_1"] = external.TxCommitted
	ms, err = tl.CheckMintStatus(ctx, pid, &dto.CheckMintStatusRequest{IntentHash: "txid_1", MachineID: id})
	if err != nil {
		t.Fatal(err)
	}
	if !ms.Cleared || tl.state(t).Machines[0].ProvisionalMint {
		t.Fatalf("provisional mint not cleared: %+v", ms)
	}

	tl.advance(hour)
	res, err = tl.Activate(ctx, pid, &dto.ActivateRequest{MachineID: id})
	if err != nil {
		t.Fatal(err)
	}
	if res.UpdatedResources.TCorvax != 5 {
		t.Fatalf("tcorvax=%v want=5", res.UpdatedResources.TCorvax)
	}
}

func TestConfirmEnergyPurchaseOnce(t *testing.T) {
	tl := newTestLab(t)
	ctx := context.Background()

	buy, err := tl.BuyEnergy(ctx, pid, &dto.BuyEnergyRequest{AccountAddress: "account_abc"})
	if err != nil {
		t.Fatal(err)
	}
	if buy.Manifest == "" || buy.Reference == "" || buy.EnergyAmount != 500 || buy.CvxCost != 200 {
		t.Fatalf("unexpected manifest: %+v", buy)
	}
	if !tl.state(t).HasIntents(model.IntentEnergy) {
		t.Fatalf("energy purchase not pending")
	}
	_, err = tl.BuyEnergy(ctx, pid, &dto.BuyEnergyRequest{AccountAddress: "bad address"})
	wantKind(t, err, errs.KindValidation)

	res, err := tl.ConfirmEnergyPurchase(ctx, pid, &dto.ConfirmEnergyRequest{IntentHash: "txid_e"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != dto.StatusPending || res.NewEnergy != nil {
		t.Fatalf("unexpected pending result: %+v", res)
	}

	tl.ledger.Commit("txid_e", buy.Reference)
	for i, want := range []bool{false, true} {
		res, err = tl.ConfirmEnergyPurchase(ctx, pid, &dto.ConfirmEnergyRequest{IntentHash: "txid_e"})
		if err != nil {
			t.Fatal(err)
		}
		if res.AlreadySettled != want || *res.NewEnergy != 500 {
			t.Fatalf("confirm #%d: %+v energy=%v", i, res, *res.NewEnergy)
		}
	}
	if tl.state(t).HasIntents(model.IntentEnergy) {
		t.Fatalf("settled purchase still pending")
	}

	// 已提交但 message 不是此玩家的購買請求
	tl.ledger.Commit("txid_x", "someone-else")
	_, err = tl.ConfirmEnergyPurchase(ctx, pid, &dto.ConfirmEnergyRequest{IntentHash: "txid_x"})
	wantKind(t, err, errs.KindPrecondition)
	if got := tl.state(t).Player.Resources.Energy; got != 500 {
		t.Fatalf("energy=%v want=500", got)
	}
}

func TestConfirmEnergyDegradesWithoutMessage(t *testing.T) {
	tl := newTestLab(t)
	ctx := context.Background()
	buy, err := tl.BuyEnergy(ctx, pid, &dto.BuyEnergyRequest{AccountAddress: "account_abc"})
	if err != nil {
		t.Fatal(err)
	}
	tl.ledger.Commit("txid_e", buy.Reference)
	tl.ledger.MessageErr = errors.New("gateway down")

	res, err := tl.ConfirmEnergyPurchase(ctx, pid, &dto.ConfirmEnergyRequest{IntentHash: "txid_e"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != dto.StatusPending || res.TransactionStatus != external.TxUnknown || !res.Degraded {
		t.Fatalf("unexpected degraded result: %+v", res)
	}

	tl.ledger.MessageErr = nil
	res, err = tl.ConfirmEnergyPurchase(ctx, pid, &dto.ConfirmEnergyRequest{IntentHash: "txid_e"})
	if err != nil {
		t.Fatal(err)
	}
	if res.AlreadySettled || *res.NewEnergy != 500 {
		t.Fatalf("retry after recovery: %+v", res)
	}
}

func TestMintCheckKeepsEnergyPurchase(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{}, &model.Machine{Type: model.FomoHit, Level: 1, ProvisionalMint: true})
	id := tl.state(t).Machines[0].ID
	ctx := context.Background()

	buy, err := tl.BuyEnergy(ctx, pid, &dto.BuyEnergyRequest{AccountAddress: "account_abc"})
	if err != nil {
		t.Fatal(err)
	}
	tl.ledger.Commit("txid_e", buy.Reference)

	// 能量交易的 hash 拿去查鑄造狀態，不影響能量入帳
	if _, err := tl.CheckMintStatus(ctx, pid, &dto.CheckMintStatusRequest{IntentHash: "txid_e", MachineID: id}); err != nil {
		t.Fatal(err)
	}
	res, err := tl.ConfirmEnergyPurchase(ctx, pid, &dto.ConfirmEnergyRequest{IntentHash: "txid_e"})
	if err != nil {
		t.Fatal(err)
	}
	if res.AlreadySettled || *res.NewEnergy != 500 {
		t.Fatalf("energy purchase blocked by mint check: %+v", res)
	}

	// 沒有待確認鑄造的機台不會消耗 hash
	ms, err := tl.CheckMintStatus(ctx, pid, &dto.CheckMintStatusRequest{IntentHash: "txid_e", MachineID: id})
	if err != nil {
		t.Fatal(err)
	}
	if ms.Cleared || ms.AlreadySettled {
		t.Fatalf("cleared machine settled again: %+v", ms)
	}
}

func TestConfirmEnergyRejectsOtherPlayersTransaction(t *testing.T) {
	tl := newTestLab(t)
	ctx := context.Background()
	const attacker = "77"

	victim, err := tl.BuyEnergy(ctx, pid, &dto.BuyEnergyRequest{AccountAddress: "account_victim"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tl.BuyEnergy(ctx, attacker, &dto.BuyEnergyRequest{AccountAddress: "account_attacker"}); err != nil {
		t.Fatal(err)
	}
	tl.ledger.Commit("txid_v", victim.Reference)

	_, err = tl.ConfirmEnergyPurchase(ctx, attacker, &dto.ConfirmEnergyRequest{IntentHash: "txid_v"})
	wantKind(t, err, errs.KindPrecondition)

	res, err := tl.ConfirmEnergyPurchase(ctx, pid, &dto.ConfirmEnergyRequest{IntentHash: "txid_v"})
	if err != nil {
		t.Fatal(err)
	}
	if res.AlreadySettled || *res.NewEnergy != 500 {
		t.Fatalf("victim not credited: %+v", res)
	}

	res, err = tl.ConfirmEnergyPurchase(ctx, attacker, &dto.ConfirmEnergyRequest{IntentHash: "txid_v"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.AlreadySettled || *res.NewEnergy != 0 {
		t.Fatalf("attacker after settle: %+v", res)
	}
	st, _, err := tl.Snapshot(ctx, attacker)
	if err != nil {
		t.Fatal(err)
	}
	if st.Player.Resources.Energy != 0 || !st.HasIntents(model.IntentEnergy) {
		t.Fatalf("attacker state changed: %+v intents=%d", st.Player.Resources, len(st.Intents))
	}
}

func TestEggMintPaidWithEggs(t *testing.T) {
	tl := newTestLab(t)
	ctx := context.Background()
	if _, err := tl.Grant(ctx, pid, ledger.Eggs, 100); err != nil {
		t.Fatal(err)
	}
	req := &dto.MintEggRequest{AccountAddress: "account_abc", PaymentMethod: "eggs"}

	_, err := tl.MintEggManifest(ctx, pid, req)
	wantKind(t, err, errs.KindPrecondition)
	if tl.state(t).HasIntents(model.IntentEgg) {
		t.Fatalf("rejected mint left a pending request")
	}

	if _, err := tl.Grant(ctx, pid, ledger.Eggs, 100); err != nil {
		t.Fatal(err)
	}
	mint, err := tl.MintEggManifest(ctx, pid, req)
	if err != nil {
		t.Fatal(err)
	}
	if mint.Manifest == "" || mint.Reference == "" || mint.EggsCost != 150 || mint.PaymentMethod != "eggs" {
		t.Fatalf("unexpected manifest: %+v", mint)
	}
	if got := tl.state(t).Player.Resources.Eggs; got != 200 {
		t.Fatalf("eggs charged before commit: %v", got)
	}

	tl.ledger.Commit("txid_g", mint.Reference)
	for i, want := range []bool{false, true} {
		res, err := tl.CheckEggMintStatus(ctx, pid, &dto.CheckEggMintRequest{IntentHash: "txid_g"})
		if err != nil {
			t.Fatal(err)
		}
		if res.AlreadySettled != want || *res.NewEggs != 50 {
			t.Fatalf("check #%d: %+v eggs=%v", i, res, *res.NewEggs)
		}
		if !want && res.EggsCharged != 150 {
			t.Fatalf("eggsCharged=%v want=150", res.EggsCharged)
		}
	}
}

func TestEggMintPaidWithXRD(t *testing.T) {
	tl := newTestLab(t)
	ctx := context.Background()

	mint, err := tl.MintEggManifest(ctx, pid, &dto.MintEggRequest{AccountAddress: "account_abc", PaymentMethod: "xrd"})
	if err != nil {
		t.Fatal(err)
	}
	if mint.XRDCost != 300 || mint.EggsCost != 0 {
		t.Fatalf("unexpected manifest: %+v", mint)
	}

	res, err := tl.CheckEggMintStatus(ctx, pid, &dto.CheckEggMintRequest{IntentHash: "txid_x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != dto.StatusPending || res.NewEggs != nil {
		t.Fatalf("unexpected pending result: %+v", res)
	}

	tl.ledger.Commit("txid_x", mint.Reference)
	res, err = tl.CheckEggMintStatus(ctx, pid, &dto.CheckEggMintRequest{IntentHash: "txid_x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.PaymentMethod != "xrd" || res.EggsCharged != 0 || *res.NewEggs != 0 || res.AlreadySettled {
		t.Fatalf("unexpected xrd settle: %+v", res)
	}
}

func TestSyncLayoutIsAtomic(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{},
		&model.Machine{Type: model.CatLair, Level: 1, X: 0, Room: 1},
		&model.Machine{Type: model.Reactor, Level: 1, X: 200, Room: 1},
	)
	st := tl.state(t)
	a, b := st.Machines[0].ID, st.Machines[1].ID
	ctx := context.Background()

	res, err := tl.SyncLayout(ctx, pid, &dto.SyncLayoutRequest{Machines: []dto.LayoutItem{
		{ID: a, X: 200, Y: 0, Room: 1},
		{ID: b, X: 0, Y: 0, Room: 1},
	}})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.Updated != 2 {
		t.Fatalf("updated=%d want=2", res.Updated)
	}

	_, err = tl.SyncLayout(ctx, pid, &dto.SyncLayoutRequest{Machines: []dto.LayoutItem{
		{ID: a, X: 400, Y: 0, Room: 1},
		{ID: b, X: 450, Y: 0, Room: 1},
	}})
	wantKind(t, err, errs.KindValidation)
	st = tl.state(t)
	if st.Machines[0].X != 200 || st.Machines[1].X != 0 {
		t.Fatalf("rejected layout partially applied: %d %d", st.Machines[0].X, st.Machines[1].X)
	}
	_, err = tl.SyncLayout(ctx, pid, &dto.SyncLayoutRequest{Machines: []dto.LayoutItem{{ID: 999, Room: 1}}})
	wantKind(t, err, errs.KindNotFound)
}

func TestPets(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{CatNips: 3000})
	ctx := context.Background()

	res, err := tl.BuyPet(ctx, pid, &dto.BuyPetRequest{PetType: "cat", X: ip(10), Y: ip(10), Room: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.PetID == 0 || res.NewResources.CatNips != 1500 {
		t.Fatalf("unexpected result: %+v", res)
	}
	_, err = tl.BuyPet(ctx, pid, &dto.BuyPetRequest{PetType: "cat", X: ip(10), Y: ip(10), Room: 1})
	wantKind(t, err, errs.KindPrecondition)

	mv, err := tl.MovePet(ctx, pid, &dto.MovePetRequest{PetID: res.PetID, X: ip(600), Y: ip(400), Room: 1})
	if err != nil {
		t.Fatal(err)
	}
	if mv.NewPosition.X != 600 {
		t.Fatalf("unexpected move: %+v", mv)
	}
	_, err = tl.MovePet(ctx, pid, &dto.MovePetRequest{PetID: res.PetID, X: ip(900), Y: ip(0), Room: 1})
	wantKind(t, err, errs.KindValidation)

	pets, err := tl.Pets(ctx, pid)
	if err != nil {
		t.Fatal(err)
	}
	if len(pets.Pets) != 1 || pets.Pets[0].X != 600 {
		t.Fatalf("unexpected pets: %+v", pets.Pets)
	}
}

func TestUnauthenticatedAndClosed(t *testing.T) {
	tl := newTestLab(t)
	_, err := tl.GameState(context.Background(), "")
	wantKind(t, err, errs.KindUnauthenticated)

	who, err := tl.WhoAmI(context.Background(), "")
	if err != nil || who.LoggedIn {
		t.Fatalf("unexpected whoami: %+v %v", who, err)
	}

	tl.Close()
	tl.Close()
	if !tl.Closed() || tl.ClosedReason() != "closed" {
		t.Fatalf("closed=%v reason=%q", tl.Closed(), tl.ClosedReason())
	}
	_, err = tl.GameState(context.Background(), pid)
	wantKind(t, err, errs.KindInternal)
}

func TestLoginCreatesPlayerOnce(t *testing.T) {
	tl := newTestLab(t)
	ctx := context.Background()
	created, err := tl.Login(ctx, pid, "Ada")
	if err != nil || !created {
		t.Fatalf("first login: created=%v err=%v", created, err)
	}
	created, err = tl.Login(ctx, pid, "Ada L.")
	if err != nil || created {
		t.Fatalf("second login: created=%v err=%v", created, err)
	}
	who, err := tl.WhoAmI(ctx, pid)
	if err != nil || !who.LoggedIn || who.FirstName != "Ada L." {
		t.Fatalf("unexpected whoami: %+v %v", who, err)
	}
}

func TestConcurrentGrantsSerialize(t *testing.T) {
	tl := newTestLab(t)
	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tl.Grant(context.Background(), pid, ledger.Energy, 1); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if got := tl.state(t).Player.Resources.Energy; got != n {
		t.Fatalf("energy=%v want=%d", got, n)
	}
	if tl.locks.size() != 0 || tl.Inflight() != 0 {
		t.Fatalf("locks=%d inflight=%d", tl.locks.size(), tl.Inflight())
	}
}

func TestFailedActionsAreRecorded(t *testing.T) {
	tl := newTestLab(t)
	_, _ = build(tl, "catLair", 0, 0, 1)
	entries := tl.rec.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries=%d want=1", len(entries))
	}
	e := entries[0]
	if e.Action != ActionBuild || e.ErrKind != errs.KindPrecondition.String() || e.Player != pid || e.AtMs != t0 {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestSweepReportsUpkeep(t *testing.T) {
	tl := newTestLab(t)
	tl.seed(t, ledger.Balances{Energy: 100}, &model.Machine{Type: model.Amplifier, Level: 3, NextUpkeepDue: t0 + day})
	tl.advance(2 * day)
	rep, err := tl.Sweep(context.Background(), pid)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Charged != 12 || !rep.Changed {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if got := tl.state(t).Player.Resources.Energy; got != 88 {
		t.Fatalf("energy=%v want=88", got)
	}
}
