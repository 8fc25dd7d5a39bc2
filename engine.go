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
	"fmt"

	"github.com/Antigono00/First-minting-tools/activation"
	"github.com/Antigono00/First-minting-tools/catalog"
	"github.com/Antigono00/First-minting-tools/dto"
	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/external"
	"github.com/Antigono00/First-minting-tools/gating"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/placement"
	"github.com/Antigono00/First-minting-tools/store"
)

// 動作名稱，同時是紀錄（journal）中的 action 欄位。
const (
	ActionGameState     = "getGameState"
	ActionBuild         = "buildMachine"
	ActionMove          = "moveMachine"
	ActionUpgrade       = "upgradeMachine"
	ActionActivate      = "activateMachine"
	ActionSyncLayout    = "syncLayout"
	ActionDismissRoom   = "dismissRoomUnlock"
	ActionBuyPet        = "buyPet"
	ActionMovePet       = "movePet"
	ActionMintStatus    = "checkMintStatus"
	ActionBuyEnergy     = "buyEnergy"
	ActionConfirmEnergy = "confirmEnergyPurchase"
	ActionMintEgg       = "getMintEggManifest"
	ActionEggMintStatus = "checkEggMintStatus"
	ActionLogin         = "login"
	ActionGrant         = "grant"
	ActionSweep         = "sweep"
)

// GameState 回傳玩家完整狀態。讀取前會先結算維護費並寫回。
func (l *Lab) GameState(ctx context.Context, playerID string) (dto.GameState, error) {
	var gs dto.GameState
	_, err := l.do(ctx, playerID, ActionGameState, func(f *frame, st *model.State, _ store.Tx) error {
		f.quiet = true
		gs = dto.NewGameState(st, gating.FromState(st).RoomsUnlocked())
		return nil
	})
	return gs, err
}

// Build 在指定位置建造一台新機台。
//
// 檢查順序：種類 → 數量上限與門檻 → 位置 → 資源。全部通過才扣款。
func (l *Lab) Build(ctx context.Context, playerID string, req *dto.BuildRequest) (dto.BuildResult, error) {
	var (
		res dto.BuildResult
		m   *model.Machine
	)
	_, err := l.do(ctx, playerID, ActionBuild, func(f *frame, st *model.State, _ store.Tx) error {
		t, ok := model.ParseMachineType(req.MachineType)
		if !ok {
			return catalog.ErrUnknownType.WithExtra(req.MachineType)
		}
		f.entry.MachineType = t
		g := gating.FromState(st)
		cost, err := l.cat.BuildCost(t, g.Count(t), g)
		if err != nil {
			return err
		}
		pos := placement.Position{X: *req.X, Y: *req.Y, Room: req.Room}
		if err := l.place.Check(pos, g.RoomsUnlocked(), st.Machines, nil); err != nil {
			return err
		}
		if err := st.Player.Resources.Debit(cost); err != nil {
			return err
		}
		ms, _ := l.es.Machine(t)
		m = &model.Machine{Type: t, Level: 1, Offline: ms.BuildOffline}
		placement.Apply(m, pos)
		if t == model.Amplifier {
			m.NextUpkeepDue = f.now + l.ticker.IntervalMs
		}
		st.Machines = append(st.Machines, m)

		f.entry.Level = 1
		f.entry.Cost = cost
		res = dto.BuildResult{
			Status:        dto.StatusOK,
			NewResources:  st.Player.Resources,
			RoomsUnlocked: gating.FromState(st).RoomsUnlocked(),
		}
		return nil
	})
	if err != nil {
		return dto.BuildResult{}, err
	}
	// ID 在提交時才由儲存層配發
	res.MachineID = m.ID
	return res, nil
}

// Move 把機台移到新位置，收取固定手續費。
func (l *Lab) Move(ctx context.Context, playerID string, req *dto.MoveRequest) (dto.MoveResult, error) {
	var res dto.MoveResult
	_, err := l.do(ctx, playerID, ActionMove, func(f *frame, st *model.State, _ store.Tx) error {
		m, err := machine(st, req.MachineID)
		if err != nil {
			return err
		}
		f.entry.MachineID, f.entry.MachineType, f.entry.Level = m.ID, m.Type, m.Level
		pos := placement.Position{X: *req.X, Y: *req.Y, Room: req.Room}
		if err := l.place.Check(pos, gating.FromState(st).RoomsUnlocked(), st.Machines, m); err != nil {
			return err
		}
		fee := l.cat.MoveFee()
		if err := st.Player.Resources.Debit(fee); err != nil {
			return errs.Precondition(fmt.Sprintf("Not enough resources to move (%s required)", fee))
		}
		placement.Apply(m, pos)

		f.entry.Cost = fee
		res = dto.MoveResult{
			Status:       dto.StatusOK,
			NewPosition:  dto.Position(pos),
			NewResources: st.Player.Resources,
		}
		return nil
	})
	return res, err
}

// Upgrade 機台升一級。
func (l *Lab) Upgrade(ctx context.Context, playerID string, req *dto.UpgradeRequest) (dto.UpgradeResult, error) {
	var res dto.UpgradeResult
	_, err := l.do(ctx, playerID, ActionUpgrade, func(f *frame, st *model.State, _ store.Tx) error {
		m, err := machine(st, req.MachineID)
		if err != nil {
			return err
		}
		f.entry.MachineID, f.entry.MachineType = m.ID, m.Type
		g := gating.FromState(st)
		cost, err := l.cat.UpgradeCost(m.Type, m.Level, g.IsSecond(m), g)
		if err != nil {
			return err
		}
		if err := st.Player.Resources.Debit(cost); err != nil {
			return err
		}
		m.Level++

		f.entry.Level = m.Level
		f.entry.Cost = cost
		res = dto.UpgradeResult{
			Status:       dto.StatusOK,
			NewLevel:     m.Level,
			NewResources: st.Player.Resources,
		}
		return nil
	})
	return res, err
}

// Activate 啟動機台。
//
// 需要外部資料時（incubator 的質押餘額、fomoHit 首次啟動的鑄造請求），
// 在持有玩家鎖之後、開交易之前查詢；冷卻未結束則不做任何外部呼叫。
func (l *Lab) Activate(ctx context.Context, playerID string, req *dto.ActivateRequest) (dto.ActivateResult, error) {
	unlock, err := l.begin(ctx, playerID)
	if err != nil {
		return dto.ActivateResult{}, err
	}
	defer unlock()

	f := &frame{now: l.now()}
	f.entry.MachineID = req.MachineID
	in := activation.Inputs{NowMs: f.now, AccountAddress: req.AccountAddress}
	if err := l.prepareActivation(ctx, playerID, req, f, &in); err != nil {
		f.entry.AtMs, f.entry.Player, f.entry.Action = f.now, playerID, ActionActivate
		l.record(f, err)
		return dto.ActivateResult{}, err
	}

	var res dto.ActivateResult
	err = l.run(ctx, playerID, ActionActivate, f, func(f *frame, st *model.State, _ store.Tx) error {
		m, err := machine(st, req.MachineID)
		if err != nil {
			return err
		}
		f.entry.MachineType, f.entry.Level = m.Type, m.Level
		in.AmplifierLevel = gating.FromState(st).OnlineAmplifierLevel()
		out, err := l.act.Activate(m, &st.Player.Resources, in)
		if err != nil {
			return err
		}
		f.entry.Cost = out.Consumed
		f.entry.Reward = out.Reward
		f.entry.Degraded = out.Degraded
		if out.Mint != nil {
			f.entry.Intent = out.Mint.ID
		}
		res = dto.NewActivateResult(m.ID, out, st.Player.Resources)
		return nil
	})
	return res, err
}

// prepareActivation 依機種準備外部資料。呼叫端已持有玩家鎖，快照在開交易前不會被其他動作改變。
func (l *Lab) prepareActivation(ctx context.Context, playerID string, req *dto.ActivateRequest, f *frame, in *activation.Inputs) error {
	st, err := l.st.View(ctx, playerID)
	if err != nil {
		return err
	}
	m, err := machine(st, req.MachineID)
	if err != nil {
		return err
	}
	f.entry.MachineType = m.Type
	need := l.act.Requires(m)
	if need == activation.NeedNothing {
		return nil
	}
	if err := l.act.CheckCooldown(m, f.now); err != nil {
		return err
	}

	switch need {
	case activation.NeedStakedBalance:
		in.Staked = external.StakedBalance(ctx, l.oracle, req.AccountAddress, l.lookupTimeout)
		if in.Staked.Degraded {
			l.log.Warn("staked balance degraded", "player", playerID, "machine", m.ID, "err", in.Staked.Err)
		}
	case activation.NeedMintRequest:
		if req.AccountAddress == "" {
			return errs.Validation("Account address required for the first activation")
		}
		if l.gateway == nil {
			return errs.Internal("ledger gateway not configured", nil)
		}
		lctx, cancel := context.WithTimeout(ctx, l.lookupTimeout)
		defer cancel()
		mint, err := l.gateway.CreateMintRequest(lctx, req.AccountAddress)
		if err != nil {
			return errs.Wrap(err, "create mint request")
		}
		in.Mint = &mint
	}
	return nil
}

// SyncLayout 一次套用整份排版。任何一台位置不合法，整份拒絕。不收手續費。
func (l *Lab) SyncLayout(ctx context.Context, playerID string, req *dto.SyncLayoutRequest) (dto.SyncLayoutResult, error) {
	var res dto.SyncLayoutResult
	_, err := l.do(ctx, playerID, ActionSyncLayout, func(f *frame, st *model.State, _ store.Tx) error {
		layout := make(map[int64]placement.Position, len(req.Machines))
		for _, it := range req.Machines {
			if _, ok := st.Machine(it.ID); !ok {
				return errs.NotFound("Machine not found").WithExtra(fmt.Sprintf("id=%d", it.ID))
			}
			layout[it.ID] = placement.Position{X: it.X, Y: it.Y, Room: it.Room}
		}
		if err := l.place.CheckLayout(layout, st.Machines, gating.FromState(st).RoomsUnlocked()); err != nil {
			return err
		}
		updated := 0
		for _, m := range st.Machines {
			p, ok := layout[m.ID]
			if !ok || p == placement.PositionOf(m) {
				continue
			}
			placement.Apply(m, p)
			updated++
		}
		res = dto.SyncLayoutResult{Status: dto.StatusOK, Updated: updated}
		return nil
	})
	return res, err
}

// DismissRoomUnlock 玩家已看過「新房間解鎖」提示
func (l *Lab) DismissRoomUnlock(ctx context.Context, playerID string) (dto.StatusResult, error) {
	_, err := l.do(ctx, playerID, ActionDismissRoom, func(_ *frame, st *model.State, _ store.Tx) error {
		st.Player.SeenRoomUnlock = true
		return nil
	})
	if err != nil {
		return dto.StatusResult{}, err
	}
	return dto.StatusResult{Status: dto.StatusOK}, nil
}
