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

	"github.com/Antigono00/First-minting-tools/dto"
	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/gating"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/recorder"
	"github.com/Antigono00/First-minting-tools/store"
	"github.com/Antigono00/First-minting-tools/upkeep"
)

// Login 登入成功後建立玩家（首次）或更新顯示名稱。回傳是否為新玩家。
func (l *Lab) Login(ctx context.Context, playerID, firstName string) (bool, error) {
	if playerID == "" {
		return false, errs.Unauthenticated("Not logged in")
	}
	created, err := l.st.EnsurePlayer(ctx, playerID, firstName)
	if err != nil {
		return false, err
	}
	if created {
		l.log.Info("player created", "player", playerID)
		l.record(&frame{entry: recorder.Entry{AtMs: l.now(), Player: playerID, Action: ActionLogin}}, nil)
	}
	return created, nil
}

// WhoAmI 目前登入的玩家；未登入不是錯誤。
func (l *Lab) WhoAmI(ctx context.Context, playerID string) (dto.WhoAmI, error) {
	if playerID == "" {
		return dto.WhoAmI{}, nil
	}
	st, err := l.st.View(ctx, playerID)
	if err != nil {
		return dto.WhoAmI{}, err
	}
	return dto.WhoAmI{LoggedIn: true, PlayerID: playerID, FirstName: st.Player.FirstName}, nil
}

// -----------------------------------------------------------------------------
//  管理用操作（cmd/admin）
// -----------------------------------------------------------------------------

// Snapshot 唯讀快照與房間數，不結算維護費。
func (l *Lab) Snapshot(ctx context.Context, playerID string) (*model.State, int, error) {
	st, err := l.st.View(ctx, playerID)
	if err != nil {
		return nil, 0, err
	}
	st.SortMachines()
	return st, gating.FromState(st).RoomsUnlocked(), nil
}

// Grant 直接調整餘額（可為負，但結果不可小於 0）。
func (l *Lab) Grant(ctx context.Context, playerID string, r ledger.Resource, amount float64) (ledger.Balances, error) {
	var bal ledger.Balances
	_, err := l.do(ctx, playerID, ActionGrant, func(f *frame, st *model.State, _ store.Tx) error {
		if err := st.Player.Resources.Add(r, amount); err != nil {
			return err
		}
		f.entry.Reward = ledger.Cost{r: amount}
		bal = st.Player.Resources
		return nil
	})
	return bal, err
}

// Sweep 只結算維護費並寫回，供離線批次使用。
func (l *Lab) Sweep(ctx context.Context, playerID string) (upkeep.Report, error) {
	f, err := l.do(ctx, playerID, ActionSweep, func(f *frame, _ *model.State, _ store.Tx) error {
		f.quiet = true
		return nil
	})
	if err != nil {
		return upkeep.Report{}, err
	}
	return f.upkeep, nil
}
