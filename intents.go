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

	"github.com/google/uuid"

	"github.com/Antigono00/First-minting-tools/dto"
	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/external"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/store"
)

// maxPendingIntents 每種交易最多保留的待確認請求數，超過時丟棄最舊的。
const maxPendingIntents = 10

// errIntentMismatch 交易的 message 不是此玩家發出的待確認請求
var errIntentMismatch = errs.Precondition("Transaction does not match a pending request")

// issue 登記一筆待確認請求並回傳 reference；玩家簽署時把 reference 放進交易 message。
func issue(f *frame, st *model.State, kind, account, payment string) string {
	ref := uuid.NewString()
	st.AddIntent(&model.Intent{
		Ref:       ref,
		Kind:      kind,
		Account:   account,
		Payment:   payment,
		CreatedAt: f.now,
	}, maxPendingIntents)
	return ref
}

// settle 把交易記為已入帳並取回對應的待確認請求。
// 交易先前已入帳時回傳 nil；message 對不上此玩家的請求時回傳錯誤，整筆交易放棄（包含入帳紀錄）。
func settle(f *frame, st *model.State, tx store.Tx, kind, intentHash, ref string) (*model.Intent, error) {
	fresh, err := tx.SettleIntent(kind, intentHash, f.now)
	if err != nil || !fresh {
		return nil, err
	}
	in, ok := st.TakeIntent(kind, ref)
	if !ok {
		return nil, errIntentMismatch
	}
	return in, nil
}

// lookup 查詢交易狀態；已提交時一併取回 message。
// 取不到 message 時無法確認交易屬於誰，降級為 unknown。
func (l *Lab) lookup(ctx context.Context, f *frame, playerID, intentHash string) (status external.TxStatus, message string, degraded bool) {
	status, err := external.Status(ctx, l.gateway, intentHash, l.lookupTimeout)
	if err != nil {
		l.log.Warn("transaction status degraded", "player", playerID, "intent", intentHash, "err", err)
		degraded = true
	}
	if status == external.TxCommitted {
		message, err = external.Message(ctx, l.gateway, intentHash, l.lookupTimeout)
		if err != nil {
			l.log.Warn("transaction message degraded", "player", playerID, "intent", intentHash, "err", err)
			status, degraded = external.TxUnknown, true
		}
	}
	f.entry.Degraded = degraded
	return status, message, degraded
}

// outcome 交易狀態對應的回應 status；只有 committed 需要入帳。
func outcome(status external.TxStatus) string {
	switch status {
	case external.TxCommitted:
		return dto.StatusOK
	case external.TxFailed:
		return string(external.TxFailed)
	default:
		return dto.StatusPending
	}
}

// CheckMintStatus 查詢 fomoHit 鑄造交易；交易已提交時清除機台的 provisional mint 旗標。
// 外部查詢失敗時回傳 unknown 並標記 degraded，不視為錯誤。
func (l *Lab) CheckMintStatus(ctx context.Context, playerID string, req *dto.CheckMintStatusRequest) (dto.MintStatusResult, error) {
	unlock, err := l.begin(ctx, playerID)
	if err != nil {
		return dto.MintStatusResult{}, err
	}
	defer unlock()

	f := &frame{now: l.now()}
	f.entry.MachineID = req.MachineID
	f.entry.Intent = req.IntentHash

	res := dto.MintStatusResult{Status: dto.StatusOK}
	status, serr := external.Status(ctx, l.gateway, req.IntentHash, l.lookupTimeout)
	res.TransactionStatus = status
	if serr != nil {
		l.log.Warn("mint status degraded", "player", playerID, "intent", req.IntentHash, "err", serr)
		res.Degraded = true
		f.entry.Degraded = true
	}
	if status != external.TxCommitted {
		f.quiet = true
	}

	err = l.run(ctx, playerID, ActionMintStatus, f, func(f *frame, st *model.State, tx store.Tx) error {
		m, err := machine(st, req.MachineID)
		if err != nil {
			return err
		}
		f.entry.MachineType = m.Type
		if status != external.TxCommitted || !m.ProvisionalMint {
			return nil
		}
		// 只在鑄造類別下入帳，其他類別的交易不受影響
		fresh, err := tx.SettleIntent(model.IntentMint, req.IntentHash, f.now)
		if err != nil {
			return err
		}
		if !fresh {
			res.AlreadySettled = true
			return nil
		}
		m.ProvisionalMint = false
		res.Cleared = true
		return nil
	})
	if err != nil {
		return dto.MintStatusResult{}, err
	}
	return res, nil
}

// BuyEnergy 產生購買能量的交易清單，由玩家的錢包簽署；入帳在 ConfirmEnergyPurchase。
func (l *Lab) BuyEnergy(ctx context.Context, playerID string, req *dto.BuyEnergyRequest) (dto.BuyEnergyResult, error) {
	var res dto.BuyEnergyResult
	_, err := l.do(ctx, playerID, ActionBuyEnergy, func(f *frame, st *model.State, _ store.Tx) error {
		if l.gateway == nil {
			return errs.Internal("ledger gateway not configured", nil)
		}
		manifest, err := l.gateway.EnergyPurchaseManifest(req.AccountAddress)
		if err != nil {
			return errs.Wrap(err, "Failed to create transaction manifest")
		}
		ep := l.es.EnergyPurchase
		res = dto.BuyEnergyResult{
			Status:       dto.StatusOK,
			Manifest:     manifest,
			Reference:    issue(f, st, model.IntentEnergy, req.AccountAddress, ""),
			EnergyAmount: ep.Energy,
			CvxCost:      ep.CvxCost,
			Message:      fmt.Sprintf("Please ensure you have at least %.1f CVX plus transaction fees in your wallet", ep.CvxCost),
		}
		return nil
	})
	if err != nil {
		return dto.BuyEnergyResult{}, err
	}
	return res, nil
}

// ConfirmEnergyPurchase 交易已提交且 message 對應到此玩家的購買請求時入帳能量。
// 同一筆交易只會入帳一次。
func (l *Lab) ConfirmEnergyPurchase(ctx context.Context, playerID string, req *dto.ConfirmEnergyRequest) (dto.ConfirmEnergyResult, error) {
	unlock, err := l.begin(ctx, playerID)
	if err != nil {
		return dto.ConfirmEnergyResult{}, err
	}
	defer unlock()

	f := &frame{now: l.now()}
	f.entry.Intent = req.IntentHash

	status, message, degraded := l.lookup(ctx, f, playerID, req.IntentHash)
	res := dto.ConfirmEnergyResult{Status: outcome(status), TransactionStatus: status, Degraded: degraded}
	if status != external.TxCommitted {
		return res, nil
	}

	err = l.run(ctx, playerID, ActionConfirmEnergy, f, func(f *frame, st *model.State, tx store.Tx) error {
		in, err := settle(f, st, tx, model.IntentEnergy, req.IntentHash, message)
		if err != nil {
			return err
		}
		if in == nil {
			res.AlreadySettled = true
		} else {
			gain := l.es.EnergyPurchase.Energy
			if err := st.Player.Resources.Add(ledger.Energy, gain); err != nil {
				return err
			}
			f.entry.Reward = ledger.Cost{ledger.Energy: gain}
		}
		energy := st.Player.Resources.Energy
		res.NewEnergy = &energy
		return nil
	})
	if err != nil {
		return dto.ConfirmEnergyResult{}, err
	}
	return res, nil
}

// MintEggManifest 產生鑄造蛋的交易清單。以蛋付款時先確認餘額，實際扣除在 CheckEggMintStatus。
func (l *Lab) MintEggManifest(ctx context.Context, playerID string, req *dto.MintEggRequest) (dto.MintEggResult, error) {
	var res dto.MintEggResult
	_, err := l.do(ctx, playerID, ActionMintEgg, func(f *frame, st *model.State, _ store.Tx) error {
		if l.gateway == nil {
			return errs.Internal("ledger gateway not configured", nil)
		}
		cost := l.es.EggMint
		payWithEggs := req.PaymentMethod == string(external.PayEggs)
		if payWithEggs && st.Player.Resources.Eggs < cost.EggsCost {
			return errs.Precondition(fmt.Sprintf("Not enough eggs. %.0f eggs required.", cost.EggsCost))
		}
		manifest, err := l.gateway.EggMintManifest(req.AccountAddress, payWithEggs, cost.XRDCost)
		if err != nil {
			return errs.Wrap(err, "Failed to create transaction manifest")
		}
		res = dto.MintEggResult{
			Status:        dto.StatusOK,
			Manifest:      manifest,
			Reference:     issue(f, st, model.IntentEgg, req.AccountAddress, req.PaymentMethod),
			PaymentMethod: req.PaymentMethod,
		}
		if payWithEggs {
			res.EggsCost = cost.EggsCost
		} else {
			res.XRDCost = cost.XRDCost
		}
		return nil
	})
	if err != nil {
		return dto.MintEggResult{}, err
	}
	return res, nil
}

// CheckEggMintStatus 確認鑄造蛋的交易。以蛋付款的請求在交易提交後扣除一次蛋。
func (l *Lab) CheckEggMintStatus(ctx context.Context, playerID string, req *dto.CheckEggMintRequest) (dto.EggMintStatusResult, error) {
	unlock, err := l.begin(ctx, playerID)
	if err != nil {
		return dto.EggMintStatusResult{}, err
	}
	defer unlock()

	f := &frame{now: l.now()}
	f.entry.Intent = req.IntentHash

	status, message, degraded := l.lookup(ctx, f, playerID, req.IntentHash)
	res := dto.EggMintStatusResult{Status: outcome(status), TransactionStatus: status, Degraded: degraded}
	if status != external.TxCommitted {
		return res, nil
	}

	err = l.run(ctx, playerID, ActionEggMintStatus, f, func(f *frame, st *model.State, tx store.Tx) error {
		in, err := settle(f, st, tx, model.IntentEgg, req.IntentHash, message)
		if err != nil {
			return err
		}
		if in == nil {
			res.AlreadySettled = true
		} else {
			res.PaymentMethod = in.Payment
			if in.Payment == string(external.PayEggs) {
				l.chargeEggs(f, st, &res)
			}
		}
		eggs := st.Player.Resources.Eggs
		res.NewEggs = &eggs
		return nil
	})
	if err != nil {
		return dto.EggMintStatusResult{}, err
	}
	return res, nil
}

// chargeEggs 扣除鑄造蛋的費用。鏈上交易已完成，餘額不足時只記警告不扣。
func (l *Lab) chargeEggs(f *frame, st *model.State, res *dto.EggMintStatusResult) {
	cost := ledger.Cost{ledger.Eggs: l.es.EggMint.EggsCost}
	if err := st.Player.Resources.Debit(cost); err != nil {
		l.log.Warn("egg mint settled without enough eggs", "player", f.entry.Player, "intent", f.entry.Intent, "eggs", st.Player.Resources.Eggs)
		return
	}
	f.entry.Cost = cost
	res.EggsCharged = l.es.EggMint.EggsCost
}
