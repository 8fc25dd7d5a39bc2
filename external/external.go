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

// Package external 定義經濟引擎依賴的外部協作者（區塊鏈餘額查詢、交易狀態、交易清單）。
//
// 核心邏輯只依賴這裡的介面；實際的 HTTP 客戶端在 radix.go，測試用的決定性假物件在 fake.go。
// 外部查詢失敗不會讓動作失敗：Lookup 把「合法的 0」與「查不到所以當 0」區分開來。
package external

import (
	"context"
	"time"

	"github.com/Antigono00/First-minting-tools/errs"
)

// TxStatus 外部交易狀態
type TxStatus string

const (
	TxCommitted TxStatus = "committed"
	TxPending   TxStatus = "pending"
	TxFailed    TxStatus = "failed"
	TxUnknown   TxStatus = "unknown"
)

// BalanceOracle 查詢帳戶的質押（staked）餘額
type BalanceOracle interface {
	FetchStakedBalance(ctx context.Context, account string) (float64, error)
}

// LedgerGateway 外部帳本：建立鑄造請求、查詢交易狀態、產生交易清單。
type LedgerGateway interface {
	CreateMintRequest(ctx context.Context, account string) (MintRequest, error)
	RequestStatus(ctx context.Context, intentHash string) (TxStatus, error)
	// TxMessage 已提交交易附帶的純文字 message；沒有 message 時回傳空字串。
	TxMessage(ctx context.Context, intentHash string) (string, error)
	EnergyPurchaseManifest(account string) (string, error)
	// EggMintManifest payWithEggs 為 true 時由後端徽章鑄造（遊戲內扣蛋），否則以 xrdCost XRD 付款。
	EggMintManifest(account string, payWithEggs bool, xrdCost float64) (string, error)
}

// EggPayment 鑄造蛋的付款方式
type EggPayment string

const (
	PayEggs EggPayment = "eggs"
	PayXRD  EggPayment = "xrd"
)

// MintRequest 交給外部帳本執行的鑄造請求描述
type MintRequest struct {
	ID       string `json:"id"`
	Account  string `json:"account"`
	Manifest string `json:"manifest"`
}

// Lookup 一次外部查詢的結果。Degraded 為 true 時 Value 一律為 0，Err 保留原因供記錄。
type Lookup struct {
	Value    float64
	Degraded bool
	Err      error
}

// StakedBalance 在 timeout 內查詢餘額；沒有帳戶、逾時或失敗都降級為 0。
func StakedBalance(ctx context.Context, o BalanceOracle, account string, timeout time.Duration) Lookup {
	if account == "" {
		return Lookup{Degraded: true, Err: errs.Degraded("no account address provided", nil)}
	}
	if o == nil {
		return Lookup{Degraded: true, Err: errs.Degraded("balance oracle not configured", nil)}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	v, err := o.FetchStakedBalance(ctx, account)
	if err != nil {
		return Lookup{Degraded: true, Err: errs.Degraded("staked balance lookup failed", err)}
	}
	if v < 0 {
		v = 0
	}
	return Lookup{Value: v}
}

// Status 在 timeout 內查詢交易狀態；失敗時回傳 TxUnknown。
func Status(ctx context.Context, g LedgerGateway, intentHash string, timeout time.Duration) (TxStatus, error) {
	if g == nil {
		return TxUnknown, errs.Degraded("ledger gateway not configured", nil)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	st, err := g.RequestStatus(ctx, intentHash)
	if err != nil {
		return TxUnknown, errs.Degraded("transaction status lookup failed", err)
	}
	return st, nil
}

// Message 在 timeout 內查詢交易 message；失敗時回傳降級錯誤。
func Message(ctx context.Context, g LedgerGateway, intentHash string, timeout time.Duration) (string, error) {
	if g == nil {
		return "", errs.Degraded("ledger gateway not configured", nil)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	msg, err := g.TxMessage(ctx, intentHash)
	if err != nil {
		return "", errs.Degraded("transaction message lookup failed", err)
	}
	return msg, nil
}
