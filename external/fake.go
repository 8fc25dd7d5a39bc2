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

package external

import (
	"context"
	"fmt"
	"sync"
)

// FakeOracle 決定性的餘額來源；Err 不為 nil 時每次查詢都失敗。
type FakeOracle struct {
	mu       sync.Mutex
	Balances map[string]float64
	Err      error
	Calls    int
}

func (f *FakeOracle) FetchStakedBalance(ctx context.Context, account string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Balances[account], nil
}

// FakeLedger 決定性的外部帳本：鑄造請求依序編號，交易狀態由 Statuses 指定，
// Messages 為已提交交易的 message（前端放入的參考碼）。
type FakeLedger struct {
	mu         sync.Mutex
	Statuses   map[string]TxStatus
	Messages   map[string]string
	StatusErr  error
	MessageErr error
	MintErr    error
	CvxAmount  float64
	seq        int
}

func (f *FakeLedger) CreateMintRequest(_ context.Context, account string) (MintRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MintErr != nil {
		return MintRequest{}, f.MintErr
	}
	if err := ValidAccount(account); err != nil {
		return MintRequest{}, err
	}
	f.seq++
	return MintRequest{ID: fmt.Sprintf("mint-%d", f.seq), Account: account, Manifest: MintManifest(account)}, nil
}

func (f *FakeLedger) RequestStatus(_ context.Context, intentHash string) (TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatusErr != nil {
		return TxUnknown, f.StatusErr
	}
	if st, ok := f.Statuses[intentHash]; ok {
		return st, nil
	}
	return TxUnknown, nil
}

func (f *FakeLedger) EnergyPurchaseManifest(account string) (string, error) {
	if err := ValidAccount(account); err != nil {
		return "", err
	}
	return EnergyManifest(account, f.CvxAmount), nil
}

func (f *FakeLedger) TxMessage(_ context.Context, intentHash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MessageErr != nil {
		return "", f.MessageErr
	}
	return f.Messages[intentHash], nil
}

// Commit 把交易標記為已提交並附上 message
func (f *FakeLedger) Commit(intentHash, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Statuses == nil {
		f.Statuses = map[string]TxStatus{}
	}
	if f.Messages == nil {
		f.Messages = map[string]string{}
	}
	f.Statuses[intentHash] = TxCommitted
	f.Messages[intentHash] = message
}

func (f *FakeLedger) EggMintManifest(account string, payWithEggs bool, xrdCost float64) (string, error) {
	if err := ValidAccount(account); err != nil {
		return "", err
	}
	if payWithEggs {
		return BackendEggManifest(account), nil
	}
	return EggManifest(account, xrdCost), nil
}
