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

// Package store 玩家狀態的持久化。
//
// 每個動作都是「在交易中載入單一玩家的完整快照 → 在記憶體中驗證與修改 → 一次寫回」。
// fn 回傳錯誤時整筆交易放棄，因此驗證失敗永遠沒有副作用，
// 並行讀取也看不到一半的更新。
//
// 兩個實作：SQLite（正式環境，modernc.org/sqlite）與 MemStore（測試）。
package store

import (
	"context"

	"github.com/Antigono00/First-minting-tools/model"
)

// Tx 交易內可用的額外操作
type Tx interface {
	// SettleIntent 以 (kind, intentHash) 記錄一筆已入帳的外部交易；先前已記錄過時回傳 false。
	// 不同種類的同一個 hash 彼此獨立。
	SettleIntent(kind, intentHash string, atMs int64) (bool, error)
}

// UpdateFunc 交易內執行的修改；st 為可直接修改的快照。
type UpdateFunc func(st *model.State, tx Tx) error

// Store 玩家狀態儲存
type Store interface {
	// View 唯讀快照；不存在的玩家回傳只有 ID 的空快照。
	View(ctx context.Context, playerID string) (*model.State, error)
	// Update 在單一交易中載入、修改、寫回；玩家不存在時會先建立。
	Update(ctx context.Context, playerID string, fn UpdateFunc) error
	// EnsurePlayer 登入時建立玩家或更新顯示名稱；回傳是否為新建立。
	EnsurePlayer(ctx context.Context, playerID, firstName string) (bool, error)
	// PlayerIDs 所有玩家 ID（依字典序）
	PlayerIDs(ctx context.Context) ([]string, error)
	Close() error
}
