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

// Package recorder 動作紀錄（journal）
//
// 每一筆成功或被拒絕的玩家動作都會留下一筆 Entry，寫成每小時輪替的 JSONL + zstd 檔案，
// 供事後稽核與 admin 統計使用。紀錄失敗不影響動作本身。
package recorder

import (
	"sync"

	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/upkeep"
)

// Entry 一筆動作紀錄
type Entry struct {
	AtMs        int64             `json:"at_ms"`
	Player      string            `json:"player"`
	Action      string            `json:"action"`
	MachineID   int64             `json:"machine_id,omitempty"`
	MachineType model.MachineType `json:"machine_type,omitempty"`
	Level       int               `json:"level,omitempty"`
	Cost        ledger.Cost       `json:"cost,omitempty"`
	Reward      ledger.Cost       `json:"reward,omitempty"`
	Upkeep      []upkeep.Event    `json:"upkeep,omitempty"`
	Degraded    bool              `json:"degraded,omitempty"`
	Intent      string            `json:"intent,omitempty"`
	ErrKind     string            `json:"err_kind,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Recorder 紀錄介面
type Recorder interface {
	Record(e Entry) error
	Close() error
}

// Nop 不做任何事
type Nop struct{}

func (Nop) Record(Entry) error { return nil }
func (Nop) Close() error       { return nil }

// Memory 保存在記憶體，測試用
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *Memory) Record(e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) Close() error { return nil }

// Entries 回傳目前所有紀錄的複本
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}
