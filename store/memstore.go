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

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/model"
)

// MemStore 記憶體實作。Update 在複本上執行 fn，成功後才替換，語意與 SQLite 相同。
type MemStore struct {
	mu      sync.RWMutex
	players map[string]*model.State
	intents map[string]string // kind/hash -> player
	nextMID int64
	nextPID int64
	closed  bool
}

// NewMemStore 建立空的 MemStore
func NewMemStore() *MemStore {
	return &MemStore{
		players: map[string]*model.State{},
		intents: map[string]string{},
	}
}

func (s *MemStore) View(_ context.Context, playerID string) (*model.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.players[playerID]
	if !ok {
		return &model.State{Player: model.Player{ID: playerID}}, nil
	}
	return st.Clone(), nil
}

func (s *MemStore) Update(ctx context.Context, playerID string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errs.Internal("store closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return errs.Internal("update canceled", err)
	}
	cur, ok := s.players[playerID]
	if !ok {
		cur = &model.State{Player: model.Player{ID: playerID}}
	}
	st := cur.Clone()
	tx := &memTx{parent: s, playerID: playerID, pending: map[string]string{}}
	if err := fn(st, tx); err != nil {
		return err
	}
	if !st.Player.Resources.NonNegative() {
		return errs.Internal("negative balance after update", nil)
	}
	for _, m := range st.Machines {
		if m.ID == 0 {
			s.nextMID++
			m.ID = s.nextMID
		}
		m.PlayerID = playerID
	}
	for _, p := range st.Pets {
		if p.ID == 0 {
			s.nextPID++
			p.ID = s.nextPID
		}
		p.PlayerID = playerID
	}
	for k, v := range tx.pending {
		s.intents[k] = v
	}
	s.players[playerID] = st.Clone()
	return nil
}

func (s *MemStore) EnsurePlayer(_ context.Context, playerID, firstName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.players[playerID]
	if ok {
		if firstName != "" {
			st.Player.FirstName = firstName
		}
		return false, nil
	}
	s.players[playerID] = &model.State{Player: model.Player{ID: playerID, FirstName: firstName}}
	return true, nil
}

func (s *MemStore) PlayerIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.players))
	for id := range s.players {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type memTx struct {
	parent   *MemStore
	playerID string
	pending  map[string]string
}

func (t *memTx) SettleIntent(kind, intentHash string, _ int64) (bool, error) {
	key := kind + "/" + intentHash
	if _, ok := t.parent.intents[key]; ok {
		return false, nil
	}
	if _, ok := t.pending[key]; ok {
		return false, nil
	}
	t.pending[key] = t.playerID
	return true, nil
}
