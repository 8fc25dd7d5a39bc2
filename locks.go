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
	"sync"

	"github.com/Antigono00/First-minting-tools/errs"
)

// playerLocks 以玩家 ID 為 key 的互斥鎖。
//
// 同一玩家的動作依序執行（包含動作前的外部查詢），不同玩家之間完全平行。
// 沒有人持有或等待的鎖會立即移除，map 大小只跟「正在動作的玩家數」有關。
type playerLocks struct {
	mu    sync.Mutex
	locks map[string]*playerLock
}

type playerLock struct {
	ch   chan struct{} // 容量 1：放得進去代表取得鎖
	refs int           // 持有者 + 等待者
}

func newPlayerLocks() *playerLocks {
	return &playerLocks{locks: make(map[string]*playerLock)}
}

// lock 取得 id 的鎖；ctx 取消時放棄等待。回傳的 unlock 只能呼叫一次。
func (pl *playerLocks) lock(ctx context.Context, id string) (func(), error) {
	pl.mu.Lock()
	l, ok := pl.locks[id]
	if !ok {
		l = &playerLock{ch: make(chan struct{}, 1)}
		pl.locks[id] = l
	}
	l.refs++
	pl.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			pl.release(id, l)
		}, nil
	case <-ctx.Done():
		pl.release(id, l)
		return nil, errs.Internal("wait for player lock canceled", ctx.Err())
	}
}

func (pl *playerLocks) release(id string, l *playerLock) {
	pl.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(pl.locks, id)
	}
	pl.mu.Unlock()
}

// size 目前存在的鎖數量（測試用）
func (pl *playerLocks) size() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.locks)
}
