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

// Package placement 放置驗證：地圖邊界、房間與同房間碰撞。
//
// 每個房間都是獨立的平面；機台佔一個 Size×Size 的正方形，
// 左上角座標必須落在 [0, Width-Size]×[0, Height-Size]。
package placement

import (
	"fmt"

	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/spec"
)

var (
	ErrOutOfBounds = errs.Validation("Cannot build outside map boundaries.")
	ErrCollision   = errs.Validation("Cannot build here!")
	ErrRoomLocked  = errs.Validation("Room is not unlocked.")
)

// Position 放置位置
type Position struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Room int `json:"room"`
}

// Validator 放置驗證器
type Validator struct {
	Width, Height, Size int
}

// New 以地圖設定建立 Validator
func New(ms spec.MapSetting) *Validator {
	return &Validator{Width: ms.Width, Height: ms.Height, Size: ms.MachineSize}
}

// MaxX / MaxY 左上角座標的上限
func (v *Validator) MaxX() int { return v.Width - v.Size }
func (v *Validator) MaxY() int { return v.Height - v.Size }

// CheckBounds 邊界檢查
func (v *Validator) CheckBounds(p Position) error {
	if p.X < 0 || p.X > v.MaxX() || p.Y < 0 || p.Y > v.MaxY() {
		return ErrOutOfBounds.WithExtra(fmt.Sprintf("x=%d y=%d", p.X, p.Y))
	}
	return nil
}

// CheckRoom 房間必須在 1..roomsUnlocked 之間
func (v *Validator) CheckRoom(p Position, roomsUnlocked int) error {
	if p.Room < 1 || p.Room > roomsUnlocked {
		return ErrRoomLocked.WithExtra(fmt.Sprintf("room=%d unlocked=%d", p.Room, roomsUnlocked))
	}
	return nil
}

// Overlaps 兩個同尺寸正方形是否重疊（邊貼邊不算）
func (v *Validator) Overlaps(a, b Position) bool {
	if a.Room != b.Room {
		return false
	}
	return abs(a.X-b.X) < v.Size && abs(a.Y-b.Y) < v.Size
}

// CheckCollision 與同房間的其他機台是否重疊；self 為移動中的機台本身（新建時為 nil）。
func (v *Validator) CheckCollision(p Position, machines []*model.Machine, self *model.Machine) error {
	for _, m := range machines {
		if m == self {
			continue
		}
		if v.Overlaps(p, PositionOf(m)) {
			return ErrCollision.WithExtra(fmt.Sprintf("overlaps machine %d", m.ID))
		}
	}
	return nil
}

// Check 依序檢查邊界、房間、碰撞
func (v *Validator) Check(p Position, roomsUnlocked int, machines []*model.Machine, self *model.Machine) error {
	if err := v.CheckBounds(p); err != nil {
		return err
	}
	if err := v.CheckRoom(p, roomsUnlocked); err != nil {
		return err
	}
	return v.CheckCollision(p, machines, self)
}

// CheckLayout 驗證一整份排版：每台機台的新位置都要合法，且最終排版兩兩不重疊。
// layout 以機台 ID 為 key；不在 layout 內的機台維持原位。
func (v *Validator) CheckLayout(layout map[int64]Position, machines []*model.Machine, roomsUnlocked int) error {
	final := make([]Position, len(machines))
	for i, m := range machines {
		p, ok := layout[m.ID]
		if !ok {
			final[i] = PositionOf(m)
			continue
		}
		if err := v.CheckBounds(p); err != nil {
			return err
		}
		if err := v.CheckRoom(p, roomsUnlocked); err != nil {
			return err
		}
		final[i] = p
	}
	for i := range final {
		for j := i + 1; j < len(final); j++ {
			if v.Overlaps(final[i], final[j]) {
				return ErrCollision.WithExtra(fmt.Sprintf("machines %d and %d overlap", machines[i].ID, machines[j].ID))
			}
		}
	}
	return nil
}

// PositionOf 取得機台目前位置
func PositionOf(m *model.Machine) Position {
	return Position{X: m.X, Y: m.Y, Room: m.Room}
}

// Apply 把位置寫回機台
func Apply(m *model.Machine, p Position) {
	m.X, m.Y, m.Room = p.X, p.Y, p.Room
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
