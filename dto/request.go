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

package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/external"
)

// maxBody 請求 body 上限（1MiB）
const maxBody = 1 << 20

// Validator 請求自我檢查：欄位缺漏與基本格式，不涉及玩家狀態。
type Validator interface {
	Validate() error
}

// Decode 把 POST JSON body 解碼到 v 並執行 Validate。
//
// 注意：
//   - body 超過 1MiB 會被截斷並視為格式錯誤。
//   - 開啟 DisallowUnknownFields()，未知欄位一律拒絕，避免靜默丟資料。
//   - 空 body 視為 {}，再交給 Validate 判斷必要欄位。
func Decode[T any, PT interface {
	*T
	Validator
}](r *http.Request) (*T, error) {
	if r == nil {
		return nil, errs.Validation("nil request")
	}
	if r.Method != http.MethodPost {
		return nil, errs.Validation("method not allowed")
	}
	req := new(T)
	if r.Body != nil {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
			return nil, errs.Validation(fmt.Sprintf("invalid json: %v", err))
		}
	}
	if err := PT(req).Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// defaultRoom 未指定房間時放在第 1 間
func defaultRoom(room int) int {
	if room == 0 {
		return 1
	}
	return room
}

type BuildRequest struct {
	MachineType string `json:"machineType"`
	X           *int   `json:"x"`
	Y           *int   `json:"y"`
	Room        int    `json:"room"`
}

func (r *BuildRequest) Validate() error {
	if r.MachineType == "" || r.X == nil || r.Y == nil {
		return errs.Validation("Missing machineType or coordinates")
	}
	r.Room = defaultRoom(r.Room)
	return nil
}

type MoveRequest struct {
	MachineID int64 `json:"machineId"`
	X         *int  `json:"x"`
	Y         *int  `json:"y"`
	Room      int   `json:"room"`
}

func (r *MoveRequest) Validate() error {
	if r.MachineID == 0 || r.X == nil || r.Y == nil {
		return errs.Validation("Missing machineId or coordinates")
	}
	r.Room = defaultRoom(r.Room)
	return nil
}

type UpgradeRequest struct {
	MachineID int64 `json:"machineId"`
}

func (r *UpgradeRequest) Validate() error {
	if r.MachineID == 0 {
		return errs.Validation("Missing machineId")
	}
	return nil
}

type ActivateRequest struct {
	MachineID      int64  `json:"machineId"`
	AccountAddress string `json:"accountAddress,omitempty"`
}

func (r *ActivateRequest) Validate() error {
	if r.MachineID == 0 {
		return errs.Validation("Missing machineId")
	}
	return nil
}

// LayoutItem 單台機台的新位置
type LayoutItem struct {
	ID   int64 `json:"id"`
	X    int   `json:"x"`
	Y    int   `json:"y"`
	Room int   `json:"room"`
}

type SyncLayoutRequest struct {
	Machines []LayoutItem `json:"machines"`
}

// Validate 同一台機台重複出現視為格式錯誤
func (r *SyncLayoutRequest) Validate() error {
	seen := make(map[int64]struct{}, len(r.Machines))
	for i := range r.Machines {
		it := &r.Machines[i]
		if it.ID == 0 {
			return errs.Validation("Missing machine id in layout")
		}
		if _, dup := seen[it.ID]; dup {
			return errs.Validation(fmt.Sprintf("duplicate machine id in layout: %d", it.ID))
		}
		seen[it.ID] = struct{}{}
		it.Room = defaultRoom(it.Room)
	}
	return nil
}

type BuyPetRequest struct {
	PetType       string `json:"petType"`
	X             *int   `json:"x"`
	Y             *int   `json:"y"`
	Room          int    `json:"room"`
	ParentMachine *int64 `json:"parentMachine,omitempty"`
}

func (r *BuyPetRequest) Validate() error {
	if r.X == nil || r.Y == nil {
		return errs.Validation("Missing coordinates")
	}
	if r.PetType == "" {
		r.PetType = "cat"
	}
	r.Room = defaultRoom(r.Room)
	return nil
}

type MovePetRequest struct {
	PetID int64 `json:"petId"`
	X     *int  `json:"x"`
	Y     *int  `json:"y"`
	Room  int   `json:"room"`
}

func (r *MovePetRequest) Validate() error {
	if r.PetID == 0 || r.X == nil || r.Y == nil {
		return errs.Validation("Missing petId or coordinates")
	}
	r.Room = defaultRoom(r.Room)
	return nil
}

type CheckMintStatusRequest struct {
	IntentHash string `json:"intentHash"`
	MachineID  int64  `json:"machineId"`
}

func (r *CheckMintStatusRequest) Validate() error {
	if r.IntentHash == "" || r.MachineID == 0 {
		return errs.Validation("Missing intentHash or machineId")
	}
	return nil
}

type BuyEnergyRequest struct {
	AccountAddress string `json:"accountAddress"`
}

func (r *BuyEnergyRequest) Validate() error {
	if r.AccountAddress == "" {
		return errs.Validation("No account address provided")
	}
	return nil
}

type ConfirmEnergyRequest struct {
	IntentHash string `json:"intentHash"`
}

func (r *ConfirmEnergyRequest) Validate() error {
	if r.IntentHash == "" {
		return errs.Validation("Missing transaction intent hash")
	}
	return nil
}

type MintEggRequest struct {
	AccountAddress string `json:"accountAddress"`
	PaymentMethod  string `json:"paymentMethod"`
}

// Validate 付款方式預設為 xrd
func (r *MintEggRequest) Validate() error {
	if r.AccountAddress == "" {
		return errs.Validation("No account address provided")
	}
	switch r.PaymentMethod {
	case "":
		r.PaymentMethod = string(external.PayXRD)
	case string(external.PayXRD), string(external.PayEggs):
	default:
		return errs.Validation("paymentMethod must be eggs or xrd")
	}
	return nil
}

type CheckEggMintRequest struct {
	IntentHash string `json:"intentHash"`
}

func (r *CheckEggMintRequest) Validate() error {
	if r.IntentHash == "" {
		return errs.Validation("Missing transaction intent hash")
	}
	return nil
}

// Empty 不需要 body 的動作（dismissRoomUnlock）
type Empty struct{}

func (*Empty) Validate() error { return nil }
