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

// Package dto 定義 HTTP 邊界的請求/回應結構。
//
// 引擎本身回傳 model / activation 的型別；這裡負責把它們整理成前端使用的 JSON 形狀（camelCase 欄位）。
package dto

import (
	"github.com/Antigono00/First-minting-tools/activation"
	"github.com/Antigono00/First-minting-tools/external"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
)

// Status 固定的成功狀態字串
const (
	StatusOK      = "ok"
	StatusPending = "pending"
)

// GameState 玩家完整狀態
type GameState struct {
	TCorvax        float64          `json:"tcorvax"`
	CatNips        float64          `json:"catNips"`
	Energy         float64          `json:"energy"`
	Eggs           float64          `json:"eggs"`
	Machines       []*model.Machine `json:"machines"`
	Pets           []*model.Pet     `json:"pets"`
	RoomsUnlocked  int              `json:"roomsUnlocked"`
	SeenRoomUnlock bool             `json:"seenRoomUnlock"`
}

// NewGameState 由快照組出回應。machines / pets 為空時輸出 [] 而不是 null。
func NewGameState(st *model.State, roomsUnlocked int) GameState {
	gs := GameState{
		TCorvax:        st.Player.Resources.TCorvax,
		CatNips:        st.Player.Resources.CatNips,
		Energy:         st.Player.Resources.Energy,
		Eggs:           st.Player.Resources.Eggs,
		Machines:       st.Machines,
		Pets:           st.Pets,
		RoomsUnlocked:  roomsUnlocked,
		SeenRoomUnlock: st.Player.SeenRoomUnlock,
	}
	if gs.Machines == nil {
		gs.Machines = []*model.Machine{}
	}
	if gs.Pets == nil {
		gs.Pets = []*model.Pet{}
	}
	return gs
}

// Resources 四種資源餘額
func (gs GameState) Resources() ledger.Balances {
	return ledger.Balances{TCorvax: gs.TCorvax, CatNips: gs.CatNips, Energy: gs.Energy, Eggs: gs.Eggs}
}

// Position 放置位置
type Position struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Room int `json:"room"`
}

type BuildResult struct {
	Status        string          `json:"status"`
	MachineID     int64           `json:"machineId"`
	NewResources  ledger.Balances `json:"newResources"`
	RoomsUnlocked int             `json:"roomsUnlocked"`
}

type MoveResult struct {
	Status       string          `json:"status"`
	NewPosition  Position        `json:"newPosition"`
	NewResources ledger.Balances `json:"newResources"`
}

type UpgradeResult struct {
	Status       string          `json:"status"`
	NewLevel     int             `json:"newLevel"`
	NewResources ledger.Balances `json:"newResources"`
}

// ActivateResult 啟動回應。欄位依機種取捨，未用到的欄位省略。
type ActivateResult struct {
	Status      string `json:"status"`
	MachineID   int64  `json:"machineId"`
	MachineType string `json:"machineType"`
	// Message 只有增幅器狀態查詢會帶
	Message          string      `json:"message,omitempty"`
	NewLastActivated int64       `json:"newLastActivated,omitempty"`
	Reward           ledger.Cost `json:"reward,omitempty"`

	StakedCVX   *float64 `json:"stakedCVX,omitempty"`
	BaseReward  *float64 `json:"baseReward,omitempty"`
	BonusReward *float64 `json:"bonusReward,omitempty"`
	EggsReward  *float64 `json:"eggsReward,omitempty"`
	Degraded    bool     `json:"degraded,omitempty"`

	RequiresMint  bool   `json:"requiresMint,omitempty"`
	Manifest      string `json:"manifest,omitempty"`
	MintRequestID string `json:"mintRequestId,omitempty"`

	UpdatedResources *ledger.Balances `json:"updatedResources,omitempty"`
}

// NewActivateResult 依機種把 Outcome 轉成回應。
func NewActivateResult(machineID int64, out activation.Outcome, bal ledger.Balances) ActivateResult {
	r := ActivateResult{
		Status:      StatusOK,
		MachineID:   machineID,
		MachineType: string(out.Type),
	}
	if out.StatusOnly {
		r.Message = "Amplifier is offline"
		if out.Online {
			r.Message = "Amplifier is online"
		}
		return r
	}
	r.NewLastActivated = out.LastActivated
	if out.Mint != nil {
		r.RequiresMint = true
		r.Manifest = out.Mint.Manifest
		r.MintRequestID = out.Mint.ID
		return r
	}
	r.Reward = out.Reward
	if out.Type == model.Incubator {
		staked, base, bonus, eggs := out.StakedBalance, out.BaseReward, out.BonusReward, out.EggsReward
		r.StakedCVX, r.BaseReward, r.BonusReward, r.EggsReward = &staked, &base, &bonus, &eggs
		r.Degraded = out.Degraded
	}
	r.UpdatedResources = &bal
	return r
}

type SyncLayoutResult struct {
	Status  string `json:"status"`
	Updated int    `json:"updated"`
}

type PetsResult struct {
	Pets []*model.Pet `json:"pets"`
}

// NewPetsResult pets 為空時輸出 []
func NewPetsResult(pets []*model.Pet) PetsResult {
	if pets == nil {
		pets = []*model.Pet{}
	}
	return PetsResult{Pets: pets}
}

type BuyPetResult struct {
	Status       string          `json:"status"`
	PetID        int64           `json:"petId"`
	NewResources ledger.Balances `json:"newResources"`
}

type MovePetResult struct {
	Status      string   `json:"status"`
	NewPosition Position `json:"newPosition"`
}

// StatusResult 只回傳狀態的動作（dismissRoomUnlock）
type StatusResult struct {
	Status string `json:"status"`
}

// MintStatusResult 鑄造交易狀態。Cleared 代表本次把 provisional mint 旗標清掉了。
type MintStatusResult struct {
	Status            string            `json:"status"`
	TransactionStatus external.TxStatus `json:"transactionStatus"`
	Cleared           bool              `json:"cleared"`
	AlreadySettled    bool              `json:"alreadySettled,omitempty"`
	Degraded          bool              `json:"degraded,omitempty"`
}

// BuyEnergyResult Reference 必須作為交易 message 送出，入帳時用來對應這筆購買。
type BuyEnergyResult struct {
	Status       string  `json:"status"`
	Manifest     string  `json:"manifest"`
	Reference    string  `json:"reference"`
	EnergyAmount float64 `json:"energyAmount"`
	CvxCost      float64 `json:"cvxCost"`
	Message      string  `json:"message"`
}

// MintEggResult 鑄造蛋的交易清單；Reference 的用法同 BuyEnergyResult。
type MintEggResult struct {
	Status        string  `json:"status"`
	Manifest      string  `json:"manifest"`
	Reference     string  `json:"reference"`
	PaymentMethod string  `json:"paymentMethod"`
	EggsCost      float64 `json:"eggsCost,omitempty"`
	XRDCost       float64 `json:"xrdCost,omitempty"`
}

// EggMintStatusResult 鑄造蛋的交易狀態。以蛋付款時，提交後才扣除 EggsCharged。
type EggMintStatusResult struct {
	Status            string            `json:"status"`
	TransactionStatus external.TxStatus `json:"transactionStatus"`
	PaymentMethod     string            `json:"paymentMethod,omitempty"`
	EggsCharged       float64           `json:"eggsCharged"`
	NewEggs           *float64          `json:"newEggs,omitempty"`
	AlreadySettled    bool              `json:"alreadySettled,omitempty"`
	Degraded          bool              `json:"degraded,omitempty"`
}

// ConfirmEnergyResult 確認能量購買。同一筆交易只入帳一次；AlreadySettled 代表先前已入帳。
type ConfirmEnergyResult struct {
	Status            string            `json:"status"`
	TransactionStatus external.TxStatus `json:"transactionStatus"`
	NewEnergy         *float64          `json:"newEnergy,omitempty"`
	AlreadySettled    bool              `json:"alreadySettled,omitempty"`
	Degraded          bool              `json:"degraded,omitempty"`
}

type WhoAmI struct {
	LoggedIn  bool   `json:"loggedIn"`
	PlayerID  string `json:"playerId,omitempty"`
	FirstName string `json:"firstName,omitempty"`
}
