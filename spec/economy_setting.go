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

package spec

import (
	"fmt"

	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
)

// EconomySetting 包含經濟引擎所需的所有數值設定（成本表、冷卻、維護費、地圖尺寸…）。
//
// 規則（門檻判斷、狀態轉移）寫在程式裡；這裡只放「數字」。
// 設定檔只在啟動時解析並驗證一次，之後唯讀。
type EconomySetting struct {
	EconomyName       string                                 `yaml:"economy_name"       json:"economy_name"`
	CooldownMs        int64                                  `yaml:"cooldown_ms"        json:"cooldown_ms"`
	MapSetting        MapSetting                             `yaml:"map_setting"        json:"map_setting"`
	MoveFee           ledger.Cost                            `yaml:"move_fee"           json:"move_fee"`
	UpkeepSetting     UpkeepSetting                          `yaml:"upkeep_setting"     json:"upkeep_setting"`
	MachineSettings   map[model.MachineType]*MachineSetting `yaml:"machine_settings"   json:"machine_settings"`
	ProductionSetting ProductionSetting                      `yaml:"production_setting" json:"production_setting"`
	PetSetting        PetSetting                             `yaml:"pet_setting"        json:"pet_setting"`
	EnergyPurchase    EnergyPurchase                         `yaml:"energy_purchase"    json:"energy_purchase"`
	EggMint           EggMint                                `yaml:"egg_mint"           json:"egg_mint"`
}

// MapSetting 放置平面：每個房間都是同尺寸、彼此獨立的平面。
type MapSetting struct {
	Width       int `yaml:"width"        json:"width"`
	Height      int `yaml:"height"       json:"height"`
	MachineSize int `yaml:"machine_size" json:"machine_size"`
	MaxRooms    int `yaml:"max_rooms"    json:"max_rooms"`
}

// UpkeepSetting 增幅器（amplifier）維護費：每 IntervalMs 扣 CostPerLevel*level 能量。
type UpkeepSetting struct {
	IntervalMs   int64   `yaml:"interval_ms"    json:"interval_ms"`
	CostPerLevel float64 `yaml:"cost_per_level" json:"cost_per_level"`
}

// PetSetting 寵物購買
type PetSetting struct {
	Price      ledger.Cost `yaml:"price"        json:"price"`
	OnePerType bool        `yaml:"one_per_type" json:"one_per_type"`
}

// EnergyPurchase 以外部代幣購買能量
type EnergyPurchase struct {
	Energy  float64 `yaml:"energy"   json:"energy"`
	CvxCost float64 `yaml:"cvx_cost" json:"cvx_cost"`
}

// EggMint 鑄造蛋 NFT：以遊戲內的蛋或 XRD 付款
type EggMint struct {
	EggsCost float64 `yaml:"eggs_cost" json:"eggs_cost"`
	XRDCost  float64 `yaml:"xrd_cost"  json:"xrd_cost"`
}

// Machine 取得指定機台種類的設定
func (es *EconomySetting) Machine(t model.MachineType) (*MachineSetting, bool) {
	ms, ok := es.MachineSettings[t]
	return ms, ok
}

// init 初始化並檢查
func (es *EconomySetting) init() error {
	for _, t := range model.MachineTypes {
		ms, ok := es.MachineSettings[t]
		if !ok || ms == nil {
			return errs.NewFatal(fmt.Sprintf("machine_settings: missing %s", t))
		}
		if err := ms.init(t); err != nil {
			return err
		}
	}
	if err := es.ProductionSetting.init(es.MachineSettings[model.Reactor].MaxLevel); err != nil {
		return err
	}
	return es.valid()
}

// valid 執行最基本的設定檔檢查，如需更多驗證可在此擴充。
func (es *EconomySetting) valid() error {
	if es.CooldownMs <= 0 {
		return errs.NewFatal("cooldown_ms must > 0")
	}
	m := es.MapSetting
	if m.MachineSize <= 0 || m.Width < m.MachineSize || m.Height < m.MachineSize {
		return errs.NewFatal(fmt.Sprintf("invalid map dimensions: w=%d h=%d size=%d", m.Width, m.Height, m.MachineSize))
	}
	if m.MaxRooms < 1 {
		return errs.NewFatal("map_setting.max_rooms must >= 1")
	}
	if es.UpkeepSetting.IntervalMs <= 0 || es.UpkeepSetting.CostPerLevel < 0 {
		return errs.NewFatal("invalid upkeep_setting")
	}
	if err := validCost("move_fee", es.MoveFee); err != nil {
		return err
	}
	if err := validCost("pet_setting.price", es.PetSetting.Price); err != nil {
		return err
	}
	if es.EnergyPurchase.Energy < 0 || es.EnergyPurchase.CvxCost < 0 {
		return errs.NewFatal("invalid energy_purchase")
	}
	if es.EggMint.EggsCost <= 0 || es.EggMint.XRDCost < 0 {
		return errs.NewFatal("invalid egg_mint")
	}
	return nil
}

func validCost(name string, c ledger.Cost) error {
	for r, v := range c {
		if _, ok := ledger.Parse(string(r)); !ok {
			return errs.NewFatal(fmt.Sprintf("%s: unknown resource %q", name, r))
		}
		if v < 0 {
			return errs.NewFatal(fmt.Sprintf("%s: negative %s", name, r))
		}
	}
	return nil
}
