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

// Package catalog 成本表：建造、升級、移動與寵物的價格。
//
// Catalog 只讀取 spec.EconomySetting 的數字；門檻判斷透過 Gates 介面注入，
// 回傳的成本一律是新的 map，呼叫端可以任意修改。
package catalog

import (
	"fmt"
	"math"

	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/spec"
)

var (
	ErrCapReached   = errs.Precondition("Cannot build more of this machine type.")
	ErrMaxLevel     = errs.Precondition("Max level reached or unknown machine type.")
	ErrUnknownType  = errs.Validation("Unknown machine type.")
	ErrGateRequired = errs.Precondition("Prerequisites for this machine are not met.")
)

// Gates 建造/升級需要的前置判斷（由 gating.Evaluator 實作）
type Gates interface {
	CanBuildThirdReactor() bool
	CanBuildIncubator() bool
	CanBuildFomoHit() bool
	CanUpgradeAmplifier(next int) bool
}

// Catalog 成本表
type Catalog struct {
	es *spec.EconomySetting
}

// New 以經濟設定建立成本表
func New(es *spec.EconomySetting) *Catalog {
	return &Catalog{es: es}
}

// Setting 取回底層設定
func (c *Catalog) Setting() *spec.EconomySetting { return c.es }

func (c *Catalog) machine(t model.MachineType) (*spec.MachineSetting, error) {
	ms, ok := c.es.Machine(t)
	if !ok {
		return nil, ErrUnknownType
	}
	return ms, nil
}

// BuildCost 已擁有 existing 台時，再建一台 t 的價格。
//
// 超過數量上限或門檻未達時回傳 Precondition 錯誤；門檻在成本之前判斷。
func (c *Catalog) BuildCost(t model.MachineType, existing int, g Gates) (ledger.Cost, error) {
	ms, err := c.machine(t)
	if err != nil {
		return nil, err
	}
	if existing < 0 || existing >= ms.Cap() {
		return nil, ErrCapReached
	}
	if ok, msg := buildGate(t, existing, g); !ok {
		return nil, ErrGateRequired.WithExtra(msg)
	}
	return ms.BuildTiers[existing].Scale(1), nil
}

// buildGate 需要門檻的建造：第三台反應爐、孵化器、fomoHit
func buildGate(t model.MachineType, existing int, g Gates) (bool, string) {
	switch {
	case t == model.Reactor && existing == 2:
		return g.CanBuildThirdReactor(), "third reactor requires an incubator and a fomoHit"
	case t == model.Incubator:
		return g.CanBuildIncubator(), "incubator requires every catLair and reactor at level 3 and an amplifier at level 5"
	case t == model.FomoHit:
		return g.CanBuildFomoHit(), "fomoHit requires a catLair, a reactor, an amplifier and an incubator"
	default:
		return true, ""
	}
}

// UpgradeCost 由 currentLevel 升一級的價格。
//
//   - doubling：base × 2^(next-1)，第二台再乘 SecondInstanceMult
//   - fixed：每級都是 base
//
// 增幅器升到 4、5 級需要額外門檻。
func (c *Catalog) UpgradeCost(t model.MachineType, currentLevel int, isSecond bool, g Gates) (ledger.Cost, error) {
	ms, err := c.machine(t)
	if err != nil {
		return nil, err
	}
	next := currentLevel + 1
	if currentLevel < 1 || next > ms.MaxLevel {
		return nil, ErrMaxLevel
	}
	if t == model.Amplifier && !g.CanUpgradeAmplifier(next) {
		return nil, ErrGateRequired.WithExtra(
			fmt.Sprintf("amplifier level %d requires catLair and reactor at level 3", next))
	}
	if ms.UpgradeScaling == spec.ScalingFixed {
		return ms.UpgradeBase.Scale(1), nil
	}
	mult := math.Pow(2, float64(next-1))
	if isSecond {
		mult *= ms.SecondInstanceMult
	}
	return ms.UpgradeBase.Scale(mult), nil
}

// MoveFee 移動機台的固定手續費
func (c *Catalog) MoveFee() ledger.Cost { return c.es.MoveFee.Scale(1) }

// PetPrice 寵物價格
func (c *Catalog) PetPrice() ledger.Cost { return c.es.PetSetting.Price.Scale(1) }
