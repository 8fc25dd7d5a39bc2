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

// UpgradeScaling 升級成本的成長方式
type UpgradeScaling string

const (
	// ScalingDoubling : base × 2^(nextLevel-1)，第二台再乘 SecondInstanceMult
	ScalingDoubling UpgradeScaling = "doubling"
	// ScalingFixed : 每一級都是 base
	ScalingFixed UpgradeScaling = "fixed"
)

// MachineSetting 單一機台種類的成本與等級設定
//
// BuildTiers[i] 代表「已擁有 i 台時」再建一台的價格；長度即數量上限。
type MachineSetting struct {
	MaxLevel           int            `yaml:"max_level"            json:"max_level"`
	BuildOffline       bool           `yaml:"build_offline"        json:"build_offline"`
	BuildTiers         []ledger.Cost  `yaml:"build_tiers"          json:"build_tiers"`
	UpgradeBase        ledger.Cost    `yaml:"upgrade_base"         json:"upgrade_base"`
	UpgradeScaling     UpgradeScaling `yaml:"upgrade_scaling"      json:"upgrade_scaling"`
	SecondInstanceMult float64        `yaml:"second_instance_mult" json:"second_instance_mult"`
}

// Cap 數量上限
func (ms *MachineSetting) Cap() int { return len(ms.BuildTiers) }

func (ms *MachineSetting) init(t model.MachineType) error {
	if ms.MaxLevel < 1 {
		return errs.NewFatal(fmt.Sprintf("%s: max_level must >= 1", t))
	}
	if len(ms.BuildTiers) == 0 {
		return errs.NewFatal(fmt.Sprintf("%s: build_tiers is empty", t))
	}
	for i, c := range ms.BuildTiers {
		if err := validCost(fmt.Sprintf("%s.build_tiers[%d]", t, i), c); err != nil {
			return err
		}
	}
	if err := validCost(fmt.Sprintf("%s.upgrade_base", t), ms.UpgradeBase); err != nil {
		return err
	}
	switch ms.UpgradeScaling {
	case ScalingDoubling, ScalingFixed:
	case "":
		ms.UpgradeScaling = ScalingFixed
	default:
		return errs.NewFatal(fmt.Sprintf("%s: unknown upgrade_scaling %q", t, ms.UpgradeScaling))
	}
	if ms.SecondInstanceMult == 0 {
		ms.SecondInstanceMult = 1
	}
	if ms.SecondInstanceMult < 1 {
		return errs.NewFatal(fmt.Sprintf("%s: second_instance_mult must >= 1", t))
	}
	if ms.MaxLevel > 1 && len(ms.UpgradeBase) == 0 {
		return errs.NewFatal(fmt.Sprintf("%s: upgradable machine needs upgrade_base", t))
	}
	return nil
}

// ProductionSetting 啟動產出表
type ProductionSetting struct {
	CatLair   CatLairProduction   `yaml:"cat_lair"  json:"cat_lair"`
	Reactor   ReactorProduction   `yaml:"reactor"   json:"reactor"`
	Incubator IncubatorProduction `yaml:"incubator" json:"incubator"`
	FomoHit   FomoHitProduction   `yaml:"fomo_hit"  json:"fomo_hit"`
}

type CatLairProduction struct {
	CatNipsBase     float64 `yaml:"catnips_base"      json:"catnips_base"`
	CatNipsPerLevel float64 `yaml:"catnips_per_level" json:"catnips_per_level"`
}

type ReactorProduction struct {
	CatNipsCost            float64   `yaml:"catnips_cost"              json:"catnips_cost"`
	TCorvaxByLevel         []float64 `yaml:"tcorvax_by_level"          json:"tcorvax_by_level"`
	AmplifierBonusPerLevel float64   `yaml:"amplifier_bonus_per_level" json:"amplifier_bonus_per_level"`
	Energy                 float64   `yaml:"energy"                    json:"energy"`
}

// TCorvaxAt 依等級取基礎產出（等級 1 起算）
func (rp ReactorProduction) TCorvaxAt(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level > len(rp.TCorvaxByLevel) {
		level = len(rp.TCorvaxByLevel)
	}
	return rp.TCorvaxByLevel[level-1]
}

type IncubatorProduction struct {
	BaseDivisor   float64 `yaml:"base_divisor"    json:"base_divisor"`
	BaseCap       float64 `yaml:"base_cap"        json:"base_cap"`
	BonusDivisor  float64 `yaml:"bonus_divisor"   json:"bonus_divisor"`
	BonusMinLevel int     `yaml:"bonus_min_level" json:"bonus_min_level"`
	EggsDivisor   float64 `yaml:"eggs_divisor"    json:"eggs_divisor"`
}

type FomoHitProduction struct {
	TCorvax float64 `yaml:"tcorvax" json:"tcorvax"`
}

func (ps *ProductionSetting) init(reactorMaxLevel int) error {
	if len(ps.Reactor.TCorvaxByLevel) != reactorMaxLevel {
		return errs.NewFatal(fmt.Sprintf("reactor.tcorvax_by_level needs %d entries, got %d", reactorMaxLevel, len(ps.Reactor.TCorvaxByLevel)))
	}
	inc := ps.Incubator
	if inc.BaseDivisor <= 0 || inc.BonusDivisor <= 0 || inc.EggsDivisor <= 0 {
		return errs.NewFatal("incubator divisors must > 0")
	}
	if ps.Reactor.CatNipsCost < 0 || ps.CatLair.CatNipsBase < 0 || ps.FomoHit.TCorvax < 0 {
		return errs.NewFatal("production values must >= 0")
	}
	return nil
}
