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
	"bytes"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/Antigono00/First-minting-tools/errs"
	"gopkg.in/yaml.v3"
)

//go:embed economy.yaml
var defaultEconomy []byte

// Default 回傳內嵌的預設經濟設定。內嵌檔不合法屬於建置錯誤，直接 panic。
func Default() *EconomySetting {
	es, err := GetEconomySettingByYAML(defaultEconomy)
	if err != nil {
		panic(err)
	}
	return es
}

// Load 讀取外部設定檔，依副檔名選擇 YAML 或 JSON；path 為空時回傳 Default()。
func Load(path string) (*EconomySetting, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "failed to read economy setting")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return GetEconomySettingByJSON(data)
	default:
		return GetEconomySettingByYAML(data)
	}
}

// GetEconomySettingByYAML
// 會讀取 YAML 設定、初始化各子設定並執行基本檢查後回傳。
// 多寫或拼錯欄位會直接報錯。
func GetEconomySettingByYAML(data []byte) (*EconomySetting, error) {
	es := &EconomySetting{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(es); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}

	// 設定檔初始化
	if err := es.init(); err != nil {
		return nil, errs.Wrap(err, "economy setting initialized err")
	}

	return es, nil
}

// GetEconomySettingByJSON
// 會讀取 Json 設定、初始化各子設定並執行基本檢查後回傳
func GetEconomySettingByJSON(data []byte) (*EconomySetting, error) {
	es := &EconomySetting{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(es); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}

	// 設定檔初始化
	if err := es.init(); err != nil {
		return nil, errs.Wrap(err, "economy setting initialized err")
	}

	return es, nil
}
