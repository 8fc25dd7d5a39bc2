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

// Package perf 以 runtime/pprof 包住一段工作，輸出 profile 檔。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/Antigono00/First-minting-tools/errs"
)

// DefaultDir pprof 檔案寫入路徑
const DefaultDir = "build/profiling"

// Modes 支援的 profile 種類
var Modes = []string{"cpu", "heap", "allocs"}

// Run 依 mode 執行 exe 並寫出 profile；mode 為空字串時只執行 exe。
// 回傳 profile 路徑（沒有產生時為空字串）。
func Run(dir, mode string, exe func() error) (string, error) {
	if mode == "" {
		return "", exe()
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(err, "create profile dir")
	}
	path := filepath.Join(dir, mode+".pprof")

	switch mode {
	case "cpu":
		return path, cpu(path, exe)
	case "heap", "allocs":
		if err := exe(); err != nil {
			return "", err
		}
		return path, snapshot(path, mode)
	default:
		return "", errs.Warnf("unknown pprof mode %q (cpu|heap|allocs)", mode)
	}
}

func cpu(path string, exe func() error) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, "create cpu profile")
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "start cpu profile")
	}
	defer pprof.StopCPUProfile()
	return exe()
}

// snapshot 在工作完成後寫出一次快照。heap 先 GC 讓 live objects 較準確。
func snapshot(path, mode string) error {
	if mode == "heap" {
		runtime.GC()
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, "create "+mode+" profile")
	}
	defer f.Close()
	prof := pprof.Lookup(mode)
	if prof == nil {
		return errs.Warnf("profile %q not available", mode)
	}
	if err := prof.WriteTo(f, 0); err != nil {
		return errs.Wrap(err, "write "+mode+" profile")
	}
	return nil
}
