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

// 開發用任務：go run ./scripts <task>
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// task 一組 go 指令，filter 決定每一行輸出要不要印、用什麼顏色
type task struct {
	args   []string
	filter func(line string) (*color.Color, bool)
}

var tasks = map[string]task{
	// 只看每個套件 ok/FAIL，編譯錯誤照印
	"test": {
		args: []string{"test", "./...", "-cover", "-count=1"},
		filter: func(line string) (*color.Color, bool) {
			switch {
			case strings.HasPrefix(line, "ok"):
				return green, true
			case strings.HasPrefix(line, "FAIL"),
				strings.Contains(line, "build failed"),
				strings.Contains(line, "setup failed"):
				return red, true
			}
			return nil, false
		},
	},
	"test-all": {args: []string{"test", "./...", "-cover"}},
	"test-detail": {
		args: []string{"test", "./...", "-v", "-count=1"},
		filter: func(line string) (*color.Color, bool) {
			switch {
			case strings.Contains(line, "[no test files]"):
				return nil, false
			case strings.HasPrefix(line, "ok"):
				return green, true
			case strings.HasPrefix(line, "FAIL"):
				return red, true
			}
			return nil, true
		},
	},
	// 只跑 HTTP 層（含 JSON schema 驗證）
	"test-api": {args: []string{"test", "./server/...", "-count=1"}},
	"vet":      {args: []string{"vet", "./..."}},
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts [test|test-all|test-detail|test-api|vet]")
		os.Exit(1)
	}
	name := os.Args[1]
	t, ok := tasks[name]
	if !ok {
		yellow.Printf("Unknown task: %s\n", name)
		os.Exit(1)
	}
	green.Println("running " + name)
	if err := clean(); err != nil {
		red.Printf("go clean -testcache failed: %v\n", err)
		os.Exit(1)
	}
	if err := t.run(); err != nil {
		red.Printf("\n%s finished with errors\n", name)
		os.Exit(1)
	}
}

func clean() error {
	cmd := exec.Command("go", "clean", "-testcache")
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	return cmd.Run()
}

func (t task) run() error {
	cmd := exec.Command("go", t.args...)
	if t.filter == nil {
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
		return cmd.Run()
	}
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return err
	}
	sc := bufio.NewScanner(pipe)
	for sc.Scan() {
		line := sc.Text()
		c, show := t.filter(line)
		switch {
		case !show:
		case c == nil:
			fmt.Println(line)
		default:
			c.Println(line)
		}
	}
	if err := sc.Err(); err != nil {
		red.Printf("scanner error: %v\n", err)
	}
	return cmd.Wait()
}
