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

package perf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRunWithoutMode(t *testing.T) {
	called := false
	out, err := Run(t.TempDir(), "", func() error { called = true; return nil })
	if err != nil || out != "" || !called {
		t.Fatalf("out=%q err=%v called=%v", out, err, called)
	}
}

func TestRunWritesProfile(t *testing.T) {
	dir := t.TempDir()
	for _, mode := range Modes {
		out, err := Run(dir, mode, func() error { return nil })
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		if out != filepath.Join(dir, mode+".pprof") {
			t.Fatalf("%s: out=%q", mode, out)
		}
		if fi, err := os.Stat(out); err != nil || fi.Size() == 0 {
			t.Fatalf("%s: profile missing: %v", mode, err)
		}
	}
}

func TestRunPropagatesWorkError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := Run(t.TempDir(), "heap", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if _, err := Run(t.TempDir(), "trace", func() error { return nil }); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}
