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

package svrcfg

import (
	"testing"
	"time"

	cvxlab "github.com/Antigono00/First-minting-tools"
	"github.com/Antigono00/First-minting-tools/auth"
	"github.com/Antigono00/First-minting-tools/spec"
	"github.com/Antigono00/First-minting-tools/store"
)

func newLab(t *testing.T) *cvxlab.Lab {
	t.Helper()
	lab, err := cvxlab.New(spec.Default(), store.NewMemStore())
	if err != nil {
		t.Fatal(err)
	}
	return lab
}

func TestVaildRequiresLab(t *testing.T) {
	sc := &SvrCfg{Identity: auth.HeaderProvider{Header: "X-Player-Id"}}
	if err := sc.Vaild(); err == nil {
		t.Fatalf("expected error without lab")
	}
}

func TestVaildRequiresIdentity(t *testing.T) {
	sc := &SvrCfg{Lab: newLab(t)}
	if err := sc.Vaild(); err == nil {
		t.Fatalf("expected error without identity")
	}
}

func TestVaildDefaults(t *testing.T) {
	sess, err := auth.NewSessionProvider("secret", time.Hour, false)
	if err != nil {
		t.Fatal(err)
	}
	sc := &SvrCfg{Lab: newLab(t), Session: sess, Rate: 5}
	if err := sc.Vaild(); err != nil {
		t.Fatal(err)
	}
	if sc.Log == nil || sc.Identity == nil {
		t.Fatalf("log/identity not defaulted")
	}
	if sc.Addr != DefaultAddr || sc.RequestTimeout != DefaultRequestTimeout || sc.LoginMaxAge != DefaultLoginMaxAge {
		t.Fatalf("defaults not applied: %+v", sc)
	}
	if sc.Burst != 10 {
		t.Fatalf("burst = %d, want 10", sc.Burst)
	}
}
