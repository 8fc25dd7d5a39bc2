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

package model

import "testing"

func TestAddIntentKeepsNewestPerKind(t *testing.T) {
	s := &State{}
	s.AddIntent(&Intent{Ref: "e1", Kind: IntentEnergy}, 2)
	s.AddIntent(&Intent{Ref: "g1", Kind: IntentEgg}, 2)
	s.AddIntent(&Intent{Ref: "e2", Kind: IntentEnergy}, 2)
	s.AddIntent(&Intent{Ref: "e3", Kind: IntentEnergy}, 2)

	var refs []string
	for _, in := range s.Intents {
		refs = append(refs, in.Ref)
	}
	if len(refs) != 3 || refs[0] != "g1" || refs[1] != "e2" || refs[2] != "e3" {
		t.Fatalf("refs=%v", refs)
	}
}

func TestTakeIntentMatchesKindAndRef(t *testing.T) {
	s := &State{}
	s.AddIntent(&Intent{Ref: "r1", Kind: IntentEnergy}, 0)
	if _, ok := s.TakeIntent(IntentEgg, "r1"); ok {
		t.Fatalf("kind mismatch should not match")
	}
	if !s.HasIntents(IntentEnergy) || s.HasIntents(IntentEgg) {
		t.Fatalf("HasIntents wrong: %+v", s.Intents)
	}
	in, ok := s.TakeIntent(IntentEnergy, "r1")
	if !ok || in.Ref != "r1" || len(s.Intents) != 0 {
		t.Fatalf("take: ok=%v intents=%+v", ok, s.Intents)
	}
}

func TestCloneCopiesIntents(t *testing.T) {
	s := &State{}
	s.AddIntent(&Intent{Ref: "r1", Kind: IntentEgg, Payment: "eggs"}, 0)
	c := s.Clone()
	c.Intents[0].Payment = "xrd"
	if s.Intents[0].Payment != "eggs" {
		t.Fatalf("clone shares intents")
	}
}
