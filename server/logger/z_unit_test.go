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

package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseMode(t *testing.T) {
	cases := map[string]LogMode{
		"ModeDev":     ModeDev,
		"dev":         ModeDev,
		"ModeProd":    ModeProd,
		"prod":        ModeProd,
		"ModeSilence": ModeSilence,
	}
	for in, want := range cases {
		got, ok := ParseMode(in)
		if !ok || got != want {
			t.Fatalf("ParseMode(%q)=%v,%v want=%v", in, got, ok, want)
		}
	}
	if _, ok := ParseMode("loud"); ok {
		t.Fatalf("unknown mode should not parse")
	}
}

type countHandler struct{ n *int }

func (h countHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h countHandler) Handle(context.Context, slog.Record) error {
	*h.n++
	return nil
}
func (h countHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h countHandler) WithGroup(string) slog.Handler      { return h }

func TestAsyncHandlerDrainsOnClose(t *testing.T) {
	n := 0
	ah := NewAsyncHandler(countHandler{n: &n}, 64)
	log := Component(slog.New(ah), "engine")
	for i := 0; i < 10; i++ {
		log.Info("tick", "i", i)
	}
	ah.Close()
	if n != 10 || ah.Dropped() != 0 {
		t.Fatalf("handled=%d dropped=%d", n, ah.Dropped())
	}
	log.Info("after close")
	if n != 10 || ah.Dropped() != 1 {
		t.Fatalf("record after close: handled=%d dropped=%d", n, ah.Dropped())
	}
}

type gateHandler struct {
	entered chan struct{}
	release chan struct{}
}

func (h gateHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h gateHandler) Handle(context.Context, slog.Record) error {
	h.entered <- struct{}{}
	<-h.release
	return nil
}
func (h gateHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h gateHandler) WithGroup(string) slog.Handler      { return h }

func TestAsyncHandlerDropsWhenFull(t *testing.T) {
	g := gateHandler{entered: make(chan struct{}, 4), release: make(chan struct{})}
	ah := NewAsyncHandler(g, 1)
	log := slog.New(ah).WithGroup("lab")

	log.Info("first")
	<-g.entered
	log.Info("queued")
	log.Info("dropped")
	if ah.Dropped() != 1 {
		t.Fatalf("dropped=%d want=1", ah.Dropped())
	}
	close(g.release)
	ah.Close()
	if len(g.entered) != 1 {
		t.Fatalf("queued record not written: %d", len(g.entered))
	}
}

func TestNewAsyncSilence(t *testing.T) {
	log, ah := NewAsync(0, ModeSilence)
	log.Info("nothing")
	ah.Close()
	ah.Close()
	if !ah.Ready() || ah.Dropped() != 0 {
		t.Fatalf("ready=%v dropped=%d", ah.Ready(), ah.Dropped())
	}
}
