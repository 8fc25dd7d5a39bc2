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
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogMode 決定輸出格式與等級
type LogMode uint8

const (
	ModeDev LogMode = iota
	ModeProd
	ModeSilence
)

// ParseMode 解析設定檔/flag 的字串；無法辨識時回傳 ModeDev 與 false。
// 同時接受 "ModeDev" 與 "dev" 兩種寫法。
func ParseMode(s string) (LogMode, bool) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(s, "Mode"), "mode")) {
	case "dev", "":
		return ModeDev, true
	case "prod":
		return ModeProd, true
	case "silence", "silent":
		return ModeSilence, true
	default:
		return ModeDev, false
	}
}

func (m LogMode) String() string {
	switch m {
	case ModeProd:
		return "prod"
	case ModeSilence:
		return "silence"
	default:
		return "dev"
	}
}

// Component 附上元件名稱，方便在 JSON log 中依元件過濾（lab / http / store）。
func Component(log *slog.Logger, name string) *slog.Logger {
	if log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return log.With(slog.String("component", name))
}

// NewAsync 依 mode 建立 handler 並包成 AsyncHandler；呼叫端結束前要 Close 以寫完緩衝。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(newHandler(mode), buf)
	return slog.New(ah), ah
}

// newHandler dev 輸出 text 到 stderr；prod 輸出 JSON 到 stdout 交給外部收集器。
func newHandler(mode LogMode) slog.Handler {
	switch mode {
	case ModeProd:
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.NewTextHandler(io.Discard, nil)
	default:
		return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// AsyncHandler 把寫出移到背景 goroutine，請求路徑只做 enqueue。
// 佇列滿或已 Close 時直接丟棄並計數，不回傳錯誤。
type AsyncHandler struct {
	next slog.Handler
	q    *queue
}

// queue 由同一個 AsyncHandler 衍生出的 handler（WithAttrs / WithGroup）共用
type queue struct {
	ch      chan queued
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

type queued struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

// NewAsyncHandler buf <= 0 時使用 1024
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = newHandler(ModeDev)
	}
	if buf <= 0 {
		buf = 1024
	}
	q := &queue{
		ch:   make(chan queued, buf),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go q.loop()
	return &AsyncHandler{next: next, q: q}
}

func (q *queue) loop() {
	defer close(q.done)
	for {
		select {
		case it := <-q.ch:
			_ = it.h.Handle(it.ctx, it.rec)
		case <-q.stop:
			// 收到停止後寫完剩下的
			for {
				select {
				case it := <-q.ch:
					_ = it.h.Handle(it.ctx, it.rec)
				default:
					return
				}
			}
		}
	}
}

func (h *AsyncHandler) Ready() bool { return h != nil && h.q != nil }

// Dropped 佇列滿或 Close 後被丟棄的筆數
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.q.dropped.Load()
}

// Close 停止背景 goroutine 並等待佇列寫完；可重複呼叫。
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.q.once.Do(func() { close(h.q.stop) })
	<-h.q.done
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.q.stop:
		h.q.dropped.Add(1)
		return nil
	default:
	}
	// Record 跨 goroutine 前要 Clone
	select {
	case h.q.ch <- queued{ctx: ctx, rec: r.Clone(), h: h.next}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), q: h.q}
}
