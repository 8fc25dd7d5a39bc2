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

package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// Kind : 經濟引擎的錯誤分類，HTTP 邊界層依此決定 status code。
//
// 與 ErrLevel 的關係：
//   - Internal 一律是 Fatal（狀態不可信，整個動作放棄）。
//   - 其餘分類都是 Warn（呼叫端的請求問題，不影響系統）。
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindValidation
	KindPrecondition
	KindNotFound
	KindDegraded
	KindInternal
)

var kindMap = map[Kind]string{
	KindUnknown:         "unknown",
	KindUnauthenticated: "unauthenticated",
	KindValidation:      "validation",
	KindPrecondition:    "precondition_failed",
	KindNotFound:        "not_found",
	KindDegraded:        "external_degraded",
	KindInternal:        "internal",
}

func (k Kind) String() string {
	if str, ok := kindMap[k]; ok {
		return str
	}
	return "unknown"
}

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端可追加的額外上下文；
// Cause 可串接下層錯誤（wrap）；ErrLv 為嚴重度；Kind 為分類。
// RemainingMs 只在冷卻中（cooldown）被拒絕時有值。
type E struct {
	Message     string
	Extra       string
	Cause       error
	ErrLv       ErrLevel
	Kind        Kind
	RemainingMs int64
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", ErrLv(e.ErrLv), e.Message)
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// New 依錯誤等級與訊息建立錯誤
func New(errLv ErrLevel, msg string) *E {
	k := KindValidation
	if errLv == Fatal {
		k = KindInternal
	}
	return &E{Message: msg, ErrLv: errLv, Kind: k}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal, Kind: KindInternal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn, Kind: KindValidation}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log, Kind: KindDegraded}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

// -----------------------------------------------------------------------------
//  分類建構子
// -----------------------------------------------------------------------------

// Unauthenticated 沒有可辨識的玩家身分，必須在任何狀態存取之前拒絕。
func Unauthenticated(msg string) *E {
	return &E{Message: msg, ErrLv: Warn, Kind: KindUnauthenticated}
}

// Validation 欄位缺漏/格式錯誤/越界/碰撞。
func Validation(msg string) *E {
	return &E{Message: msg, ErrLv: Warn, Kind: KindValidation}
}

// Precondition 門檻未達、資源不足、成本不可用。
func Precondition(msg string) *E {
	return &E{Message: msg, ErrLv: Warn, Kind: KindPrecondition}
}

// Cooldown 冷卻未結束，附帶剩餘毫秒數。
func Cooldown(remainingMs int64) *E {
	return &E{Message: "cooldown not finished", ErrLv: Warn, Kind: KindPrecondition, RemainingMs: remainingMs}
}

// NotFound 此玩家名下找不到該機台或寵物。
func NotFound(msg string) *E {
	return &E{Message: msg, ErrLv: Warn, Kind: KindNotFound}
}

// Degraded 外部依賴逾時或失敗，呼叫端應以安全預設值繼續。
func Degraded(msg string, cause error) *E {
	return &E{Message: msg, ErrLv: Log, Kind: KindDegraded, Cause: cause}
}

// Internal 非預期的儲存層錯誤，整個動作放棄。
func Internal(msg string, cause error) *E {
	return &E{Message: msg, ErrLv: Fatal, Kind: KindInternal, Cause: cause}
}

// NewWithExtra 與 New 相同，但可附加額外上下文字串（不影響主訊息）。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// WithExtra 回傳附加上下文後的複本，原本的錯誤（常是套件層級的哨兵值）不受影響。
func (e *E) WithExtra(extra string) *E {
	c := *e
	c.Extra = extra
	return &c
}

// Wrap 使用給定的訊息包裝底層錯誤，建立一個 *E。
//
// ErrLevel / Kind 規則：
//   - 若 cause 已經是 *E，則沿用其 ErrLv 與 Kind（保持原本嚴重度）。
//   - 若 cause 不是本包定義的 *E（多半是標準庫或三方依賴錯誤），則一律視為 Fatal / KindInternal。
func Wrap(cause error, msg string) *E {
	var e *E
	r := NewFatal(msg)
	if errors.As(cause, &e) {
		r.ErrLv = e.ErrLv
		r.Kind = e.Kind
		r.RemainingMs = e.RemainingMs
	}
	r.Cause = cause
	return r
}

// WrapWithExtra 與 Wrap 相同，但附加上下文。
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := Wrap(cause, msg)
	r.Extra = extra
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}

// KindOf 回傳錯誤分類；非本包錯誤視為 KindInternal。
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if e, ok := AsErr(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is 檢查 err 是否屬於指定分類。
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
