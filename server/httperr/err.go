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

package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Antigono00/First-minting-tools/errs"
)

// Body 錯誤回應的 JSON 形狀。RemainingMs 只在冷卻中被拒絕時出現。
type Body struct {
	Error       string `json:"error"`
	RemainingMs int64  `json:"remainingMs,omitempty"`
}

// StatusCode 將錯誤映射成 HTTP status code。
//
// 規則（邊界層最小映射、可預期）：
//   - ctx timeout/cancel   → 504/408（請求生命週期問題）
//   - KindUnauthenticated  → 401
//   - KindValidation       → 400
//   - KindPrecondition     → 400（冷卻另附 remainingMs）
//   - KindNotFound         → 404
//   - KindInternal / 其他  → 500
//
// 注意：本函數屬於 HTTP 邊界層，因此放在 server/*（而不是 core errs）。
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	var e *errs.E
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case errs.KindUnauthenticated:
		return http.StatusUnauthorized
	case errs.KindValidation, errs.KindPrecondition:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// BodyOf 錯誤回應內容。500 一律回固定訊息，不洩漏底層原因。
func BodyOf(err error) Body {
	status := StatusCode(err)
	if status >= 500 {
		return Body{Error: "Internal server error"}
	}
	e, ok := errs.AsErr(err)
	if !ok {
		return Body{Error: http.StatusText(status)}
	}
	if e.RemainingMs > 0 {
		return Body{Error: "Cooldown not finished", RemainingMs: e.RemainingMs}
	}
	return Body{Error: e.Message}
}

// Errs 寫回 JSON 錯誤回應
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	WriteJSON(w, StatusCode(err), BodyOf(err))
}

// WriteJSON 寫回 JSON；編碼失敗時已經來不及改 status，只能放棄。
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Log 依 status 決定 log 等級：5xx 記 Error，逾時/取消記 Warn，其餘（玩家請求問題）不記。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil || log == nil {
		return
	}
	status := StatusCode(err)
	if (status == http.StatusRequestTimeout) || (status == http.StatusGatewayTimeout) || (status == http.StatusTooManyRequests) {
		log.Warn(msg, slog.Any("err", err))
	} else if (status >= 500) && (status < 600) {
		log.Error(msg, slog.Any("err", err))
	}
}
