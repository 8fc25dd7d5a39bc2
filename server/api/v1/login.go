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

package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	cvxlab "github.com/Antigono00/First-minting-tools"
	"github.com/Antigono00/First-minting-tools/auth"
	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/server/httperr"
	"github.com/Antigono00/First-minting-tools/server/svrcfg"
)

// LoginHandler Telegram 登入元件回呼：驗簽、建立玩家、簽發 session。
type LoginHandler struct {
	lab      *cvxlab.Lab
	log      *slog.Logger
	session  *auth.SessionProvider
	botToken string
	maxAge   time.Duration
	redirect string
	timeout  time.Duration
	now      func() time.Time
}

func NewLoginHandler(sCfg *svrcfg.SvrCfg) (*LoginHandler, error) {
	if sCfg == nil || sCfg.Lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	if sCfg.Session == nil {
		return nil, errs.NewFatal("session provider is required")
	}
	return &LoginHandler{
		lab:      sCfg.Lab,
		log:      sCfg.Log,
		session:  sCfg.Session,
		botToken: sCfg.BotToken,
		maxAge:   sCfg.LoginMaxAge,
		redirect: sCfg.LoginRedirect,
		timeout:  sCfg.RequestTimeout,
		now:      time.Now,
	}, nil
}

func (h *LoginHandler) Callback(w http.ResponseWriter, r *http.Request) {
	user, err := auth.VerifyTelegram(r.URL.Query(), h.botToken, h.now(), h.maxAge)
	if err != nil {
		if h.log != nil {
			h.log.Warn("telegram login rejected", slog.Any("err", err))
		}
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if _, err := h.lab.Login(ctx, user.ID, user.FirstName); err != nil {
		httperr.Log(h.log, "api.callback", err)
		httperr.Errs(w, err)
		return
	}
	h.session.Issue(w, user.ID)
	http.Redirect(w, r, h.redirect, http.StatusFound)
}

// Logout 清除 session
func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.Clear(w)
	httperr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
