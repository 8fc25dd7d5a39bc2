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

// Package v1 經濟 API 的 HTTP handler：解碼請求、取出玩家、呼叫 Lab、寫回 JSON。
package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	cvxlab "github.com/Antigono00/First-minting-tools"
	"github.com/Antigono00/First-minting-tools/dto"
	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/server/httperr"
	"github.com/Antigono00/First-minting-tools/server/netsvr"
	"github.com/Antigono00/First-minting-tools/server/netsvr/middleware"
	"github.com/Antigono00/First-minting-tools/server/svrcfg"
)

// ============================================================
// ** Handler **
// ============================================================

type Handler struct {
	lab     *cvxlab.Lab
	log     *slog.Logger
	timeout time.Duration
}

func NewHandler(sCfg *svrcfg.SvrCfg) (*Handler, error) {
	if sCfg == nil || sCfg.Lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	return &Handler{lab: sCfg.Lab, log: sCfg.Log, timeout: sCfg.RequestTimeout}, nil
}

// Register 註冊 /api 底下所有端點
func (h *Handler) Register(r netsvr.NetRouter) {
	r.Get("/whoami", h.WhoAmI)
	r.Get("/getGameState", get(h, "getGameState", h.lab.GameState))
	r.Get("/resources", get(h, "resources", h.resources))
	r.Get("/machines", get(h, "machines", h.machines))
	r.Get("/getPets", get(h, "getPets", h.lab.Pets))

	r.Post("/buildMachine", post[dto.BuildRequest](h, "buildMachine", h.lab.Build))
	r.Post("/moveMachine", post[dto.MoveRequest](h, "moveMachine", h.lab.Move))
	r.Post("/upgradeMachine", post[dto.UpgradeRequest](h, "upgradeMachine", h.lab.Upgrade))
	r.Post("/activateMachine", post[dto.ActivateRequest](h, "activateMachine", h.lab.Activate))
	r.Post("/syncLayout", post[dto.SyncLayoutRequest](h, "syncLayout", h.lab.SyncLayout))
	r.Post("/dismissRoomUnlock", post[dto.Empty](h, "dismissRoomUnlock", h.dismissRoomUnlock))
	r.Post("/buyPet", post[dto.BuyPetRequest](h, "buyPet", h.lab.BuyPet))
	r.Post("/movePet", post[dto.MovePetRequest](h, "movePet", h.lab.MovePet))
	r.Post("/checkMintStatus", post[dto.CheckMintStatusRequest](h, "checkMintStatus", h.lab.CheckMintStatus))
	r.Post("/buyEnergy", post[dto.BuyEnergyRequest](h, "buyEnergy", h.lab.BuyEnergy))
	r.Post("/confirmEnergyPurchase", post[dto.ConfirmEnergyRequest](h, "confirmEnergyPurchase", h.lab.ConfirmEnergyPurchase))
	r.Post("/getMintEggManifest", post[dto.MintEggRequest](h, "getMintEggManifest", h.lab.MintEggManifest))
	r.Post("/checkEggMintStatus", post[dto.CheckEggMintRequest](h, "checkEggMintStatus", h.lab.CheckEggMintStatus))
}

// get 無 body 的讀取端點
func get[R any](h *Handler, name string, fn func(ctx context.Context, playerID string) (R, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, ok := h.player(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		res, err := fn(ctx, pid)
		h.reply(w, name, res, err)
	}
}

// post 先確認登入，再解碼 body（未登入一律 401，不論 body 是否合法）。
func post[T any, PT interface {
	*T
	dto.Validator
}, R any](h *Handler, name string, fn func(ctx context.Context, playerID string, req *T) (R, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pid, ok := h.player(w, r)
		if !ok {
			return
		}
		req, err := dto.Decode[T, PT](r)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		res, err := fn(ctx, pid, req)
		h.reply(w, name, res, err)
	}
}

func (h *Handler) player(w http.ResponseWriter, r *http.Request) (string, bool) {
	pid := middleware.PlayerFrom(r.Context())
	if pid == "" {
		httperr.Errs(w, errs.Unauthenticated("Not logged in"))
		return "", false
	}
	return pid, true
}

func (h *Handler) reply(w http.ResponseWriter, name string, res any, err error) {
	if err != nil {
		httperr.Log(h.log, "api."+name, err)
		httperr.Errs(w, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, res)
}

// ------------------------------------------------------------
//  薄包裝：回應形狀與 Lab 不同的端點
// ------------------------------------------------------------

func (h *Handler) resources(ctx context.Context, pid string) (ledger.Balances, error) {
	gs, err := h.lab.GameState(ctx, pid)
	if err != nil {
		return ledger.Balances{}, err
	}
	return gs.Resources(), nil
}

func (h *Handler) machines(ctx context.Context, pid string) ([]*model.Machine, error) {
	gs, err := h.lab.GameState(ctx, pid)
	if err != nil {
		return nil, err
	}
	return gs.Machines, nil
}

func (h *Handler) dismissRoomUnlock(ctx context.Context, pid string, _ *dto.Empty) (dto.StatusResult, error) {
	return h.lab.DismissRoomUnlock(ctx, pid)
}

// WhoAmI 未登入時回 loggedIn=false（200）。
func (h *Handler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	res, err := h.lab.WhoAmI(ctx, middleware.PlayerFrom(r.Context()))
	h.reply(w, "whoami", res, err)
}
