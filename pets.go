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

package cvxlab

import (
	"context"
	"fmt"

	"github.com/Antigono00/First-minting-tools/dto"
	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/gating"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
	"github.com/Antigono00/First-minting-tools/placement"
	"github.com/Antigono00/First-minting-tools/store"
)

// Pets 玩家的寵物列表
func (l *Lab) Pets(ctx context.Context, playerID string) (dto.PetsResult, error) {
	if playerID == "" {
		return dto.PetsResult{}, errs.Unauthenticated("Not logged in")
	}
	st, err := l.st.View(ctx, playerID)
	if err != nil {
		return dto.PetsResult{}, err
	}
	return dto.NewPetsResult(st.Pets), nil
}

// BuyPet 購買寵物。寵物不參與碰撞檢查，只檢查邊界與房間。
func (l *Lab) BuyPet(ctx context.Context, playerID string, req *dto.BuyPetRequest) (dto.BuyPetResult, error) {
	var (
		res dto.BuyPetResult
		p   *model.Pet
	)
	_, err := l.do(ctx, playerID, ActionBuyPet, func(f *frame, st *model.State, _ store.Tx) error {
		if l.es.PetSetting.OnePerType {
			for _, old := range st.Pets {
				if old.Type == req.PetType {
					return errs.Precondition("You already have this type of pet")
				}
			}
		}
		if req.ParentMachine != nil {
			if _, ok := st.Machine(*req.ParentMachine); !ok {
				return errs.NotFound("Parent machine not found")
			}
		}
		pos := placement.Position{X: *req.X, Y: *req.Y, Room: req.Room}
		if err := l.checkPetPosition(st, pos); err != nil {
			return err
		}
		price := l.cat.PetPrice()
		if err := st.Player.Resources.Debit(price); err != nil {
			return errs.Precondition(fmt.Sprintf("Not enough Cat Nips (%g required)", price.Get(ledger.CatNips)))
		}
		p = &model.Pet{X: pos.X, Y: pos.Y, Room: pos.Room, Type: req.PetType, ParentMachine: req.ParentMachine}
		st.Pets = append(st.Pets, p)

		f.entry.Cost = price
		res = dto.BuyPetResult{Status: dto.StatusOK, NewResources: st.Player.Resources}
		return nil
	})
	if err != nil {
		return dto.BuyPetResult{}, err
	}
	res.PetID = p.ID
	return res, nil
}

// MovePet 移動寵物，不收費。
func (l *Lab) MovePet(ctx context.Context, playerID string, req *dto.MovePetRequest) (dto.MovePetResult, error) {
	var res dto.MovePetResult
	_, err := l.do(ctx, playerID, ActionMovePet, func(_ *frame, st *model.State, _ store.Tx) error {
		p, ok := st.Pet(req.PetID)
		if !ok {
			return errs.NotFound("Pet not found")
		}
		pos := placement.Position{X: *req.X, Y: *req.Y, Room: req.Room}
		if err := l.checkPetPosition(st, pos); err != nil {
			return err
		}
		p.X, p.Y, p.Room = pos.X, pos.Y, pos.Room
		res = dto.MovePetResult{Status: dto.StatusOK, NewPosition: dto.Position(pos)}
		return nil
	})
	return res, err
}

func (l *Lab) checkPetPosition(st *model.State, pos placement.Position) error {
	if err := l.place.CheckBounds(pos); err != nil {
		return err
	}
	return l.place.CheckRoom(pos, gating.FromState(st).RoomsUnlocked())
}
