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

package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/ledger"
	"github.com/Antigono00/First-minting-tools/model"
)

// SQLite 以單一連線的 SQLite 資料庫保存玩家狀態。
//
// 只開一條連線，所有交易在資料庫層自然序列化；
// 每玩家的互斥由上層 Engine 負責，這裡只保證單筆交易的原子性。
type SQLite struct {
	db     *sql.DB
	closed atomic.Bool
}

// OpenSQLite 開啟資料庫並執行 migration；migration 失敗直接回傳錯誤。
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errs.NewFatal("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errs.Wrap(err, "create db dir")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func initPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return errs.Wrap(err, "sqlite pragma")
		}
	}
	return nil
}

// DB 取得底層連線（admin 工具使用）
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Close() error {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// queryer 同時涵蓋 *sql.DB 與 *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLite) View(ctx context.Context, playerID string) (*model.State, error) {
	st, _, err := load(ctx, s.db, playerID)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *SQLite) Update(ctx context.Context, playerID string, fn UpdateFunc) error {
	if s.closed.Load() {
		return errs.Internal("store closed", nil)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Internal("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO players(player_id, created_at) VALUES(?, ?)`,
		playerID, time.Now().UnixMilli()); err != nil {
		return errs.Internal("ensure player", err)
	}
	st, _, err := load(ctx, tx, playerID)
	if err != nil {
		return err
	}
	if err := fn(st, &sqliteTx{ctx: ctx, tx: tx, playerID: playerID}); err != nil {
		return err
	}
	if !st.Player.Resources.NonNegative() {
		return errs.Internal("negative balance after update", nil)
	}
	if err := persist(ctx, tx, st); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.Internal("commit", err)
	}
	return nil
}

func (s *SQLite) EnsurePlayer(ctx context.Context, playerID, firstName string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO players(player_id, first_name, created_at) VALUES(?, ?, ?)`,
		playerID, firstName, time.Now().UnixMilli())
	if err != nil {
		return false, errs.Internal("insert player", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 && firstName != "" {
		if _, err := s.db.ExecContext(ctx, `UPDATE players SET first_name=? WHERE player_id=?`, firstName, playerID); err != nil {
			return false, errs.Internal("update player", err)
		}
	}
	return n == 1, nil
}

func (s *SQLite) PlayerIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT player_id FROM players ORDER BY player_id`)
	if err != nil {
		return nil, errs.Internal("list players", err)
	}
	defer rows.Close()
	out := make([]string, 0, 64)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Internal("scan player", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("list players", err)
	}
	return out, nil
}

// load 讀取玩家快照；第二個回傳值表示玩家是否存在。
func load(ctx context.Context, q queryer, playerID string) (*model.State, bool, error) {
	st := &model.State{Player: model.Player{ID: playerID}}
	var seen int
	err := q.QueryRowContext(ctx,
		`SELECT first_name, seen_room_unlock FROM players WHERE player_id=?`, playerID).
		Scan(&st.Player.FirstName, &seen)
	switch {
	case err == sql.ErrNoRows:
		return st, false, nil
	case err != nil:
		return nil, false, errs.Internal("load player", err)
	}
	st.Player.SeenRoomUnlock = seen != 0

	if err := loadResources(ctx, q, st); err != nil {
		return nil, true, err
	}
	if err := loadMachines(ctx, q, st); err != nil {
		return nil, true, err
	}
	if err := loadPets(ctx, q, st); err != nil {
		return nil, true, err
	}
	if err := loadIntents(ctx, q, st); err != nil {
		return nil, true, err
	}
	return st, true, nil
}

func loadResources(ctx context.Context, q queryer, st *model.State) error {
	rows, err := q.QueryContext(ctx, `SELECT resource_name, amount FROM resources WHERE player_id=?`, st.Player.ID)
	if err != nil {
		return errs.Internal("load resources", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var amount float64
		if err := rows.Scan(&name, &amount); err != nil {
			return errs.Internal("scan resource", err)
		}
		r, ok := ledger.Parse(name)
		if !ok {
			continue
		}
		if err := st.Player.Resources.Set(r, amount); err != nil {
			return errs.Internal("corrupt resource row", err)
		}
	}
	return rows.Err()
}

func loadMachines(ctx context.Context, q queryer, st *model.State) error {
	rows, err := q.QueryContext(ctx, `SELECT id, machine_type, level, x, y, room, is_offline,
		last_activated, next_cost_time, provisional_mint
		FROM machines WHERE player_id=? ORDER BY id`, st.Player.ID)
	if err != nil {
		return errs.Internal("load machines", err)
	}
	defer rows.Close()
	for rows.Next() {
		m := &model.Machine{PlayerID: st.Player.ID}
		var typ string
		var offline, mint int
		if err := rows.Scan(&m.ID, &typ, &m.Level, &m.X, &m.Y, &m.Room, &offline,
			&m.LastActivated, &m.NextUpkeepDue, &mint); err != nil {
			return errs.Internal("scan machine", err)
		}
		m.Type = model.MachineType(typ)
		m.Offline = offline != 0
		m.ProvisionalMint = mint != 0
		st.Machines = append(st.Machines, m)
	}
	return rows.Err()
}

func loadPets(ctx context.Context, q queryer, st *model.State) error {
	rows, err := q.QueryContext(ctx, `SELECT id, x, y, room, type, parent_machine
		FROM pets WHERE player_id=? ORDER BY id`, st.Player.ID)
	if err != nil {
		return errs.Internal("load pets", err)
	}
	defer rows.Close()
	for rows.Next() {
		p := &model.Pet{PlayerID: st.Player.ID}
		var parent sql.NullInt64
		if err := rows.Scan(&p.ID, &p.X, &p.Y, &p.Room, &p.Type, &parent); err != nil {
			return errs.Internal("scan pet", err)
		}
		if parent.Valid {
			v := parent.Int64
			p.ParentMachine = &v
		}
		st.Pets = append(st.Pets, p)
	}
	return rows.Err()
}

func loadIntents(ctx context.Context, q queryer, st *model.State) error {
	rows, err := q.QueryContext(ctx, `SELECT ref, kind, account, payment, created_at
		FROM pending_intents WHERE player_id=? ORDER BY created_at, ref`, st.Player.ID)
	if err != nil {
		return errs.Internal("load intents", err)
	}
	defer rows.Close()
	for rows.Next() {
		in := &model.Intent{}
		if err := rows.Scan(&in.Ref, &in.Kind, &in.Account, &in.Payment, &in.CreatedAt); err != nil {
			return errs.Internal("scan intent", err)
		}
		st.Intents = append(st.Intents, in)
	}
	return rows.Err()
}

// persist 寫回整份快照；ID 為 0 的機台/寵物視為新建並回填 ID。
func persist(ctx context.Context, tx *sql.Tx, st *model.State) error {
	pid := st.Player.ID
	if _, err := tx.ExecContext(ctx,
		`UPDATE players SET first_name=?, seen_room_unlock=? WHERE player_id=?`,
		st.Player.FirstName, boolInt(st.Player.SeenRoomUnlock), pid); err != nil {
		return errs.Internal("save player", err)
	}
	for _, r := range ledger.All {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO resources(player_id, resource_name, amount) VALUES(?, ?, ?)
			 ON CONFLICT(player_id, resource_name) DO UPDATE SET amount=excluded.amount`,
			pid, string(r), st.Player.Resources.Get(r)); err != nil {
			return errs.Internal("save resource", err)
		}
	}
	for _, m := range st.Machines {
		if m.ID == 0 {
			res, err := tx.ExecContext(ctx, `INSERT INTO machines(player_id, machine_type, level, x, y, room,
				is_offline, last_activated, next_cost_time, provisional_mint)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				pid, string(m.Type), m.Level, m.X, m.Y, m.Room, boolInt(m.Offline),
				m.LastActivated, m.NextUpkeepDue, boolInt(m.ProvisionalMint))
			if err != nil {
				return errs.Internal("insert machine", err)
			}
			if m.ID, err = res.LastInsertId(); err != nil {
				return errs.Internal("machine id", err)
			}
			m.PlayerID = pid
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE machines SET level=?, x=?, y=?, room=?, is_offline=?,
			last_activated=?, next_cost_time=?, provisional_mint=?
			WHERE player_id=? AND id=?`,
			m.Level, m.X, m.Y, m.Room, boolInt(m.Offline), m.LastActivated, m.NextUpkeepDue,
			boolInt(m.ProvisionalMint), pid, m.ID); err != nil {
			return errs.Internal("update machine", err)
		}
	}
	for _, p := range st.Pets {
		var parent any
		if p.ParentMachine != nil {
			parent = *p.ParentMachine
		}
		if p.ID == 0 {
			res, err := tx.ExecContext(ctx, `INSERT INTO pets(player_id, x, y, room, type, parent_machine)
				VALUES(?, ?, ?, ?, ?, ?)`, pid, p.X, p.Y, p.Room, p.Type, parent)
			if err != nil {
				return errs.Internal("insert pet", err)
			}
			if p.ID, err = res.LastInsertId(); err != nil {
				return errs.Internal("pet id", err)
			}
			p.PlayerID = pid
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE pets SET x=?, y=?, room=?, parent_machine=?
			WHERE player_id=? AND id=?`, p.X, p.Y, p.Room, parent, pid, p.ID); err != nil {
			return errs.Internal("update pet", err)
		}
	}
	// 等待中的請求數量很少，整批覆寫
	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_intents WHERE player_id=?`, pid); err != nil {
		return errs.Internal("clear intents", err)
	}
	for _, in := range st.Intents {
		if _, err := tx.ExecContext(ctx, `INSERT INTO pending_intents(ref, player_id, kind, account, payment, created_at)
			VALUES(?, ?, ?, ?, ?, ?)`, in.Ref, pid, in.Kind, in.Account, in.Payment, in.CreatedAt); err != nil {
			return errs.Internal("save intent", err)
		}
	}
	return nil
}

type sqliteTx struct {
	ctx      context.Context
	tx       *sql.Tx
	playerID string
}

func (t *sqliteTx) SettleIntent(kind, intentHash string, atMs int64) (bool, error) {
	res, err := t.tx.ExecContext(t.ctx,
		`INSERT OR IGNORE INTO settled_intents(kind, intent_hash, player_id, settled_at) VALUES(?, ?, ?, ?)`,
		kind, intentHash, t.playerID, atMs)
	if err != nil {
		return false, errs.Internal("settle intent", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.Internal("settle intent", err)
	}
	return n == 1, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
