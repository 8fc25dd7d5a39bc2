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
	"fmt"

	"github.com/Antigono00/First-minting-tools/errs"
)

// migration 一個版本的 schema 變更；版本號遞增且不可修改已發佈的內容。
type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS players (
				player_id TEXT PRIMARY KEY,
				first_name TEXT NOT NULL DEFAULT '',
				seen_room_unlock INTEGER NOT NULL DEFAULT 0,
				created_at INTEGER NOT NULL DEFAULT 0
			);`,
			`CREATE TABLE IF NOT EXISTS resources (
				player_id TEXT NOT NULL REFERENCES players(player_id),
				resource_name TEXT NOT NULL,
				amount REAL NOT NULL DEFAULT 0 CHECK (amount >= 0),
				PRIMARY KEY (player_id, resource_name)
			);`,
			`CREATE TABLE IF NOT EXISTS machines (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				player_id TEXT NOT NULL REFERENCES players(player_id),
				machine_type TEXT NOT NULL,
				level INTEGER NOT NULL DEFAULT 1,
				x INTEGER NOT NULL,
				y INTEGER NOT NULL,
				room INTEGER NOT NULL DEFAULT 1,
				is_offline INTEGER NOT NULL DEFAULT 0,
				last_activated INTEGER NOT NULL DEFAULT 0,
				next_cost_time INTEGER NOT NULL DEFAULT 0,
				provisional_mint INTEGER NOT NULL DEFAULT 0
			);`,
			`CREATE INDEX IF NOT EXISTS idx_machines_player ON machines(player_id, id);`,
			`CREATE TABLE IF NOT EXISTS pets (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				player_id TEXT NOT NULL REFERENCES players(player_id),
				x INTEGER NOT NULL,
				y INTEGER NOT NULL,
				room INTEGER NOT NULL DEFAULT 1,
				type TEXT NOT NULL,
				parent_machine INTEGER
			);`,
			`CREATE INDEX IF NOT EXISTS idx_pets_player ON pets(player_id, id);`,
		},
	},
	{
		version: 2,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS settled_intents (
				intent_hash TEXT PRIMARY KEY,
				player_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				settled_at INTEGER NOT NULL
			);`,
		},
	},
	{
		// 入帳改以 (kind, hash) 為 key，並保存每位玩家等待中的請求
		version: 3,
		stmts: []string{
			`CREATE TABLE settled_intents_v3 (
				kind TEXT NOT NULL,
				intent_hash TEXT NOT NULL,
				player_id TEXT NOT NULL,
				settled_at INTEGER NOT NULL,
				PRIMARY KEY (kind, intent_hash)
			);`,
			`INSERT INTO settled_intents_v3(kind, intent_hash, player_id, settled_at)
				SELECT kind, intent_hash, player_id, settled_at FROM settled_intents;`,
			`DROP TABLE settled_intents;`,
			`ALTER TABLE settled_intents_v3 RENAME TO settled_intents;`,
			`CREATE TABLE IF NOT EXISTS pending_intents (
				ref TEXT PRIMARY KEY,
				player_id TEXT NOT NULL REFERENCES players(player_id),
				kind TEXT NOT NULL,
				account TEXT NOT NULL,
				payment TEXT NOT NULL DEFAULT '',
				created_at INTEGER NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_pending_player ON pending_intents(player_id, created_at);`,
		},
	},
}

// SchemaVersion 最新 schema 版本
func SchemaVersion() int { return migrations[len(migrations)-1].version }

// Migrate 把資料庫升到最新版本。每個版本在自己的交易內執行，任何錯誤都直接回傳。
func Migrate(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_meta (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);`); err != nil {
		return 0, errs.Wrap(err, "create schema_meta")
	}
	cur, err := currentVersion(ctx, db)
	if err != nil {
		return 0, err
	}
	if cur > SchemaVersion() {
		return cur, errs.NewFatal(fmt.Sprintf("database schema v%d is newer than this binary (v%d)", cur, SchemaVersion()))
	}
	applied := 0
	for _, m := range migrations {
		if m.version <= cur {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, `SELECT value FROM schema_meta WHERE key='version'`).Scan(&v)
	switch {
	case err == sql.ErrNoRows:
		return 0, nil
	case err != nil:
		return 0, errs.Wrap(err, "read schema version")
	}
	return v, nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(err, "begin migration")
	}
	defer func() { _ = tx.Rollback() }()
	for _, s := range m.stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return errs.WrapWithExtra(err, "migration failed", fmt.Sprintf("v%d", m.version))
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_meta(key, value) VALUES('version', ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`, m.version); err != nil {
		return errs.Wrap(err, "record schema version")
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(err, "commit migration")
	}
	return nil
}
