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

// 經濟伺服器入口：flag 與（可選）YAML 設定檔組出 SvrCfg 後交給 server.Run。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	cvxlab "github.com/Antigono00/First-minting-tools"
	"github.com/Antigono00/First-minting-tools/auth"
	"github.com/Antigono00/First-minting-tools/external"
	"github.com/Antigono00/First-minting-tools/recorder"
	"github.com/Antigono00/First-minting-tools/server"
	"github.com/Antigono00/First-minting-tools/server/logger"
	"github.com/Antigono00/First-minting-tools/server/svrcfg"
	"github.com/Antigono00/First-minting-tools/spec"
	"github.com/Antigono00/First-minting-tools/store"
)

func main() {
	cfg, err := loadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config) error {
	mode, _ := logger.ParseMode(cfg.LogMode)
	log, ah := logger.NewAsync(4096, mode)
	defer ah.Close()

	es, err := spec.Load(cfg.Economy)
	if err != nil {
		log.Error("load economy", "err", err)
		return err
	}

	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, cfg.DB)
	if err != nil {
		log.Error("open store", "err", err, "path", cfg.DB)
		return err
	}
	defer st.Close()

	var rec recorder.Recorder = recorder.Nop{}
	if cfg.JournalDir != "" {
		j := recorder.OpenJournal(cfg.JournalDir, "actions")
		defer j.Close()
		rec = j
	}

	gw := external.NewRadixGateway(cfg.GatewayURL, cfg.LookupTimeout, es.EnergyPurchase.CvxCost)
	lab, err := cvxlab.New(es, st,
		cvxlab.WithOracle(gw),
		cvxlab.WithGateway(gw),
		cvxlab.WithRecorder(rec),
		cvxlab.WithLogger(logger.Component(log, "lab")),
		cvxlab.WithLookupTimeout(cfg.LookupTimeout),
	)
	if err != nil {
		log.Error("new lab", "err", err)
		return err
	}

	sCfg := &svrcfg.SvrCfg{
		Log:            log,
		Lab:            lab,
		BotToken:       cfg.BotToken,
		LoginMaxAge:    cfg.LoginMaxAge,
		LoginRedirect:  cfg.LoginRedirect,
		Addr:           cfg.Addr,
		RequestTimeout: cfg.RequestTimeout,
		Rate:           cfg.Rate,
		Burst:          cfg.Burst,
		Dev:            cfg.Dev,
	}
	var chain auth.Chain
	if cfg.SessionSecret != "" {
		sess, err := auth.NewSessionProvider(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookie)
		if err != nil {
			log.Error("session", "err", err)
			return err
		}
		sCfg.Session = sess
		chain = append(chain, sess)
	}
	if cfg.IdentityHeader != "" {
		chain = append(chain, auth.HeaderProvider{Header: cfg.IdentityHeader})
	}
	if len(chain) > 0 {
		sCfg.Identity = chain
	}

	log.Info("starting",
		"addr", cfg.Addr,
		"db", cfg.DB,
		"economy", es.EconomyName,
		"log_mode", mode.String(),
		"dev", cfg.Dev,
	)
	return server.Run(sCfg)
}
