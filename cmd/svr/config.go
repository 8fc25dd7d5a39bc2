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

package main

import (
	"flag"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	cvxlab "github.com/Antigono00/First-minting-tools"
	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/Antigono00/First-minting-tools/server/logger"
	"github.com/Antigono00/First-minting-tools/server/svrcfg"
)

// config 啟動設定。優先序：明確給的 flag > YAML 檔 > 預設值。
type config struct {
	Addr           string        `yaml:"addr"`
	DB             string        `yaml:"db"`
	LogMode        string        `yaml:"log_mode"`
	Economy        string        `yaml:"economy"`
	JournalDir     string        `yaml:"journal_dir"`
	BotToken       string        `yaml:"bot_token"`
	SessionSecret  string        `yaml:"session_secret"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	SecureCookie   bool          `yaml:"secure_cookie"`
	IdentityHeader string        `yaml:"identity_header"`
	LoginMaxAge    time.Duration `yaml:"login_max_age"`
	LoginRedirect  string        `yaml:"login_redirect"`
	GatewayURL     string        `yaml:"gateway_url"`
	LookupTimeout  time.Duration `yaml:"lookup_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Rate           float64       `yaml:"rate"`
	Burst          int           `yaml:"burst"`
	Dev            bool          `yaml:"dev"`
}

func defaultConfig() config {
	return config{
		Addr:           svrcfg.DefaultAddr,
		DB:             "data/cvxlab.db",
		LogMode:        "ModeDev",
		SessionTTL:     30 * 24 * time.Hour,
		LoginMaxAge:    svrcfg.DefaultLoginMaxAge,
		LoginRedirect:  "/",
		LookupTimeout:  cvxlab.DefaultLookupTimeout,
		RequestTimeout: svrcfg.DefaultRequestTimeout,
		Rate:           10,
		Burst:          20,
	}
}

// loadConfig 解析 flag；有 -config 時讀入 YAML，未明確給的 flag 以檔案值為準。
func loadConfig(fs *flag.FlagSet, args []string) (*config, error) {
	def := defaultConfig()
	cfg := def
	var path string
	fs.StringVar(&path, "config", "", "YAML config file")
	fs.StringVar(&cfg.Addr, "addr", def.Addr, "listen address")
	fs.StringVar(&cfg.DB, "db", def.DB, "sqlite database path")
	fs.StringVar(&cfg.LogMode, "log-mode", def.LogMode, "log mode: ModeDev|ModeProd|ModeSilence")
	fs.StringVar(&cfg.Economy, "economy", def.Economy, "economy setting file (yaml/json); empty = built-in")
	fs.StringVar(&cfg.JournalDir, "journal-dir", def.JournalDir, "action journal directory; empty = disabled")
	fs.StringVar(&cfg.BotToken, "bot-token", def.BotToken, "telegram bot token for /callback")
	fs.StringVar(&cfg.SessionSecret, "session-secret", def.SessionSecret, "session cookie HMAC secret")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", def.SessionTTL, "session lifetime")
	fs.BoolVar(&cfg.SecureCookie, "secure-cookie", def.SecureCookie, "mark session cookie Secure")
	fs.StringVar(&cfg.IdentityHeader, "identity-header", def.IdentityHeader, "trusted player-id header set by an auth gateway")
	fs.DurationVar(&cfg.LoginMaxAge, "login-max-age", def.LoginMaxAge, "max age of telegram auth_date")
	fs.StringVar(&cfg.LoginRedirect, "login-redirect", def.LoginRedirect, "redirect target after login")
	fs.StringVar(&cfg.GatewayURL, "gateway-url", def.GatewayURL, "radix gateway base url; empty = mainnet")
	fs.DurationVar(&cfg.LookupTimeout, "lookup-timeout", def.LookupTimeout, "external lookup timeout")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", def.RequestTimeout, "per request timeout")
	fs.Float64Var(&cfg.Rate, "rate", def.Rate, "requests per second per player; 0 = unlimited")
	fs.IntVar(&cfg.Burst, "burst", def.Burst, "rate limit burst")
	fs.BoolVar(&cfg.Dev, "dev", def.Dev, "enable /dev tools")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if path != "" {
		file := def
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, errs.Wrap(err, "parse config")
		}
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		cfg = merge(file, cfg, set)
	}
	if _, ok := logger.ParseMode(cfg.LogMode); !ok {
		return nil, errs.Warnf("unknown log mode %q", cfg.LogMode)
	}
	return &cfg, nil
}

// merge 以 file 為底，套上明確給的 flag。
func merge(file, flags config, set map[string]bool) config {
	out := file
	pick := func(name string, apply func()) {
		if set[name] {
			apply()
		}
	}
	pick("addr", func() { out.Addr = flags.Addr })
	pick("db", func() { out.DB = flags.DB })
	pick("log-mode", func() { out.LogMode = flags.LogMode })
	pick("economy", func() { out.Economy = flags.Economy })
	pick("journal-dir", func() { out.JournalDir = flags.JournalDir })
	pick("bot-token", func() { out.BotToken = flags.BotToken })
	pick("session-secret", func() { out.SessionSecret = flags.SessionSecret })
	pick("session-ttl", func() { out.SessionTTL = flags.SessionTTL })
	pick("secure-cookie", func() { out.SecureCookie = flags.SecureCookie })
	pick("identity-header", func() { out.IdentityHeader = flags.IdentityHeader })
	pick("login-max-age", func() { out.LoginMaxAge = flags.LoginMaxAge })
	pick("login-redirect", func() { out.LoginRedirect = flags.LoginRedirect })
	pick("gateway-url", func() { out.GatewayURL = flags.GatewayURL })
	pick("lookup-timeout", func() { out.LookupTimeout = flags.LookupTimeout })
	pick("request-timeout", func() { out.RequestTimeout = flags.RequestTimeout })
	pick("rate", func() { out.Rate = flags.Rate })
	pick("burst", func() { out.Burst = flags.Burst })
	pick("dev", func() { out.Dev = flags.Dev })
	return out
}
