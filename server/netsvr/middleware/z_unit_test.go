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

package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/Antigono00/First-minting-tools/auth"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})
}

func TestCompressionZstdAndGzip(t *testing.T) {
	body := strings.Repeat(`{"status":"ok"}`, 64)
	h := Compression(okHandler(body))

	req := httptest.NewRequest(http.MethodGet, "/api/getGameState", nil)
	req.Header.Set("Accept-Encoding", "gzip, zstd")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Content-Encoding"); got != "zstd" {
		t.Fatalf("encoding = %q, want zstd", got)
	}
	zr, err := zstd.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	plain, err := io.ReadAll(zr)
	zr.Close()
	if err != nil || string(plain) != body {
		t.Fatalf("zstd body mismatch: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/getGameState", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("encoding = %q, want gzip", got)
	}
	gr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	plain, err = io.ReadAll(gr)
	if err != nil || string(plain) != body {
		t.Fatalf("gzip body mismatch: %v", err)
	}
}

func TestCompressionSkipsConfiguredPaths(t *testing.T) {
	h := NewCompression(CompressConfig{GzipLevel: gzip.BestSpeed, ZstdLevel: zstd.SpeedFastest, SkipPaths: []string{"/healthz"}})(okHandler("ok"))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Content-Encoding") != "" || rec.Body.String() != "ok" {
		t.Fatalf("skip path compressed: %q %q", rec.Header().Get("Content-Encoding"), rec.Body.String())
	}
}

func TestCompressionNoBodyStatus(t *testing.T) {
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/dismissRoomUnlock", nil)
	req.Header.Set("Accept-Encoding", "zstd")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("204 got code=%d len=%d", rec.Code, rec.Body.Len())
	}
	if rec.Header().Get("Content-Encoding") != "" {
		t.Fatalf("204 should not carry Content-Encoding")
	}
}

func TestIdentityAndPlayerFrom(t *testing.T) {
	var seen string
	h := Identity(auth.HeaderProvider{Header: "X-Player-Id"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PlayerFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Player-Id", "42")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "42" {
		t.Fatalf("player = %q, want 42", seen)
	}

	seen = "x"
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if seen != "" {
		t.Fatalf("anonymous player = %q, want empty", seen)
	}
}

func TestRateLimitPerPlayer(t *testing.T) {
	h := Identity(auth.HeaderProvider{Header: "X-Player-Id"})(
		RateLimit(RateConfig{Rate: 1, Burst: 2, Idle: time.Minute})(okHandler("ok")),
	)
	send := func(pid string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/getGameState", nil)
		req.Header.Set("X-Player-Id", pid)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	if send("a") != 200 || send("a") != 200 {
		t.Fatalf("burst requests should pass")
	}
	if code := send("a"); code != http.StatusTooManyRequests {
		t.Fatalf("third request code = %d, want 429", code)
	}
	// 其他玩家不受影響
	if code := send("b"); code != 200 {
		t.Fatalf("other player code = %d, want 200", code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimit(RateConfig{})(okHandler("ok"))
	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != 200 {
			t.Fatalf("request %d code = %d", i, rec.Code)
		}
	}
}

func TestLimiterEvictsIdleVisitors(t *testing.T) {
	l := newLimiter(RateConfig{Rate: 1, Burst: 1, Idle: time.Minute})
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }
	l.allow("a")
	l.allow("b")
	if l.size() != 2 {
		t.Fatalf("size = %d, want 2", l.size())
	}
	now = now.Add(2 * time.Minute)
	l.allow("c")
	if l.size() != 1 {
		t.Fatalf("size after gc = %d, want 1", l.size())
	}
}

func TestRecoverWritesJSON500(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestID(Recover(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/getGameState", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "Internal server error" {
		t.Fatalf("body = %v", body)
	}
	if !strings.Contains(buf.String(), "http.panic") {
		t.Fatalf("panic not logged: %s", buf.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing X-Request-Id")
	}
}

func TestAccessLogAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestID(Identity(auth.HeaderProvider{Header: "X-Player-Id"})(AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))))
	req := httptest.NewRequest(http.MethodPost, "/api/moveMachine", nil)
	req.Header.Set("X-Player-Id", "7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log: %v (%s)", err, buf.String())
	}
	if line["msg"] != "http.access" || line["level"] != "WARN" {
		t.Fatalf("log line = %v", line)
	}
	if line["player"] != "7" || line["path"] != "/api/moveMachine" || line["request_id"] == nil {
		t.Fatalf("log attrs = %v", line)
	}
}
