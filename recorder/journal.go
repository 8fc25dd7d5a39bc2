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

package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Antigono00/First-minting-tools/errs"
	"github.com/klauspost/compress/zstd"
)

const fileSuffix = ".jsonl.zst"

// Journal 以小時輪替的 JSONL + zstd 檔案保存紀錄。
type Journal struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// OpenJournal 建立 Journal；目錄在第一次寫入時建立。
func OpenJournal(baseDir, prefix string) *Journal {
	if prefix == "" {
		prefix = "actions"
	}
	return &Journal{baseDir: baseDir, prefix: prefix, now: time.Now}
}

func (j *Journal) Record(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	hour := j.now().UTC().Format("2006-01-02-15")
	if hour != j.curHour {
		if err := j.rotateLocked(hour); err != nil {
			return err
		}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return errs.Wrap(err, "marshal journal entry")
	}
	if _, err := j.w.Write(b); err != nil {
		return errs.Wrap(err, "write journal")
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return errs.Wrap(err, "write journal")
	}
	if err := j.w.Flush(); err != nil {
		return errs.Wrap(err, "flush journal")
	}
	return nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

func (j *Journal) rotateLocked(hour string) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.baseDir, 0o755); err != nil {
		return errs.Wrap(err, "create journal dir")
	}
	f, err := os.OpenFile(j.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errs.Wrap(err, "open journal file")
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return errs.Wrap(err, "create zstd encoder")
	}
	j.f = f
	j.enc = enc
	j.w = bufio.NewWriterSize(enc, 64*1024)
	j.curHour = hour
	return nil
}

func (j *Journal) closeLocked() error {
	var err error
	if j.w != nil {
		_ = j.w.Flush()
	}
	if j.enc != nil {
		err = j.enc.Close()
		j.enc = nil
	}
	if j.f != nil {
		_ = j.f.Close()
		j.f = nil
	}
	j.w = nil
	j.curHour = ""
	return err
}

func (j *Journal) pathForHour(hour string) string {
	return filepath.Join(j.baseDir, fmt.Sprintf("%s-%s%s", j.prefix, hour, fileSuffix))
}

// ReadFile 讀取單一 journal 檔
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(err, "open journal file")
	}
	defer f.Close()
	return decode(f)
}

// ReadDir 依檔名順序讀取目錄下所有 journal 檔
func ReadDir(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(err, "read journal dir")
	}
	names := make([]string, 0, len(des))
	for _, d := range des {
		if !d.IsDir() && strings.HasSuffix(d.Name(), fileSuffix) {
			names = append(names, d.Name())
		}
	}
	sort.Strings(names)
	out := make([]Entry, 0, 256)
	for _, n := range names {
		es, err := ReadFile(filepath.Join(dir, n))
		if err != nil {
			return out, err
		}
		out = append(out, es...)
	}
	return out, nil
}

func decode(r io.Reader) ([]Entry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, errs.Wrap(err, "create zstd decoder")
	}
	defer dec.Close()
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	out := make([]Entry, 0, 64)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return out, errs.Wrap(err, "decode journal entry")
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return out, errs.Wrap(err, "scan journal")
	}
	return out, nil
}
