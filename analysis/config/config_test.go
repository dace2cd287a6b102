// Copyright The varrec Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()
	if cfg.LogLevel != int(InfoLevel) {
		t.Errorf("default log level should be info, got %d", cfg.LogLevel)
	}
	if cfg.MaxBlockVisits != DefaultMaxBlockVisits {
		t.Errorf("default ceiling should be %d, got %d", DefaultMaxBlockVisits, cfg.MaxBlockVisits)
	}
	if !cfg.MatchFuncFilter("anything") {
		t.Errorf("empty filter should match every function")
	}
	if cfg.Verbose() {
		t.Errorf("default config should not be verbose")
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.LogLevel != int(DebugLevel) {
		t.Errorf("log level = %d, want %d", cfg.LogLevel, DebugLevel)
	}
	if cfg.MaxBlockVisits != 8 {
		t.Errorf("max block visits = %d, want 8", cfg.MaxBlockVisits)
	}
	if cfg.NumWorkers != 2 {
		t.Errorf("num workers = %d, want 2", cfg.NumWorkers)
	}
	if !cfg.ReportDegradedCycles {
		t.Errorf("report-degraded-cycles should be set")
	}
	if !cfg.MatchFuncFilter("sum_array") || cfg.MatchFuncFilter("helper") {
		t.Errorf("filter should match sum_* only")
	}
}

// Options are embedded in Config; the decoder must fill them from top-level
// keys rather than expecting a nested mapping.
func TestUnmarshalInlinesOptions(t *testing.T) {
	cfg := NewDefault()
	if err := yaml.Unmarshal([]byte("log-level: 4\nsilence-warn: true\n"), cfg); err != nil {
		t.Fatalf("unmarshaling: %v", err)
	}
	if cfg.LogLevel != int(DebugLevel) {
		t.Errorf("log level = %d, want %d", cfg.LogLevel, DebugLevel)
	}
	if !cfg.SilenceWarn {
		t.Errorf("silence-warn should be set")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join("testdata", "nope.yaml")); err == nil {
		t.Errorf("loading a missing file should fail")
	}
}

func TestSetFuncFilter(t *testing.T) {
	cfg := NewDefault()
	if err := cfg.SetFuncFilter("^crypto_"); err != nil {
		t.Fatalf("compiling a valid filter: %v", err)
	}
	if !cfg.MatchFuncFilter("crypto_sign") || cfg.MatchFuncFilter("main") {
		t.Errorf("filter matching is wrong")
	}
	if err := cfg.SetFuncFilter("("); err == nil {
		t.Errorf("an invalid regex should be rejected")
	}
}

func TestRelPath(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if got := cfg.RelPath("prog.yaml"); got != filepath.Join("testdata", "prog.yaml") {
		t.Errorf("RelPath = %q", got)
	}
}
