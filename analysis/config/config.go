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

// Package config loads the analysis configuration from yaml files and
// provides the leveled loggers used by the analyses.
package config

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxBlockVisits is the iteration ceiling applied to each block when
// the configuration does not set one. A block revisited more often than this
// marks the function as degraded.
const DefaultMaxBlockVisits = 64

// Config controls the variable recovery analysis. Fields not present in the
// yaml file keep their zero value and are normalized by Load. Private fields
// are computed after initialization, not read from the file.
type Config struct {
	Options `yaml:",inline"`

	sourceFile string

	// if FuncFilter is specified
	funcFilterRegex *regexp.Regexp
}

// Options are the user-settable knobs of the analysis.
type Options struct {
	// LogLevel controls the verbosity of the tool.
	LogLevel int `yaml:"log-level"`

	// MaxBlockVisits is the per-block iteration ceiling of the worklist
	// driver. Values <= 0 select DefaultMaxBlockVisits.
	MaxBlockVisits int `yaml:"max-block-visits"`

	// NumWorkers is the number of functions analyzed concurrently. Values
	// <= 0 select runtime.NumCPU at the call site.
	NumWorkers int `yaml:"num-workers"`

	// FuncFilter restricts the analysis to functions whose name matches this
	// regular expression. Empty means analyze everything.
	FuncFilter string `yaml:"func-filter"`

	// ReportDegradedCycles enables logging the control-flow cycles through a
	// block that hit the iteration ceiling.
	ReportDegradedCycles bool `yaml:"report-degraded-cycles"`

	// SilenceWarn suppresses warnings.
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns the default configuration.
func NewDefault() *Config {
	return &Config{
		Options: Options{
			LogLevel:             int(InfoLevel),
			MaxBlockVisits:       DefaultMaxBlockVisits,
			NumWorkers:           0,
			FuncFilter:           "",
			ReportDegradedCycles: false,
			SilenceWarn:          false,
		},
	}
}

// Load reads a configuration from a yaml file.
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}

	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.MaxBlockVisits <= 0 {
		cfg.MaxBlockVisits = DefaultMaxBlockVisits
	}

	if cfg.FuncFilter != "" {
		r, err := regexp.Compile(cfg.FuncFilter)
		if err == nil {
			cfg.funcFilterRegex = r
		}
	}

	return cfg, nil
}

// SetFuncFilter overrides the function filter, compiling the regex. Used when
// a command-line flag takes precedence over the config file.
func (c *Config) SetFuncFilter(expr string) error {
	r, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid function filter %q: %w", expr, err)
	}
	c.FuncFilter = expr
	c.funcFilterRegex = r
	return nil
}

// RelPath returns filename path relative to the config source file.
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// MatchFuncFilter returns true if the function name matches the filter set in
// the config file. When no filter has been set, every name matches. When the
// filter string could not be compiled to a regex, the safe fallback is a
// prefix match.
func (c Config) MatchFuncFilter(name string) bool {
	if c.funcFilterRegex != nil {
		return c.funcFilterRegex.MatchString(name)
	}
	if c.FuncFilter != "" {
		return strings.HasPrefix(name, c.FuncFilter)
	}
	return true
}

// Verbose returns true if the configured verbosity is larger than Info
// (i.e. Debug or Trace).
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
