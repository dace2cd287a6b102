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

// varrec recovers variables from lifted binary programs: it assigns SSA
// variable identities to register, stack and temporary accesses, binds them
// to the statements that define and use them, and reports the canonical
// variables and type constraints it inferred.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/decompkit/varrec/analysis/config"
	"github.com/decompkit/varrec/analysis/irload"
	"github.com/decompkit/varrec/analysis/vars"
)

var (
	configPath string
	funcFilter string
	verbosity  int
)

func main() {
	root := &cobra.Command{
		Use:          "varrec",
		Short:        "variable recovery for lifted binary programs",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "analysis configuration file")
	root.PersistentFlags().StringVarP(&funcFilter, "filter", "f", "", "only analyze functions matching this regex")
	root.PersistentFlags().IntVarP(&verbosity, "verbose", "v", 0, "log verbosity (1=debug, 2=trace)")

	analyze := &cobra.Command{
		Use:   "analyze <program.yaml>",
		Short: "analyze a lifted program and report recovered variables",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	root.AddCommand(analyze)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.NewDefault()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if funcFilter != "" {
		if err := cfg.SetFuncFilter(funcFilter); err != nil {
			return nil, err
		}
	}
	if verbosity > 0 {
		cfg.LogLevel = int(config.InfoLevel) + verbosity
		if cfg.LogLevel > int(config.TraceLevel) {
			cfg.LogLevel = int(config.TraceLevel)
		}
	}
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := config.NewLogGroup(cfg)

	prog, err := irload.LoadFile(args[0])
	if err != nil {
		return err
	}

	res := vars.AnalyzeProgram(cfg, logger, prog)
	vars.WriteProgramReport(os.Stdout, res)

	if failed := res.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d function(s) failed: %v", len(failed), failed)
	}
	return nil
}
