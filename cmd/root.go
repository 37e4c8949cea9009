// Copyright 2025 The Ringload Authors
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

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ringload/ringload/cfg"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error

	// LoaderConfig is the fully resolved config, populated by initConfig
	// before any subcommand's RunE runs.
	LoaderConfig cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "loaderd",
	Short: "Run the ringload asynchronous bulk file loader",
	Long: `loaderd is the loader process in a multi-process bulk file loader:
worker processes submit filepath load requests through shared-memory
queues, and loaderd performs the disk I/O asynchronously via a kernel
submission ring, delivering results back through shared memory.`,
	SilenceUsage: true,
}

// Execute runs the root command, printing any error to stderr and exiting
// non-zero — the same shape as the teacher's Execute.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file.")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
	viper.SetEnvPrefix(cfg.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func initConfig() {
	LoaderConfig = cfg.GetDefaultConfig()

	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			configFileErr = fmt.Errorf("resolving config file path: %w", err)
			return
		}
		viper.SetConfigFile(abs)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			configFileErr = fmt.Errorf("reading config file: %w", err)
			return
		}
	}

	unmarshalErr = viper.Unmarshal(&LoaderConfig, viper.DecodeHook(cfg.DecodeHook()), func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})
}

// resolvedConfig checks the three deferred errors accumulated during
// cobra.OnInitialize (bindErr/configFileErr/unmarshalErr, same pattern as
// the teacher's rootCmd.RunE), then rationalizes and validates. Every
// subcommand's RunE should call this before doing anything else.
func resolvedConfig() (cfg.Config, error) {
	if bindErr != nil {
		return cfg.Config{}, bindErr
	}
	if configFileErr != nil {
		return cfg.Config{}, configFileErr
	}
	if unmarshalErr != nil {
		return cfg.Config{}, unmarshalErr
	}
	if err := cfg.Rationalize(&LoaderConfig); err != nil {
		return cfg.Config{}, fmt.Errorf("rationalizing config: %w", err)
	}
	if err := cfg.ValidateConfig(&LoaderConfig); err != nil {
		return cfg.Config{}, fmt.Errorf("validating config: %w", err)
	}
	return LoaderConfig, nil
}
