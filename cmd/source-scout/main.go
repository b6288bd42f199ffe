// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the source-scout CLI.
package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/source-scout/internal/logging"
	"github.com/pdiddy/source-scout/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

var rootCmd = &cobra.Command{
	Use:   "source-scout",
	Short: "Find and rank sources across platforms for a set of search phrases",
	Long: `source-scout searches configured platforms (GitHub, arXiv, Semantic Scholar,
web search, RSS feeds) for each search phrase, reads every candidate, asks an
LLM to summarize it and answer the configured questions, and keeps the most
relevant sources per platform.

Each run writes a timestamped directory with the top sources, the filtered
ones, and the run configuration, and is recorded in a local archive that the
history command can list and search.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s

		level := viper.GetString("log.level")
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			level = "debug"
		}
		if err := logging.Init(level, viper.GetString("log.file")); err != nil {
			return err
		}
		if used := viper.ConfigFileUsed(); used != "" {
			logging.Log.Infof("using config file %s", used)
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logging.Log.Debugf("loaded secrets: %v", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./source-scout.yaml or ~/.config/source-scout/source-scout.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log at debug level")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("source-scout")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "source-scout"))
		}
	}

	viper.SetEnvPrefix("SOURCE_SCOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			logging.Log.Warnf("reading config %s: %v", cfgFile, err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
