// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the blockhead CLI.
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is shared by all subcommands; initConfig sets its level.
var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "blockhead"})

// configFile is the pipeline file in use, empty when none was found.
var configFile string

var rootCmd = &cobra.Command{
	Use:   "blockhead",
	Short: "Extract tagged blocks from text files",
	Long: `blockhead splits files into artifacts delimited by HTML-like block tags
such as <script> ... </script>. Each block is transformed, named and written
to an output directory or an artifact database. Files without blocks can be
passed through whole.

Blocks are declared in a pipeline file (blockhead.yaml or blockhead.hcl).
Blocks marked exec run as shell scripts, on the host or in a container.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "pipeline file (default: ./blockhead.yaml, ./blockhead.hcl or ~/.config/blockhead/blockhead.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
}

func initConfig() {
	levelName, _ := rootCmd.PersistentFlags().GetString("log-level")
	if level, err := log.ParseLevel(levelName); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warn("unknown log level, using info", "level", levelName)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	switch {
	case cfgFile != "" && strings.EqualFold(filepath.Ext(cfgFile), ".hcl"):
		configFile = cfgFile
	case cfgFile != "":
		viper.SetConfigFile(cfgFile)
	default:
		viper.SetConfigName("blockhead")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "blockhead"))
		}
	}

	viper.SetEnvPrefix("BLOCKHEAD")
	viper.AutomaticEnv()

	if configFile == "" {
		if err := viper.ReadInConfig(); err == nil {
			configFile = viper.ConfigFileUsed()
		} else if cfgFile != "" {
			configFile = cfgFile
		} else if _, err := os.Stat("blockhead.hcl"); err == nil {
			configFile = "blockhead.hcl"
		}
	}
	if configFile != "" {
		logger.Debug("using config file", "path", configFile)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
